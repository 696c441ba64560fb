// Command kvs-server binds the key-value store's TCP server over a
// configurable storage engine.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	flag "github.com/spf13/pflag"

	kvs "github.com/0xcrust/log-kv"
	"github.com/0xcrust/log-kv/engine/boltengine"
	"github.com/0xcrust/log-kv/internal/enginelock"
	"github.com/0xcrust/log-kv/pool"
	"github.com/0xcrust/log-kv/server"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, errOut *os.File) int {
	flagSet := flag.NewFlagSet("kvs-server", flag.ContinueOnError)
	addr := flagSet.StringP("addr", "a", "127.0.0.1:4000", "socket address to bind")
	engineName := flagSet.StringP("engine", "e", "kvs", "storage engine to use: kvs|bolt")
	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(errOut))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	cwd, err := os.Getwd()
	if err != nil {
		level.Error(logger).Log("msg", "getwd failed", "err", err)
		return 1
	}

	if err := enginelock.Resolve(cwd, *engineName); err != nil {
		level.Error(logger).Log("msg", "engine selection rejected", "err", err)
		return 1
	}

	p := pool.NewSharedQueuePool(runtime.NumCPU(), pool.WithLogger(logger))
	defer p.Close()

	level.Info(logger).Log("msg", "starting server", "engine", *engineName, "addr", *addr)

	switch *engineName {
	case "kvs":
		store, err := kvs.Open(cwd, kvs.WithLogger(logger))
		if err != nil {
			level.Error(logger).Log("msg", "failed to open store", "err", err)
			return 1
		}
		defer store.Close()
		return runServer(store, p, *addr, logger)

	case "bolt":
		engine, err := boltengine.Open(cwd)
		if err != nil {
			level.Error(logger).Log("msg", "failed to open engine", "err", err)
			return 1
		}
		defer engine.Close()
		return runServer(engine, p, *addr, logger)

	default:
		level.Error(logger).Log("msg", "unknown engine", "engine", *engineName)
		return 1
	}
}

func runServer[E kvs.CloneableEngine[E]](engine E, p pool.Pool, addr string, logger log.Logger) int {
	srv, _, err := server.Bind(addr, engine, p, server.WithLogger(logger))
	if err != nil {
		level.Error(logger).Log("msg", "failed to bind", "err", err)
		return 1
	}
	if err := srv.Run(); err != nil {
		level.Error(logger).Log("msg", "server exited with error", "err", err)
		return 1
	}
	return 0
}
