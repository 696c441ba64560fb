// Command kvs is a local, non-networked CLI operating directly on a store
// rooted at the current working directory.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	kvs "github.com/0xcrust/log-kv"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut *os.File) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: kvs <get|set|rm> <key> [value]")
		return 1
	}

	sub := args[0]
	flagSet := flag.NewFlagSet("kvs "+sub, flag.ContinueOnError)
	if err := flagSet.Parse(args[1:]); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	store, err := kvs.Open(cwd)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	defer store.Close()

	switch sub {
	case "get":
		if flagSet.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: kvs get <key>")
			return 1
		}
		value, ok, err := store.Get(flagSet.Arg(0))
		if err != nil {
			fmt.Fprintln(errOut, "error:", err)
			return 1
		}
		if ok {
			fmt.Fprintln(out, value)
		}
		return 0

	case "set":
		if flagSet.NArg() != 2 {
			fmt.Fprintln(errOut, "usage: kvs set <key> <value>")
			return 1
		}
		if err := store.Set(flagSet.Arg(0), flagSet.Arg(1)); err != nil {
			fmt.Fprintln(errOut, "error:", err)
			return 1
		}
		return 0

	case "rm":
		if flagSet.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: kvs rm <key>")
			return 1
		}
		if err := store.Remove(flagSet.Arg(0)); err != nil {
			fmt.Fprintln(errOut, "error:", err)
			return 1
		}
		return 0

	default:
		fmt.Fprintln(errOut, "unknown subcommand:", sub)
		return 1
	}
}
