// Command kvs-client issues one get/set/rm request against a kvs-server.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/0xcrust/log-kv/client"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut *os.File) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: kvs-client <get|set|rm> [options] <key> [value]")
		return 1
	}

	sub := args[0]
	flagSet := flag.NewFlagSet("kvs-client "+sub, flag.ContinueOnError)
	addr := flagSet.StringP("addr", "a", "127.0.0.1:4000", "server socket address")
	if err := flagSet.Parse(args[1:]); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	c, err := client.Dial(*addr)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	defer c.Close()

	switch sub {
	case "get":
		if flagSet.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: kvs-client get <key>")
			return 1
		}
		value, ok, err := c.Get(flagSet.Arg(0))
		if err != nil {
			fmt.Fprintln(errOut, "error:", err)
			return 1
		}
		if !ok {
			fmt.Fprintln(out, "Key not found")
			return 0
		}
		fmt.Fprintln(out, value)
		return 0

	case "set":
		if flagSet.NArg() != 2 {
			fmt.Fprintln(errOut, "usage: kvs-client set <key> <value>")
			return 1
		}
		if err := c.Set(flagSet.Arg(0), flagSet.Arg(1)); err != nil {
			fmt.Fprintln(errOut, "error:", err)
			return 1
		}
		return 0

	case "rm":
		if flagSet.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: kvs-client rm <key>")
			return 1
		}
		if err := c.Remove(flagSet.Arg(0)); err != nil {
			fmt.Fprintln(errOut, "error:", err)
			return 1
		}
		return 0

	default:
		fmt.Fprintln(errOut, "unknown subcommand:", sub)
		return 1
	}
}
