package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "peerfetchd",
		Usage: "Fetch a contiguous range of headers and bodies from a multi-peer pool",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Fetch the configured block range, then exit",
				Flags:  runFlags,
				Action: run,
			},
			{
				Name:   "status",
				Usage:  "Dump the point-in-time fetch stats of a running run command",
				Flags:  statusFlags,
				Action: status,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
