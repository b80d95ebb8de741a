// Package main runs the API, a worker and the realtime gateway in one
// process, connected by in-memory channels.
package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "nodebase",
		Usage:                 "Run nodebase in a single process",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewDevCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
