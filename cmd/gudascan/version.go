package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/urfave/cli/v3"

	guda "github.com/LynnColeArt/gudascan"
)

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			version, sum := guda.Version()
			if version == "" {
				version = "(devel)"
			}
			fmt.Printf("version:    %s\n", version)
			if sum != "" {
				fmt.Printf("checksum:   %s\n", sum)
			}
			fmt.Printf("go:         %s\n", runtime.Version())
			fmt.Printf("cpu:        %s\n", guda.GetCPUInfo())
			return nil
		},
	}
}
