// Command gudascan reads an [i32] literal from standard input, adds 10 to
// every element, and prints the inclusive prefix sum computed on a guda
// device.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/LynnColeArt/gudascan/internal/logger"
)

func main() {
	app := &cli.Command{
		Name:   "gudascan",
		Usage:  "Inclusive prefix sum of an [i32] literal on an emulated GPU device",
		Flags:  append(append(runFlags(), deviceFlags()...), loggingFlags()...),
		Action: runAction,
		Commands: []*cli.Command{
			devicesCmd(),
			serveCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config file, applies it to the unset flags and installs
// the logger in the returned context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, Config, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return ctx, cfg, cli.Exit(err.Error(), 1)
	}
	applyConfig(cmd, cfg)

	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	log, err := logger.ForFormat(logFormat, os.Stderr, level)
	if err != nil {
		return ctx, cfg, cli.Exit(err.Error(), 1)
	}
	return logger.WithContext(ctx, log), cfg, nil
}
