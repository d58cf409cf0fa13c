package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	guda "github.com/LynnColeArt/gudascan"
	"github.com/LynnColeArt/gudascan/internal/logger"
	"github.com/LynnColeArt/gudascan/internal/server"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve scans over a JSON HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, cfg, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			if cfg.ServerAddress != "" && !cmd.IsSet("addr") {
				addr = cfg.ServerAddress
			}
			log := logger.FromContext(ctx)

			device, err := guda.SelectDevice(platformName, deviceName)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			// Failures are reported per request instead of terminating the server.
			gctx := guda.NewContext(device,
				guda.WithLogger(log),
				guda.WithFatalHandler(nil))
			defer gctx.Destroy()

			defaults := scanConfig(cfg)
			if err := defaults.Validate(device); err != nil {
				return cli.Exit(err.Error(), 1)
			}

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.NewServer(gctx, defaults, log).Register(e)
			log.Info("starting server", "address", addr, "device", device.Name)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
