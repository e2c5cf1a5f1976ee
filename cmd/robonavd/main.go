// Command robonavd runs the robot-guidance protocol server and its
// read-only monitoring front-end.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/foundry9/robonav/config"
	"github.com/foundry9/robonav/logging"
	"github.com/foundry9/robonav/server"
	"github.com/foundry9/robonav/telemetry"
	"github.com/foundry9/robonav/web"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "robonavd",
		Usage:   "guide robot clients to the grid origin over a TCP protocol",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration file",
				Value:   "config.yaml",
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "override the protocol listen address",
			},
			&cli.StringFlag{
				Name:  "monitor",
				Usage: "override the monitoring listen address",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override the configured log level",
			},
			&cli.BoolFlag{
				Name:  "console",
				Usage: "use a human-friendly console log format instead of JSON",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logging.Fatal().Err(err).Msg("robonavd exited")
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("robonavd: %w", err)
	}
	if v := c.String("listen"); v != "" {
		cfg.ListenAddr = v
	}
	if v := c.String("monitor"); v != "" {
		cfg.MonitorAddr = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}

	if c.Bool("console") {
		logging.EnableConsoleOutput()
	}
	logging.SetLevel(cfg.LogLevel)
	log := logging.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	broker := telemetry.New(256)
	srv := server.New(cfg, broker, log)

	var lc net.ListenConfig
	protoLis, err := lc.Listen(ctx, "tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("robonavd: listen %s: %w", cfg.ListenAddr, err)
	}
	log.Info().Str("addr", cfg.ListenAddr).Msg("protocol listener ready")

	var webSrv *web.Server
	var monitorLis net.Listener
	if cfg.MonitorAddr != "" {
		webSrv = web.New(broker)
		monitorLis, err = lc.Listen(ctx, "tcp", cfg.MonitorAddr)
		if err != nil {
			return fmt.Errorf("robonavd: listen %s: %w", cfg.MonitorAddr, err)
		}
		log.Info().Str("addr", cfg.MonitorAddr).Msg("monitoring listener ready")
		webSrv.MarkReady()
	}

	// Both servers, plus a watcher that shuts the monitoring server down
	// once ctx is cancelled, run under one errgroup so a failure in either
	// unblocks the other rather than leaking a goroutine.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Serve(gctx, protoLis)
	})

	if webSrv != nil {
		g.Go(func() error {
			return webSrv.Serve(monitorLis)
		})
		g.Go(func() error {
			<-gctx.Done()
			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return webSrv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Error().Err(err).Msg("robonavd stopped")
		return err
	}
	return nil
}
