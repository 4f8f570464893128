/*
Package server contains the command running the marketplace web server
along with metrics services.
*/
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ssoonwee/bonafide/cli/cmdargs"
	"github.com/ssoonwee/bonafide/cli/options"
	"github.com/ssoonwee/bonafide/pkg/services/metrics"
	"github.com/ssoonwee/bonafide/pkg/services/webapp"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewCommands returns 'server' command.
func NewCommands() []cli.Command {
	return []cli.Command{{
		Name:      "server",
		Usage:     "start marketplace web server",
		UsageText: "bonafide server [--config-path path] [-d] [-p/-m/-t] [--config-file file] [-w wallet.json]",
		Description: `Serves marketplace views via HTTP JSON API. Operations are performed
   on behalf of the UnlockWallet (or --wallet) account, without it the server
   is read-only. SIGHUP reloads the log level from the configuration.`,
		Action: startServer,
		Flags:  options.Common(),
	}}
}

// newGraceContext returns the context that is cancelled on SIGINT or
// SIGTERM.
func newGraceContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()
	return ctx
}

func startServer(ctx *cli.Context) error {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}
	grace := newGraceContext()

	s, err := options.NewStack(grace, ctx, false)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer s.Close()

	var (
		cfg     = s.Config.ApplicationConfiguration
		log     = s.Log
		errChan = make(chan error)
		web     = webapp.New(cfg.Webapp, s.Controller, s.Config.Chain.Decimals, log)
		prom    = metrics.NewPrometheusService(cfg.Prometheus, log)
		pprof   = metrics.NewPprofService(cfg.Pprof, log)
	)
	if err := prom.Start(errChan); err != nil {
		return cli.NewExitError(fmt.Errorf("failed to start Prometheus service: %w", err), 1)
	}
	defer prom.ShutDown()
	if err := pprof.Start(errChan); err != nil {
		return cli.NewExitError(fmt.Errorf("failed to start Pprof service: %w", err), 1)
	}
	defer pprof.ShutDown()
	if err := web.Start(errChan); err != nil {
		return cli.NewExitError(err, 1)
	}
	defer web.Shutdown()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sighup)
	defer signal.Stop(sigCh)

	for {
		select {
		case err := <-errChan:
			return cli.NewExitError(fmt.Errorf("server error: %w", err), 1)
		case sig := <-sigCh:
			log.Info("signal received", zap.Stringer("name", sig))
			reloadLogLevel(ctx, s.Level, log)
		case <-grace.Done():
			log.Info("shutting down")
			return nil
		}
	}
}

func reloadLogLevel(ctx *cli.Context, level *zap.AtomicLevel, log *zap.Logger) {
	if ctx.Bool("debug") {
		return
	}
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		log.Warn("failed to reload config", zap.Error(err))
		return
	}
	l := zapcore.InfoLevel
	if cfg.ApplicationConfiguration.LogLevel != "" {
		l, err = zapcore.ParseLevel(cfg.ApplicationConfiguration.LogLevel)
		if err != nil {
			log.Warn("wrong LogLevel in the new config", zap.Error(err))
			return
		}
	}
	if l != level.Level() {
		log.Info("changing log level", zap.Stringer("old", level.Level()), zap.Stringer("new", l))
		level.SetLevel(l)
	}
}
