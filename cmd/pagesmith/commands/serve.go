package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/pagesmith/internal/server/handlers"
	"git.home.luguber.info/inful/pagesmith/internal/server/httpserver"
	"git.home.luguber.info/inful/pagesmith/internal/version"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Port string `help:"Override the listen port (PORT)"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, logger, err := root.loadConfig()
	if err != nil {
		return err
	}
	if s.Port != "" {
		cfg.Port = s.Port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	opts := httpserver.Options{
		Runner:            a.pipeline,
		Recorder:          a.recorder,
		PrometheusHandler: a.promHTTP,
		Logger:            logger,
	}
	if h := a.runHistory(); h != nil {
		opts.Runs = handlers.RunHistory(h)
	}
	srv := httpserver.New(&cfg, opts)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	if a.retention != nil {
		a.retention.Start()
	}

	logger.Info("pagesmith started", slog.String("version", version.Version), slog.String("port", cfg.Port))
	<-ctx.Done()
	logger.Info("Shutdown signal received, draining in-flight runs...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return nil
}
