package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodshare/internal/metrics"
	"foodshare/internal/server"
	"foodshare/internal/view"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	config, err := loadConfig(cCtx)
	if err != nil {
		return err
	}
	if err := validateServeConfig(config); err != nil {
		return err
	}

	if !config.IsProduction() {
		logger.SetLevel(logrus.DebugLevel)
	}

	d := &deps{config: config, logger: logger}
	m := metrics.New()

	foods, err := d.foodClient(m)
	if err != nil {
		return err
	}

	// The JWKS cache refreshes in the background until shutdown.
	provider, err := d.provider(ctx)
	if err != nil {
		return err
	}

	uploader, err := d.uploader(ctx, m)
	if err != nil {
		return err
	}

	registry := view.NewRegistry(
		time.Duration(config.ViewTTLSec)*time.Second,
		config.ViewMaxPerSession,
		config.ViewMaxTotal,
		logger,
		m,
	)
	sweep := time.Duration(config.ViewSweepSec) * time.Second
	if sweep <= 0 {
		sweep = time.Minute
	}
	go registry.Run(ctx, sweep)

	srv, err := server.New(config, logger, foods, uploader, provider, registry, m)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
