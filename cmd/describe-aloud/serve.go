package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	describealoud "github.com/snarg/describe-aloud"
	"github.com/snarg/describe-aloud/internal/api"
	"github.com/snarg/describe-aloud/internal/config"
	"github.com/snarg/describe-aloud/internal/metrics"
	"github.com/snarg/describe-aloud/internal/storage"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	var overrides config.Overrides

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and web page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags, overrides)
		},
	}

	cmd.Flags().StringVar(&overrides.HTTPAddr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	cmd.Flags().StringVar(&overrides.AudioDir, "audio-dir", "", "Local audio directory (overrides AUDIO_DIR)")

	return cmd
}

func runServe(parent context.Context, flags *globalFlags, overrides config.Overrides) error {
	startTime := time.Now()

	cfg, err := loadConfig(flags, overrides)
	if err != nil {
		return err
	}

	log := newLogger(os.Stdout, cfg.LogLevel)
	log.Info().Str("version", version).Msg("describe-aloud starting")

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer a.Close()

	prometheus.MustRegister(metrics.NewCollector(a, cfg.VisionMode, a.store.Type()))

	webFS, err := fs.Sub(describealoud.WebFiles, "web")
	if err != nil {
		return fmt.Errorf("web assets: %w", err)
	}

	opts := api.ServerOptions{
		Config:    cfg,
		Describer: a.describer,
		WebFS:     webFS,
		Health: api.HealthOptions{
			Version:       version,
			StartTime:     startTime,
			VisionMode:    cfg.VisionMode,
			Providers:     a.describer.Providers(),
			SpeechEnabled: a.speaker != nil,
			StoreType:     a.store.Type(),
		},
		Log: log.With().Str("component", "http").Logger(),
	}
	// Interface fields stay nil unless the feature is configured.
	if a.speaker != nil {
		opts.Speaker = a.speaker
	}
	if a.verifier != nil {
		opts.Verifier = a.verifier
	}
	if a.broker != nil {
		opts.Health.Broker = a.broker
	}
	if local, ok := a.store.(*storage.LocalStore); ok {
		opts.Audio = local
	}

	srv := api.NewServer(opts)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), api.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("describe-aloud stopped")
	return nil
}
