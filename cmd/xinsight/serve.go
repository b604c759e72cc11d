package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xinsight/internal/httpapi"
)

type serveOptions struct {
	addr string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var so serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, so)
		},
	}
	cmd.Flags().StringVar(&so.addr, "addr", "", "HTTP listen address, e.g. :8000 (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, so serveOptions) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if so.addr != "" {
		cfg.Addr = so.addr
	}
	log := newLogger(cfg.Log, cmd.ErrOrStderr())

	// Canceled on SIGINT/SIGTERM; handlers observe it through SetBaseContext.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Warn().Err(err).Msg("release pipeline")
		}
	}()

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetRequestLogLevel(cfg.Log.Requests)
	httpapi.SetMaxBodyBytes(cfg.MaxUploadBytes())
	httpapi.SetRequestTimeoutSeconds(int64(cfg.RequestTimeoutSeconds))
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(p.analyzer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Bool("model_ready", p.analyzer.Ready()).Str("mode", p.analyzer.Mode()).Msg("xinsight listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
