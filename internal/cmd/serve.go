package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/anonymizer"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/audit"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/config"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/ner"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/policy"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/recognizer"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the anonymization HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	cfg.WarnIfDefaultKey()

	registry, err := recognizer.LoadRegistry(cfg.RecognizerFile)
	if err != nil {
		return fmt.Errorf("loading recognizers: %w", err)
	}

	var engine ner.Engine
	if cfg.NEREnabled {
		engine = ner.NewClient(cfg.NERBaseURL, cfg.NERModel)
	}

	pipeline, err := anonymizer.New(log.Logger, registry, engine,
		anonymizer.WithLanguage(cfg.Language))
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	auditStore, err := audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey)
	if err != nil {
		return fmt.Errorf("initializing audit store: %w", err)
	}
	defer auditStore.Close()

	retention, err := audit.NewRetention(log.Logger, auditStore, cfg.RetentionDays, cfg.RetentionSchedule)
	if err != nil {
		return fmt.Errorf("audit retention: %w", err)
	}
	retention.Start()
	defer retention.Stop()

	policyEngine, err := policy.NewEngine(ctx, cfg.Policy)
	if err != nil {
		return fmt.Errorf("compliance policy engine: %w", err)
	}

	if cfg.APIKey == "" {
		log.Warn().Msg("ANONYMIZER_API_KEY not set — API endpoints are unauthenticated. Set for production.")
	}

	srv := server.NewServer(log.Logger, pipeline, auditStore, policyEngine,
		server.WithAPIKey(cfg.APIKey),
		server.WithCORSOrigins(cfg.CORSOrigins),
		server.WithRateLimiter(server.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)),
		server.WithVersion(resolvedVersion()),
	)

	addr := cfg.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().
		Str("addr", addr).
		Str("mode", string(pipeline.Mode())).
		Int("retention_days", cfg.RetentionDays).
		Msg("anonymizer_serve_started")

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown_signal_received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server_stopped")
	return nil
}
