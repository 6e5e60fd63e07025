package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/docflow/internal/config"
	"github.com/MeKo-Tech/docflow/internal/events"
	"github.com/MeKo-Tech/docflow/internal/ingest"
	"github.com/MeKo-Tech/docflow/internal/queue"
	"github.com/MeKo-Tech/docflow/internal/server"
	"github.com/MeKo-Tech/docflow/internal/status"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start an HTTP server exposing extraction, upload, document status and
pipeline endpoints.

The server provides the following endpoints:
  POST /extraction/v1/extract              - Extract entities from a layout
  POST /extraction/v1/evaluate             - Evaluate auto-approval rules
  POST /upload_service/v1/upload_files     - Upload PDF documents
  POST /upload_service/v1/upload_json      - Upload structured input
  POST /document_status_service/v1/...     - Record pipeline stage results
  POST /start-pipeline/run                 - Bucket trigger notifications
  POST /queue/publish                      - Push delivery of batch messages
  GET  /ws/events                          - Stream lifecycle events
  GET  /health, /metrics

Examples:
  docflow serve
  docflow serve --port 8080
  docflow serve --host 0.0.0.0 --db /var/lib/docflow/status.db`,
	SilenceUsage: true,
	RunE:         runServeCommand,
}

// rateLimitFromFlags applies rate limit flag overrides to the configured limits.
func rateLimitFromFlags(cmd *cobra.Command, rl config.RateLimitConfig) config.RateLimitConfig {
	if cmd.Flags().Changed("rate-limit-enabled") {
		rl.Enabled, _ = cmd.Flags().GetBool("rate-limit-enabled")
	}
	if cmd.Flags().Changed("requests-per-minute") {
		rl.RequestsPerMinute, _ = cmd.Flags().GetInt("requests-per-minute")
	}
	if cmd.Flags().Changed("requests-per-hour") {
		rl.RequestsPerHour, _ = cmd.Flags().GetInt("requests-per-hour")
	}
	if cmd.Flags().Changed("max-requests-per-day") {
		rl.MaxRequestsPerDay, _ = cmd.Flags().GetInt("max-requests-per-day")
	}
	if cmd.Flags().Changed("max-data-per-day-mb") {
		rl.MaxDataPerDayMB, _ = cmd.Flags().GetInt64("max-data-per-day-mb")
	}
	return rl
}

// serverSettingsFromFlags applies flag overrides to the server, storage and
// pipeline sections of cfg.
func serverSettingsFromFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("cors-origin") {
		cfg.Server.CORSOrigin, _ = cmd.Flags().GetString("cors-origin")
	}
	if cmd.Flags().Changed("max-upload-size") {
		cfg.Server.MaxUploadMB, _ = cmd.Flags().GetInt("max-upload-size")
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Server.TimeoutSec, _ = cmd.Flags().GetInt("timeout")
	}
	if cmd.Flags().Changed("shutdown-timeout") {
		cfg.Server.ShutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
	}
	if cmd.Flags().Changed("db") {
		cfg.Storage.DatabasePath, _ = cmd.Flags().GetString("db")
	}
	if cmd.Flags().Changed("bucket-dir") {
		cfg.Storage.BucketDir, _ = cmd.Flags().GetString("bucket-dir")
	}
	if cmd.Flags().Changed("process-task-url") {
		cfg.Pipeline.ProcessTaskURL, _ = cmd.Flags().GetString("process-task-url")
	}
	if cmd.Flags().Changed("rules") {
		cfg.Approval.RulesFile, _ = cmd.Flags().GetString("rules")
	}
	cfg.Server.RateLimit = rateLimitFromFlags(cmd, cfg.Server.RateLimit)
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	serverSettingsFromFlags(cmd, cfg)

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", cfg.Server.Port)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := status.OpenDB(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	store, err := status.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to initialize document store: %w", err)
	}

	hub := events.NewHub(256)
	defer hub.Close()

	docs := status.NewService(store, cfg.Storage.BucketName, status.WithPublisher(hub))
	ingestSvc := ingest.NewService(docs, ingest.NewFSStore(cfg.Storage.BucketDir), ingest.Options{
		TriggerFilename: cfg.Pipeline.StartPipelineFilename,
		DefaultContext:  cfg.Pipeline.DefaultContext,
		Publisher:       hub,
	})

	rules, err := loadApprovalRules(cfg.Approval.RulesFile)
	if err != nil {
		return err
	}

	var forwarder *queue.Forwarder
	if cfg.Pipeline.ProcessTaskURL != "" {
		forwarder = queue.NewForwarder(cfg.Pipeline.ProcessTaskURL,
			queue.WithClient(&http.Client{Timeout: time.Duration(cfg.Pipeline.ForwardTimeoutSec) * time.Second}),
			queue.WithRetries(2))

		if relay, _ := cmd.Flags().GetBool("relay"); relay {
			ch, unsubscribe := hub.Subscribe()
			defer unsubscribe()
			go queue.Relay(ctx, ch, forwarder)
			slog.Info("Relaying batches to process task", "url", forwarder.URL())
		}
	}

	rateLimiter := server.NewRateLimiterFromConfig(cfg.Server.RateLimit)
	if rateLimiter != nil {
		go pruneRateLimiter(ctx, rateLimiter)
	}

	srv := server.NewServer(server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		CORSOrigin:     cfg.Server.CORSOrigin,
		MaxUploadMB:    int64(cfg.Server.MaxUploadMB),
		TimeoutSec:     cfg.Server.TimeoutSec,
		MatchThreshold: cfg.Extraction.MatchThreshold,
		FailFastRows:   cfg.Extraction.FailFastRows,
		RateLimiter:    rateLimiter,
	}, server.Deps{
		Docs:      docs,
		Ingest:    ingestSvc,
		Forwarder: forwarder,
		Hub:       hub,
		Rules:     rules,
	})

	timeout := time.Duration(cfg.Server.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
	}

	go func() {
		slog.Info("Starting docflow server", "host", cfg.Server.Host, "port", cfg.Server.Port,
			"db", cfg.Storage.DatabasePath, "bucket_dir", cfg.Storage.BucketDir)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Closing the hub sends a close frame to every WebSocket client.
	hub.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server shutdown completed")
	}

	slog.Info("Graceful shutdown completed")
	return nil
}

func pruneRateLimiter(ctx context.Context, rl *server.RateLimiter) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.Prune(); n > 0 {
				slog.Debug("Pruned idle rate limit clients", "clients", n)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	// Storage and pipeline flags
	serveCmd.Flags().String("db", "docflow.db", "SQLite database holding document status records")
	serveCmd.Flags().String("bucket-dir", "data/buckets", "directory backing the object store buckets")
	serveCmd.Flags().String("process-task-url", "", "process task endpoint batches are forwarded to")
	serveCmd.Flags().Bool("relay", true, "forward uploaded batches to the process task endpoint")
	serveCmd.Flags().String("rules", "", "YAML auto-approval rules merged over the built-in rules")
	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", 1000, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", 5000, "maximum requests per day per client")
	serveCmd.Flags().Int64("max-data-per-day-mb", 1024, "maximum upload volume per day per client (MB)")
}
