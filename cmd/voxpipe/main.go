// voxpipe server — hosts the intake HTTP API, the queue worker driving the
// transcription pipeline, the inbound folder watcher, and the event stream.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voxpipe/voxpipe/pkg/api"
	"github.com/voxpipe/voxpipe/pkg/cleanup"
	"github.com/voxpipe/voxpipe/pkg/config"
	"github.com/voxpipe/voxpipe/pkg/database"
	"github.com/voxpipe/voxpipe/pkg/diarize"
	"github.com/voxpipe/voxpipe/pkg/events"
	"github.com/voxpipe/voxpipe/pkg/llm"
	"github.com/voxpipe/voxpipe/pkg/notify"
	"github.com/voxpipe/voxpipe/pkg/output"
	"github.com/voxpipe/voxpipe/pkg/profile"
	"github.com/voxpipe/voxpipe/pkg/queue"
	"github.com/voxpipe/voxpipe/pkg/services"
	"github.com/voxpipe/voxpipe/pkg/transcribe"
	"github.com/voxpipe/voxpipe/pkg/version"
	"github.com/voxpipe/voxpipe/pkg/watcher"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// resolveWorkerID determines the worker identifier recorded on claimed jobs.
// Priority: WORKER_ID env > HOSTNAME env > "local"
func resolveWorkerID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		return hostname
	}
	return "local"
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./config"),
		"Path to configuration directory (profiles, prompts, .env)")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	workerID := resolveWorkerID()

	slog.Info("Starting voxpipe",
		"version", version.Full(),
		"http_port", httpPort,
		"worker_id", workerID,
		"config_dir", *configDir)

	// Components shut down through their Stop methods; a cancelled parent
	// context would abort the in-flight job instead of letting it finish.
	ctx := context.Background()

	// 1. Configuration and directory layout
	cfg, err := config.Load(*configDir)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Database
	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load database config", "error", err)
		os.Exit(1)
	}

	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("Error closing database client", "error", err)
		}
	}()
	slog.Info("Connected to PostgreSQL database")

	// 3. One-time startup orphan recovery: a single-worker deployment means
	// any processing row at boot belongs to a crashed previous run.
	if _, err := queue.RequeueStartupOrphans(ctx, dbClient.Client); err != nil {
		slog.Error("Failed to requeue startup orphans", "error", err)
		// Non-fatal — continue
	}

	// 4. Domain services and profile registry
	jobService := services.NewJobService(dbClient.Client)
	stageService := services.NewStageService(dbClient.Client)

	profiles, err := profile.NewLoader(cfg.ConfigDir())
	if err != nil {
		slog.Error("Failed to load profiles", "error", err)
		os.Exit(1)
	}
	slog.Info("Services initialized")

	// 5. Event streaming: in-process bus, optionally bridged over redis
	bus := events.NewBus()
	bridge := events.NewRedisBridgeFromEnv(bus)
	if bridge != nil {
		listenCtx, cancelListen := context.WithCancel(ctx)
		defer cancelListen()
		go bridge.Listen(listenCtx)
		defer func() {
			if err := bridge.Close(); err != nil {
				slog.Error("Error closing redis bridge", "error", err)
			}
		}()
		slog.Info("Redis event bridge enabled")
	}
	publisher := events.NewPublisher(bus, bridge)

	// 6. Stage executors
	transcriber := transcribe.NewClient(cfg.ASR.APIKey, cfg.ASR.Model, cfg.ASR.BaseURL, cfg.ASR.Timeout)
	diarizer := diarize.NewDiarizer(*cfg.Diarization)
	llmClient := llm.NewClient()

	writer, err := output.NewWriter(cfg.Paths.OutputDir)
	if err != nil {
		slog.Error("Failed to initialize output writer", "error", err)
		os.Exit(1)
	}
	notifier := notify.NewNotifier(notify.NewEmailSenderFromEnv())

	executor := queue.NewPipelineExecutor(
		cfg.Paths, jobService, stageService, profiles,
		transcriber, diarizer, llmClient,
		writer, notifier, publisher,
	)

	// 7. Queue worker (before the HTTP server, so claims resume immediately)
	worker := queue.NewWorker(workerID, dbClient.Client, cfg.Queue, executor, jobService, publisher)
	worker.Start(ctx)

	// 8. Retention
	cleanupService := cleanup.NewService(cfg.Retention, cfg.Paths, jobService)
	cleanupService.Start(ctx)
	defer cleanupService.Stop()

	// 9. Inbound folder watcher
	folderWatcher, err := watcher.New(cfg.Paths.InboundDir, profiles, jobService)
	if err != nil {
		slog.Error("Failed to initialize folder watcher", "error", err)
		os.Exit(1)
	}
	if err := folderWatcher.Start(ctx); err != nil {
		slog.Error("Failed to start folder watcher", "error", err)
		os.Exit(1)
	}

	// 10. HTTP server
	server, err := api.NewServer(cfg.Paths, dbClient, jobService, stageService, profiles, bus, llmClient)
	if err != nil {
		slog.Error("Failed to initialize HTTP server", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("voxpipe started successfully", "worker_id", workerID)

	// 11. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 12. Graceful shutdown: stop intake first, then wait for the active job.
	folderWatcher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.GracefulShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		worker.Stop()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		slog.Warn("Shutdown timeout exceeded — the active job will be orphan-recovered on next start")
	}

	httpShutdownCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
