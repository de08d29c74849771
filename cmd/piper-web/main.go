// main package for the piper-web service
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/joho/godotenv"

	"github.com/book-expert/piper-web/internal/config"
	"github.com/book-expert/piper-web/internal/core"
	"github.com/book-expert/piper-web/internal/server"
	"github.com/book-expert/piper-web/internal/store"
	"github.com/book-expert/piper-web/internal/stt"
	"github.com/book-expert/piper-web/internal/synth"
	"github.com/book-expert/piper-web/internal/voice"
	"github.com/book-expert/piper-web/internal/worker"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second

	apiKeyEnvVar = "OPENAI_API_KEY"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "piper-web.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

// resolveBinary turns a PATH-relative binary name into an absolute path
// so that availability checks can stat it. A name that cannot be found
// is returned unchanged; the engine then reports itself unavailable.
func resolveBinary(name string) string {
	resolved, lookErr := exec.LookPath(name)
	if lookErr != nil {
		return name
	}

	return resolved
}

func buildTranscriber(cfg *config.Config, log *logger.Logger) core.Transcriber {
	if !cfg.STT.Enabled {
		return nil
	}

	apiKey := os.Getenv(apiKeyEnvVar)
	if apiKey == "" {
		log.Warn("Transcription enabled but %s is not set; disabling.", apiKeyEnvVar)

		return nil
	}

	return stt.New(apiKey, cfg.STT.Model, log)
}

func serve(ctx context.Context, cfg *config.Config, handler http.Handler, log *logger.Logger) error {
	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErrs := make(chan error, 1)

	go func() {
		listenErr := httpServer.ListenAndServe()
		if listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			serveErrs <- listenErr
		}

		close(serveErrs)
	}()

	log.System("Listening on %s", addr)

	select {
	case listenErr := <-serveErrs:
		if listenErr != nil {
			return fmt.Errorf("http server failed: %w", listenErr)
		}

		return nil
	case <-ctx.Done():
	}

	log.Info("Shutdown signal received, draining connections.")

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := httpServer.Shutdown(drainCtx)
	if shutdownErr != nil {
		return fmt.Errorf("http server shutdown failed: %w", shutdownErr)
	}

	return nil
}

func run() error {
	// A missing .env file is not an error; the environment may already
	// be populated.
	_ = godotenv.Load()

	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 3. Initialize the final logger based on the loaded configuration
	logsDir := cfg.Paths.BaseLogsDir
	if logsDir == "" {
		logsDir = os.TempDir()
	}

	log, err := setupLogger(logsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := log.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runService(ctx, cfg, log)
}

func runService(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	mkdirErr := os.MkdirAll(cfg.Paths.VoicesDir, 0o750)
	if mkdirErr != nil {
		return fmt.Errorf("failed to create voices directory: %w", mkdirErr)
	}

	registry, registryErr := voice.NewRegistry(cfg.Paths.VoicesDir)
	if registryErr != nil {
		return fmt.Errorf("failed to create voice registry: %w", registryErr)
	}

	ffmpegPath := resolveBinary(cfg.Paths.FFmpegBinary)

	artifacts, storeErr := store.New(cfg.Paths.AudioDir, ffmpegPath, log)
	if storeErr != nil {
		return fmt.Errorf("failed to create artifact store: %w", storeErr)
	}

	engine := synth.New(synth.Options{
		Binary:         resolveBinary(cfg.Paths.EngineBinary),
		BaseAdjustment: cfg.Synthesis.BaseAdjustment,
		Timeout:        time.Duration(cfg.Synthesis.TimeoutSeconds) * time.Second,
	}, registry, artifacts, log)

	if !engine.Available() {
		log.Warn("Synthesis binary %q not found; generation requests will fail until it is installed.",
			cfg.Paths.EngineBinary)
	}

	pool := worker.NewPool(engine, cfg.Synthesis.Workers, log)

	go pool.Run(ctx)

	janitor := store.NewJanitor(artifacts,
		time.Duration(cfg.Cleanup.MaxAgeSeconds)*time.Second,
		time.Duration(cfg.Cleanup.SweepIntervalSeconds)*time.Second,
		log)

	go janitor.Run(ctx)

	transcriber := buildTranscriber(cfg, log)

	capabilities := core.Capabilities{
		STTAvailable:       transcriber != nil,
		TranscodeAvailable: artifacts.TranscodeAvailable(),
	}

	srv := server.New(pool, registry, artifacts, transcriber, capabilities,
		engine.Available, log)

	return serve(ctx, cfg, srv.Router(), log)
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
