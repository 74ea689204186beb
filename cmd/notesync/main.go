// Package main реализует точку входа демона синхронизации заметок.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"notesync/internal/sync/adapters/connectivity"
	"notesync/internal/sync/adapters/httpapi"
	"notesync/internal/sync/adapters/sqlite"
	"notesync/internal/sync/app"
	"notesync/internal/sync/config"
	"notesync/internal/sync/resilience"
	"notesync/pkg/logger"
	"notesync/pkg/shutdown"
)

// Константы для переменных окружения.
const (
	EnvLoggerMode  = "NOTESYNC_LOGGER_MODE"
	EnvLoggerLevel = "NOTESYNC_LOGGER_LEVEL"
)

// Константы для сообщений об ошибках.
const (
	ErrInitLogger           = "failed to initialize logger"
	ErrSyncLogger           = "failed to sync logger"
	ErrLoadConfig           = "failed to load configuration"
	ErrInitLoggerWithConfig = "failed to initialize logger with configuration settings"
	ErrOpenStore            = "failed to open local store"
)

// Константы для игнорируемых ошибок.
const (
	ErrSyncStderr = "sync /dev/stderr: invalid argument"
	ErrSyncStdout = "sync /dev/stdout: invalid argument"
)

// Константы для сообщений сервиса.
const (
	LogServiceStarted      = "sync engine started"
	LogServiceShutdownDone = "sync engine shutdown complete"
	LogClosingStore        = "closing local store"
	LogStoppingEngine      = "stopping sync engine"
	LogInitStore           = "initializing local store"
	LogInitRemote          = "initializing remote api client"
	LogInitMonitor         = "initializing connectivity monitor"
	LogInitOrchestrator    = "initializing sync orchestrator"
	LogInitialRefresh      = "performing initial collection refresh"
	LogInitialRefreshSkip  = "initial refresh skipped, device offline"
)

func main() {
	env := logger.Development
	if strings.ToLower(os.Getenv(EnvLoggerMode)) == "production" {
		env = logger.Production
	}

	log, err := logger.NewLogger(env, os.Getenv(EnvLoggerLevel))
	if err != nil {
		panic(ErrInitLogger + ": " + err.Error())
	}

	logger.SetGlobalLogger(log)

	ctx := logger.NewOperationContext(context.Background(), "")

	var exitCode int

	func() {
		defer func() {
			if err := log.Sync(); err != nil {
				errMsg := err.Error()
				if strings.Contains(errMsg, ErrSyncStderr) || strings.Contains(errMsg, ErrSyncStdout) {
					return
				}
				if _, writeErr := fmt.Fprintf(os.Stderr, "%s: %v\n", ErrSyncLogger, err); writeErr != nil {
					panic(writeErr)
				}
			}
		}()

		cfg, err := config.Load(ctx)
		if err != nil {
			log.Error(ctx, ErrLoadConfig, zap.Error(err))
			exitCode = 1
			return
		}

		finalLogger, err := logger.NewLogger(cfg.Logging.GetEnvironment(), cfg.Logging.Level)
		if err != nil {
			log.Error(ctx, ErrInitLoggerWithConfig, zap.Error(err))
			exitCode = 1
			return
		}
		logger.SetGlobalLogger(finalLogger)
		log = finalLogger

		log.Info(ctx, LogInitStore, zap.String("path", cfg.Storage.Path))
		db, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			log.Error(ctx, ErrOpenStore, zap.Error(err))
			exitCode = 1
			return
		}
		store := sqlite.NewStore(db)

		log.Info(ctx, LogInitRemote, zap.String("base_url", cfg.Remote.BaseURL))
		client := httpapi.NewClient(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Timeout)

		log.Info(ctx, LogInitMonitor, zap.Duration("probe_interval", cfg.Sync.ProbeInterval))
		monitor := connectivity.NewMonitor(client.Ping, cfg.Sync.ProbeInterval)

		log.Info(ctx, LogInitOrchestrator, zap.Duration("debounce_delay", cfg.Sync.DebounceDelay))
		retryCfg := resilience.DefaultRetryConfig()
		retryCfg.MaxAttempts = cfg.Sync.RetryAttempts
		breakerCfg := resilience.DefaultCircuitBreakerConfig()
		breakerCfg.ErrorThreshold = cfg.Sync.BreakerThreshold
		breakerCfg.Timeout = cfg.Sync.BreakerTimeout

		orchestrator := app.NewOrchestrator(store, client, monitor, app.Config{
			DebounceDelay: cfg.Sync.DebounceDelay,
			Retry:         retryCfg,
			Breaker:       breakerCfg,
		})

		runCtx, cancel := context.WithCancel(logger.NewContext(context.Background(), log))

		// Первый пробный запрос выполняется синхронно, чтобы решение о
		// стартовом обновлении не зависело от гонки с циклом монитора.
		monitor.Check(ctx)
		go monitor.Start(runCtx)
		go orchestrator.Run(runCtx)

		if monitor.Online() {
			log.Info(ctx, LogInitialRefresh)
			if _, err := orchestrator.RefreshNotes(ctx); err != nil {
				log.Warn(ctx, "initial notes refresh failed", zap.Error(err))
			}
			if _, err := orchestrator.RefreshFolders(ctx); err != nil {
				log.Warn(ctx, "initial folders refresh failed", zap.Error(err))
			}
		} else {
			log.Info(ctx, LogInitialRefreshSkip)
		}

		log.Info(ctx, LogServiceStarted,
			zap.String("environment", string(env)),
			zap.String("log_level", cfg.Logging.Level),
			zap.String("startup_time", time.Now().Format(time.RFC3339)))

		shutdown.Wait(cfg.Shutdown.GetTimeout(),
			func(ctx context.Context) error {
				log.Info(ctx, LogStoppingEngine)
				cancel()
				return nil
			},
			func(ctx context.Context) error {
				log.Info(ctx, LogClosingStore)
				return db.Close()
			},
		)

		log.Info(ctx, LogServiceShutdownDone)
	}()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
