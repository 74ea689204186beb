// Package config предоставляет функциональность для загрузки
// конфигурации из файла окружения и переменных окружения.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"

	"notesync/pkg/logger"
)

// EnvFileVar - переменная окружения с путём к файлу .env.
const EnvFileVar = "NOTESYNC_ENV_FILE"

// Константы для логирования.
const (
	msgLoadingConfiguration    = "loading configuration"
	msgConfigurationLoaded     = "configuration loaded successfully"
	msgFailedLoadConfiguration = "failed to load configuration"
)

// Load читает конфигурацию типа T из файла окружения (если он
// существует) и переменных окружения.
func Load[T any](ctx context.Context, appName string) (*T, error) {
	log := logger.Log(ctx)

	envPath := os.Getenv(EnvFileVar)
	if envPath == "" {
		envPath = ".env"
	}

	log.Info(ctx, msgLoadingConfiguration,
		zap.String("app", appName),
		zap.String("path", envPath))

	var cfg T

	err := cleanenv.ReadConfig(envPath, &cfg)
	if errors.Is(err, os.ErrNotExist) {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		log.Error(ctx, msgFailedLoadConfiguration,
			zap.String("app", appName),
			zap.Error(err))
		return nil, fmt.Errorf("%s: %w", msgFailedLoadConfiguration, err)
	}

	log.Info(ctx, msgConfigurationLoaded, zap.String("app", appName))
	return &cfg, nil
}
