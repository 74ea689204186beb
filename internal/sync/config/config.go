// Package config определяет конфигурацию движка синхронизации.
package config

import (
	"context"
	"fmt"

	pkgconfig "notesync/pkg/config"
)

// AppName - имя приложения в логах загрузки конфигурации.
const AppName = "notesync"

// Config - агрегированная конфигурация движка синхронизации.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
	Remote   RemoteConfig   `yaml:"remote"`
	Sync     SyncConfig     `yaml:"sync"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
}

// Load загружает конфигурацию из файла окружения и переменных окружения.
func Load(ctx context.Context) (*Config, error) {
	cfg, err := pkgconfig.Load[Config](ctx, AppName)
	if err != nil {
		return nil, fmt.Errorf("load sync config: %w", err)
	}
	return cfg, nil
}
