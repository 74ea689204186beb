package config

import (
	"notesync/pkg/logger"
)

// LoggingConfig содержит настройки логирования.
type LoggingConfig struct {
	Level string `yaml:"level" env:"NOTESYNC_LOGGER_LEVEL" env-default:"info"`
	Mode  string `yaml:"mode" env:"NOTESYNC_LOGGER_MODE" env-default:"development"`
}

// GetEnvironment переводит строку режима в logger environment.
func (l *LoggingConfig) GetEnvironment() logger.Environment {
	if l.Mode == "production" {
		return logger.Production
	}
	return logger.Development
}
