package config

import "time"

// Задержка завершения по умолчанию.
const defaultShutdownTimeout = 10 * time.Second

// ShutdownConfig содержит настройки корректного завершения.
type ShutdownConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"NOTESYNC_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// GetTimeout возвращает таймаут завершения с защитой от нулевого значения.
func (s *ShutdownConfig) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return defaultShutdownTimeout
	}
	return s.Timeout
}
