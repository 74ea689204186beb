package config

import "time"

// SyncConfig содержит настройки конвейера синхронизации.
type SyncConfig struct {
	// DebounceDelay - задержка отложенной удалённой записи.
	DebounceDelay time.Duration `yaml:"debounce_delay" env:"NOTESYNC_DEBOUNCE_DELAY" env-default:"5s"`
	// ProbeInterval - период пробных запросов связности.
	ProbeInterval time.Duration `yaml:"probe_interval" env:"NOTESYNC_PROBE_INTERVAL" env-default:"15s"`
	// RetryAttempts - число немедленных попыток удалённого вызова.
	RetryAttempts int `yaml:"retry_attempts" env:"NOTESYNC_RETRY_ATTEMPTS" env-default:"2"`
	// BreakerThreshold - число подряд идущих отказов до размыкания.
	BreakerThreshold int `yaml:"breaker_threshold" env:"NOTESYNC_BREAKER_THRESHOLD" env-default:"5"`
	// BreakerTimeout - пауза перед полуоткрытым состоянием размыкателя.
	BreakerTimeout time.Duration `yaml:"breaker_timeout" env:"NOTESYNC_BREAKER_TIMEOUT" env-default:"30s"`
}
