package config

import "time"

// RemoteConfig содержит настройки удалённого API заметок.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url" env:"NOTESYNC_REMOTE_URL" env-default:"http://localhost:8080"`
	Token   string        `yaml:"token" env:"NOTESYNC_REMOTE_TOKEN"`
	Timeout time.Duration `yaml:"timeout" env:"NOTESYNC_REMOTE_TIMEOUT" env-default:"10s"`
}
