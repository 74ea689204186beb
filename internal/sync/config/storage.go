package config

// StorageConfig содержит настройки локального хранилища.
type StorageConfig struct {
	// Path - путь к файлу базы SQLite; ":memory:" для временной базы.
	Path string `yaml:"path" env:"NOTESYNC_STORAGE_PATH" env-default:"notesync.db"`
}
