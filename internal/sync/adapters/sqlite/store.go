package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"notesync/internal/sync/ports/repositories"
	"notesync/pkg/logger"
)

// Формат хранения временных меток.
const timeLayout = time.RFC3339Nano

// Store реализует интерфейс repositories.LocalStore.
type Store struct {
	db *sql.DB
}

// NewStore создает локальное хранилище поверх открытой базы SQLite.
func NewStore(db *sql.DB) repositories.LocalStore {
	return &Store{db: db}
}

// DB возвращает нижележащее соединение (для закрытия при завершении).
func (s *Store) DB() *sql.DB { return s.db }

// ClearAll атомарно очищает заметки, папки и очередь отложенных изменений.
func (s *Store) ClearAll(ctx context.Context) error {
	log := logger.Log(ctx).With(zap.String("method", "Store.ClearAll"))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"notes", "folders", "pending_changes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			log.Error(ctx, "failed to clear table", zap.String("table", table), zap.Error(err))
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear transaction: %w", err)
	}

	log.Debug(ctx, "local store cleared")
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}
