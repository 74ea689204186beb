package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"notesync/internal/sync/domain/entities"
)

// UpsertPendingChange вставляет или заменяет запись очереди по её
// внутреннему идентификатору.
func (s *Store) UpsertPendingChange(ctx context.Context, change *entities.PendingChange) error {
	payload, err := marshalPayload(change.Payload)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO pending_changes (id, kind, entity, entity_id, payload, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            kind       = excluded.kind,
            entity     = excluded.entity,
            entity_id  = excluded.entity_id,
            payload    = excluded.payload,
            created_at = excluded.created_at`,
		change.ID, string(change.Kind), string(change.Entity),
		change.EntityID, payload, formatTime(change.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert pending change: %w", err)
	}
	return nil
}

// PendingChangeFor возвращает запись очереди для пары (entity, entityID)
// или (nil, nil). При аномальном наличии нескольких записей возвращается
// самая старая.
func (s *Store) PendingChangeFor(ctx context.Context, entity entities.EntityKind, entityID string) (*entities.PendingChange, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, kind, entity, entity_id, payload, created_at
        FROM pending_changes
        WHERE entity = ? AND entity_id = ?
        ORDER BY created_at ASC
        LIMIT 1`, string(entity), entityID)

	change, err := scanPendingChange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending change: %w", err)
	}
	return change, nil
}

// ListPendingChanges возвращает очередь в порядке возрастания времени создания.
func (s *Store) ListPendingChanges(ctx context.Context) ([]*entities.PendingChange, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, kind, entity, entity_id, payload, created_at
        FROM pending_changes
        ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pending changes: %w", err)
	}
	defer rows.Close()

	changes := make([]*entities.PendingChange, 0)
	for rows.Next() {
		change, err := scanPendingChange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending change: %w", err)
		}
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending changes: %w", err)
	}
	return changes, nil
}

// DeletePendingChange удаляет запись очереди; отсутствие записи не ошибка.
func (s *Store) DeletePendingChange(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_changes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete pending change: %w", err)
	}
	return nil
}

// ClearPendingChanges очищает очередь целиком.
func (s *Store) ClearPendingChanges(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_changes`); err != nil {
		return fmt.Errorf("clear pending changes: %w", err)
	}
	return nil
}

func marshalPayload(p entities.Payload) (sql.NullString, error) {
	if p == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal payload: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func scanPendingChange(row rowScanner) (*entities.PendingChange, error) {
	var (
		change    entities.PendingChange
		kind      string
		entity    string
		payload   sql.NullString
		createdAt string
	)
	if err := row.Scan(&change.ID, &kind, &entity, &change.EntityID, &payload, &createdAt); err != nil {
		return nil, err
	}
	change.Kind = entities.ChangeKind(kind)
	change.Entity = entities.EntityKind(entity)

	if payload.Valid {
		if err := json.Unmarshal([]byte(payload.String), &change.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}

	var err error
	if change.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &change, nil
}
