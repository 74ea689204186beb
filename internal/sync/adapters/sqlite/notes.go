package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"notesync/internal/sync/domain/entities"
)

const upsertNoteSQL = `
INSERT INTO notes (id, folder_id, title, content, owner, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    folder_id  = excluded.folder_id,
    title      = excluded.title,
    content    = excluded.content,
    owner      = excluded.owner,
    created_at = excluded.created_at,
    updated_at = excluded.updated_at`

// PutNote выполняет upsert заметки по идентификатору.
func (s *Store) PutNote(ctx context.Context, note *entities.Note) error {
	_, err := s.db.ExecContext(ctx, upsertNoteSQL,
		note.ID, note.FolderID, note.Title, note.Content, note.Owner,
		formatTime(note.CreatedAt), formatTime(note.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put note: %w", err)
	}
	return nil
}

// PutNotes выполняет upsert набора заметок в одной транзакции.
func (s *Store) PutNotes(ctx context.Context, notes []*entities.Note) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put notes: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, note := range notes {
		if _, err := tx.ExecContext(ctx, upsertNoteSQL,
			note.ID, note.FolderID, note.Title, note.Content, note.Owner,
			formatTime(note.CreatedAt), formatTime(note.UpdatedAt)); err != nil {
			return fmt.Errorf("put note %s: %w", note.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put notes: %w", err)
	}
	return nil
}

// GetNote возвращает заметку по идентификатору или (nil, nil).
func (s *Store) GetNote(ctx context.Context, id string) (*entities.Note, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, folder_id, title, content, owner, created_at, updated_at
         FROM notes WHERE id = ?`, id)

	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

// ListNotes возвращает текущий снимок коллекции заметок.
// Порядок результата не определён.
func (s *Store) ListNotes(ctx context.Context) ([]*entities.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, folder_id, title, content, owner, created_at, updated_at FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*entities.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

// DeleteNote удаляет заметку; удаление отсутствующей записи не ошибка.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*entities.Note, error) {
	var (
		note               entities.Note
		folderID           sql.NullString
		createdAt, updated string
	)
	if err := row.Scan(&note.ID, &folderID, &note.Title, &note.Content,
		&note.Owner, &createdAt, &updated); err != nil {
		return nil, err
	}
	if folderID.Valid {
		note.FolderID = &folderID.String
	}

	var err error
	if note.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if note.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &note, nil
}
