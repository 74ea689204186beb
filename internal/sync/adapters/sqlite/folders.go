package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"notesync/internal/sync/domain/entities"
)

const upsertFolderSQL = `
INSERT INTO folders (id, name, owner, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name       = excluded.name,
    owner      = excluded.owner,
    created_at = excluded.created_at,
    updated_at = excluded.updated_at`

// PutFolder выполняет upsert папки по идентификатору.
func (s *Store) PutFolder(ctx context.Context, folder *entities.Folder) error {
	_, err := s.db.ExecContext(ctx, upsertFolderSQL,
		folder.ID, folder.Name, folder.Owner,
		formatTime(folder.CreatedAt), formatTime(folder.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put folder: %w", err)
	}
	return nil
}

// PutFolders выполняет upsert набора папок в одной транзакции.
func (s *Store) PutFolders(ctx context.Context, folders []*entities.Folder) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put folders: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, folder := range folders {
		if _, err := tx.ExecContext(ctx, upsertFolderSQL,
			folder.ID, folder.Name, folder.Owner,
			formatTime(folder.CreatedAt), formatTime(folder.UpdatedAt)); err != nil {
			return fmt.Errorf("put folder %s: %w", folder.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put folders: %w", err)
	}
	return nil
}

// GetFolder возвращает папку по идентификатору или (nil, nil).
func (s *Store) GetFolder(ctx context.Context, id string) (*entities.Folder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner, created_at, updated_at FROM folders WHERE id = ?`, id)

	folder, err := scanFolder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return folder, nil
}

// ListFolders возвращает текущий снимок коллекции папок.
func (s *Store) ListFolders(ctx context.Context) ([]*entities.Folder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, owner, created_at, updated_at FROM folders`)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := make([]*entities.Folder, 0)
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}
	return folders, nil
}

// DeleteFolder удаляет папку; удаление отсутствующей записи не ошибка.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	return nil
}

func scanFolder(row rowScanner) (*entities.Folder, error) {
	var (
		folder             entities.Folder
		createdAt, updated string
	)
	if err := row.Scan(&folder.ID, &folder.Name, &folder.Owner, &createdAt, &updated); err != nil {
		return nil, err
	}

	var err error
	if folder.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if folder.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &folder, nil
}
