// Package repositories определяет порт локального хранилища движка синхронизации.
package repositories

import (
	"context"

	"notesync/internal/sync/domain/entities"
)

// LocalStore - долговременное локальное хранилище коллекций заметок,
// папок и очереди отложенных изменений.
//
// Все записи являются идемпотентными upsert/delete по идентификатору
// сущности. Методы чтения возвращают (nil, nil) для отсутствующих
// записей; порядок ListNotes/ListFolders не определён. Хранилище
// никогда не выполняет сетевых вызовов.
type LocalStore interface {
	PutNote(ctx context.Context, note *entities.Note) error
	PutNotes(ctx context.Context, notes []*entities.Note) error
	GetNote(ctx context.Context, id string) (*entities.Note, error)
	ListNotes(ctx context.Context) ([]*entities.Note, error)
	DeleteNote(ctx context.Context, id string) error

	PutFolder(ctx context.Context, folder *entities.Folder) error
	PutFolders(ctx context.Context, folders []*entities.Folder) error
	GetFolder(ctx context.Context, id string) (*entities.Folder, error)
	ListFolders(ctx context.Context) ([]*entities.Folder, error)
	DeleteFolder(ctx context.Context, id string) error

	// UpsertPendingChange вставляет запись очереди или заменяет
	// существующую с тем же внутренним идентификатором.
	UpsertPendingChange(ctx context.Context, change *entities.PendingChange) error
	// PendingChangeFor возвращает запись очереди для пары
	// (entity, entityID) или (nil, nil).
	PendingChangeFor(ctx context.Context, entity entities.EntityKind, entityID string) (*entities.PendingChange, error)
	// ListPendingChanges возвращает очередь в порядке возрастания
	// времени создания.
	ListPendingChanges(ctx context.Context) ([]*entities.PendingChange, error)
	DeletePendingChange(ctx context.Context, id string) error
	ClearPendingChanges(ctx context.Context) error

	// ClearAll атомарно очищает заметки, папки и очередь (выход из
	// учётной записи).
	ClearAll(ctx context.Context) error
}
