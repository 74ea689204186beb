// Package services определяет порты внешних коллабораторов движка
// синхронизации: удалённый API и сигнал связности.
package services

import (
	"context"

	"notesync/internal/sync/domain/entities"
)

// RemoteAPI - удалённый сервис заметок, рассматриваемый только на границе.
// Любая ошибка с кодом состояния возвращается как *APIError.
type RemoteAPI interface {
	CreateNote(ctx context.Context, payload entities.Payload) (*entities.Note, error)
	UpdateNote(ctx context.Context, id string, payload entities.Payload) (*entities.Note, error)
	DeleteNote(ctx context.Context, id string) error
	ListNotes(ctx context.Context) ([]*entities.Note, error)

	CreateFolder(ctx context.Context, payload entities.Payload) (*entities.Folder, error)
	UpdateFolder(ctx context.Context, id string, payload entities.Payload) (*entities.Folder, error)
	DeleteFolder(ctx context.Context, id string) error
	ListFolders(ctx context.Context) ([]*entities.Folder, error)
}
