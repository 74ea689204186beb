package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"notesync/internal/sync/domain/entities"
	"notesync/pkg/logger"
)

// Константы для логирования обновления коллекций.
const (
	logRefreshMerged = "collections merged"
)

// RefreshNotes загружает удалённый снимок коллекции заметок, сводит
// его с локальным по правилу last-write-wins и сохраняет результат
// локально. Возвращается авторитетная коллекция.
func (o *Orchestrator) RefreshNotes(ctx context.Context) ([]*entities.Note, error) {
	remote, err := o.remote.ListNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch remote notes: %w", err)
	}

	local, err := o.store.ListNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load local notes: %w", err)
	}

	merged := Merge(local, remote)

	if err := o.store.PutNotes(ctx, merged); err != nil {
		return nil, fmt.Errorf("persist merged notes: %w", err)
	}
	// Стабильные идентификаторы, выпавшие из результата, были удалены
	// на сервере; вычищаем их из локального снимка.
	kept := make(map[string]struct{}, len(merged))
	for _, note := range merged {
		kept[note.ID] = struct{}{}
	}
	for _, note := range local {
		if _, ok := kept[note.ID]; ok {
			continue
		}
		if err := o.store.DeleteNote(ctx, note.ID); err != nil {
			return nil, fmt.Errorf("drop remotely deleted note: %w", err)
		}
		o.dropStatus(entityKey{entities.EntityNote, note.ID})
	}

	logger.Log(ctx).Debug(ctx, logRefreshMerged,
		zap.String("entity", string(entities.EntityNote)),
		zap.Int("local", len(local)),
		zap.Int("remote", len(remote)),
		zap.Int("merged", len(merged)))
	return merged, nil
}

// RefreshFolders делает для папок то же, что RefreshNotes для заметок.
func (o *Orchestrator) RefreshFolders(ctx context.Context) ([]*entities.Folder, error) {
	remote, err := o.remote.ListFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch remote folders: %w", err)
	}

	local, err := o.store.ListFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load local folders: %w", err)
	}

	merged := Merge(local, remote)

	if err := o.store.PutFolders(ctx, merged); err != nil {
		return nil, fmt.Errorf("persist merged folders: %w", err)
	}
	kept := make(map[string]struct{}, len(merged))
	for _, folder := range merged {
		kept[folder.ID] = struct{}{}
	}
	for _, folder := range local {
		if _, ok := kept[folder.ID]; ok {
			continue
		}
		if err := o.store.DeleteFolder(ctx, folder.ID); err != nil {
			return nil, fmt.Errorf("drop remotely deleted folder: %w", err)
		}
		o.dropStatus(entityKey{entities.EntityFolder, folder.ID})
	}

	logger.Log(ctx).Debug(ctx, logRefreshMerged,
		zap.String("entity", string(entities.EntityFolder)),
		zap.Int("local", len(local)),
		zap.Int("remote", len(remote)),
		zap.Int("merged", len(merged)))
	return merged, nil
}
