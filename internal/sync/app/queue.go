package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"notesync/internal/sync/domain/entities"
	"notesync/internal/sync/ports/repositories"
	"notesync/pkg/logger"
)

// Константы для логирования очереди.
const (
	logChangeQueued     = "pending change queued"
	logChangeCoalesced  = "pending change coalesced"
	logChangeAnnihilate = "create followed by delete, nothing to queue"
	logDeleteAnomaly    = "change arrived for entity with queued delete"
	logChangeConflict   = "unexpected pending change combination"
)

// ChangeQueue коалесцирует отложенные изменения поверх локального
// хранилища: на каждую сущность в очереди остаётся не более одной записи.
type ChangeQueue struct {
	store repositories.LocalStore
}

// NewChangeQueue создает очередь отложенных изменений.
func NewChangeQueue(store repositories.LocalStore) *ChangeQueue {
	return &ChangeQueue{store: store}
}

// Add записывает операцию в очередь, сворачивая её с уже существующей
// записью той же сущности:
//
//	нет записи              -> вставить как есть
//	create + create         -> create с объединённым payload
//	create + update         -> create с объединённым payload
//	create + delete         -> убрать обе (сервер сущности не видел)
//	update + update         -> update с объединённым payload
//	update + delete         -> delete без payload
//	delete + что угодно     -> аномалия: залогировать и добавить новой записью
func (q *ChangeQueue) Add(ctx context.Context, kind entities.ChangeKind, entity entities.EntityKind, entityID string, payload entities.Payload) error {
	log := logger.Log(ctx).With(
		zap.String("entity", string(entity)),
		zap.String("entity_id", entityID),
		zap.String("kind", string(kind)))

	existing, err := q.store.PendingChangeFor(ctx, entity, entityID)
	if err != nil {
		return fmt.Errorf("lookup pending change: %w", err)
	}

	if existing == nil {
		change := entities.NewPendingChange(kind, entity, entityID, payload)
		if err := q.store.UpsertPendingChange(ctx, change); err != nil {
			return fmt.Errorf("queue pending change: %w", err)
		}
		log.Debug(ctx, logChangeQueued)
		return nil
	}

	switch {
	case existing.Kind == entities.ChangeCreate && (kind == entities.ChangeCreate || kind == entities.ChangeUpdate):
		// Повторное редактирование несинхронизированной сущности приходит
		// снова как create; сервер по-прежнему должен увидеть один create.
		existing.Payload = existing.Payload.Merge(payload)
	case existing.Kind == entities.ChangeCreate && kind == entities.ChangeDelete:
		if err := q.store.DeletePendingChange(ctx, existing.ID); err != nil {
			return fmt.Errorf("drop pending create: %w", err)
		}
		log.Debug(ctx, logChangeAnnihilate)
		return nil
	case existing.Kind == entities.ChangeUpdate && kind == entities.ChangeUpdate:
		existing.Payload = existing.Payload.Merge(payload)
	case existing.Kind == entities.ChangeUpdate && kind == entities.ChangeDelete:
		existing.Kind = entities.ChangeDelete
		existing.Payload = nil
	default:
		// Недостижимо при нормальном потоке UI; поведение не определено,
		// поэтому ничего не угадываем.
		msg := logChangeConflict
		if existing.Kind == entities.ChangeDelete {
			msg = logDeleteAnomaly
		}
		log.Warn(ctx, msg, zap.String("existing_kind", string(existing.Kind)))
		change := entities.NewPendingChange(kind, entity, entityID, payload)
		if err := q.store.UpsertPendingChange(ctx, change); err != nil {
			return fmt.Errorf("queue anomalous change: %w", err)
		}
		return nil
	}

	if err := q.store.UpsertPendingChange(ctx, existing); err != nil {
		return fmt.Errorf("update pending change: %w", err)
	}
	log.Debug(ctx, logChangeCoalesced, zap.String("coalesced_kind", string(existing.Kind)))
	return nil
}

// List возвращает очередь в порядке возрастания времени создания.
func (q *ChangeQueue) List(ctx context.Context) ([]*entities.PendingChange, error) {
	changes, err := q.store.ListPendingChanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending changes: %w", err)
	}
	return changes, nil
}

// Remove удаляет запись очереди по внутреннему идентификатору.
func (q *ChangeQueue) Remove(ctx context.Context, id string) error {
	if err := q.store.DeletePendingChange(ctx, id); err != nil {
		return fmt.Errorf("remove pending change: %w", err)
	}
	return nil
}
