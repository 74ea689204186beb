package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"notesync/internal/sync/domain/entities"
	"notesync/internal/sync/ports/services"
	"notesync/pkg/logger"
)

// Replay последовательно повторяет очередь отложенных изменений,
// начиная с самых старых. Одновременно выполняется не более одного
// прогона; параллельный вызов возвращает отчёт с Ran=false.
//
// Успешно подтверждённая запись удаляется из очереди. Временный отказ
// (сеть, таймаут, 408, 429, 5xx) оставляет запись для следующего
// прогона. Окончательный отказ (прочие 4xx) отбрасывает запись: её
// повтор детерминированно провалился бы снова.
func (o *Orchestrator) Replay(ctx context.Context) (ReplayReport, error) {
	log := logger.Log(ctx)

	if !o.replayMu.TryLock() {
		log.Debug(ctx, logReplayBusy)
		return ReplayReport{Ran: false}, nil
	}
	defer o.replayMu.Unlock()

	changes, err := o.queue.List(ctx)
	if err != nil {
		return ReplayReport{Ran: true}, fmt.Errorf("load pending queue: %w", err)
	}

	log.Info(ctx, logReplayStarted, zap.Int("pending", len(changes)))
	report := ReplayReport{Ran: true}

	for _, change := range changes {
		key := entityKey{change.Entity, change.EntityID}

		if err := o.replayChange(ctx, change); err != nil {
			if services.IsPermanent(err) {
				log.Warn(ctx, logReplayDiscarded,
					zap.String("change_id", change.ID),
					zap.String("entity", key.String()),
					zap.Error(err))
				if rmErr := o.queue.Remove(ctx, change.ID); rmErr != nil {
					return report, fmt.Errorf("discard pending change: %w", rmErr)
				}
				o.dropStatus(key)
				report.Discarded++
				continue
			}

			o.breaker.Failure()
			log.Debug(ctx, logReplayKept,
				zap.String("change_id", change.ID),
				zap.String("entity", key.String()),
				zap.Error(err))
			o.setRemote(key, entities.RemoteFailed)
			report.Failed++
			continue
		}

		o.breaker.Success()
		if err := o.queue.Remove(ctx, change.ID); err != nil {
			return report, fmt.Errorf("remove replayed change: %w", err)
		}
		report.Replayed++
	}

	log.Info(ctx, logReplayFinished,
		zap.Int("replayed", report.Replayed),
		zap.Int("failed", report.Failed),
		zap.Int("discarded", report.Discarded))
	return report, nil
}

// replayChange выполняет один удалённый вызов для записи очереди и
// фиксирует его результат в локальном хранилище и статусах.
func (o *Orchestrator) replayChange(ctx context.Context, change *entities.PendingChange) error {
	key := entityKey{change.Entity, change.EntityID}

	switch change.Entity {
	case entities.EntityNote:
		return o.replayNoteChange(ctx, key, change)
	case entities.EntityFolder:
		return o.replayFolderChange(ctx, key, change)
	}
	return fmt.Errorf("unknown entity kind %q", change.Entity)
}

func (o *Orchestrator) replayNoteChange(ctx context.Context, key entityKey, change *entities.PendingChange) error {
	switch change.Kind {
	case entities.ChangeCreate:
		saved, err := o.remote.CreateNote(ctx, change.Payload)
		if err != nil {
			return err
		}
		if err := o.adoptNote(ctx, change.EntityID, saved); err != nil {
			return err
		}
		o.moveStatus(key, entityKey{entities.EntityNote, saved.ID})
		o.setRemote(entityKey{entities.EntityNote, saved.ID}, entities.RemoteSynced)
		return nil

	case entities.ChangeUpdate:
		saved, err := o.remote.UpdateNote(ctx, change.EntityID, change.Payload)
		if err != nil {
			return err
		}
		if err := o.adoptNote(ctx, change.EntityID, saved); err != nil {
			return err
		}
		o.setRemote(key, entities.RemoteSynced)
		return nil

	case entities.ChangeDelete:
		if err := o.remote.DeleteNote(ctx, change.EntityID); err != nil {
			return err
		}
		o.dropStatus(key)
		return nil
	}
	return fmt.Errorf("unknown change kind %q", change.Kind)
}

func (o *Orchestrator) replayFolderChange(ctx context.Context, key entityKey, change *entities.PendingChange) error {
	switch change.Kind {
	case entities.ChangeCreate:
		saved, err := o.remote.CreateFolder(ctx, change.Payload)
		if err != nil {
			return err
		}
		if err := o.adoptFolder(ctx, change.EntityID, saved); err != nil {
			return err
		}
		o.moveStatus(key, entityKey{entities.EntityFolder, saved.ID})
		o.setRemote(entityKey{entities.EntityFolder, saved.ID}, entities.RemoteSynced)
		return nil

	case entities.ChangeUpdate:
		saved, err := o.remote.UpdateFolder(ctx, change.EntityID, change.Payload)
		if err != nil {
			return err
		}
		if err := o.adoptFolder(ctx, change.EntityID, saved); err != nil {
			return err
		}
		o.setRemote(key, entities.RemoteSynced)
		return nil

	case entities.ChangeDelete:
		if err := o.remote.DeleteFolder(ctx, change.EntityID); err != nil {
			return err
		}
		o.dropStatus(key)
		return nil
	}
	return fmt.Errorf("unknown change kind %q", change.Kind)
}
