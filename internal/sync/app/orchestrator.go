package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"notesync/internal/sync/domain/entities"
	"notesync/internal/sync/ports/repositories"
	"notesync/internal/sync/ports/services"
	"notesync/internal/sync/resilience"
	"notesync/pkg/logger"
)

// DefaultDebounceDelay - задержка отложенной удалённой записи по умолчанию.
const DefaultDebounceDelay = 5 * time.Second

// Константы для логирования оркестратора.
const (
	logLocalSaveFailed   = "local save failed"
	logRemotePushSkipped = "remote push skipped, queueing change"
	logRemotePushFailed  = "remote push failed, queueing change"
	logRemotePushDone    = "remote push confirmed"
	logRemoteDeleteDone  = "remote delete confirmed"
	logReplayStarted     = "queue replay started"
	logReplayBusy        = "queue replay already running"
	logReplayFinished    = "queue replay finished"
	logReplayDiscarded   = "discarding permanently failed change"
	logReplayKept        = "transient replay failure, change kept"
	logBecameOnline      = "device became online"
	logBecameOffline     = "device became offline"
	logSignOut           = "clearing local state on sign-out"
)

// entityKey однозначно идентифицирует сущность внутри оркестратора.
type entityKey struct {
	entity entities.EntityKind
	id     string
}

func (k entityKey) String() string {
	return string(k.entity) + ":" + k.id
}

// ReplayReport - итог одного прогона очереди отложенных изменений.
type ReplayReport struct {
	// Ran равно false, если прогон не состоялся из-за уже идущего.
	Ran bool
	// Replayed - количество подтверждённых сервером записей.
	Replayed int
	// Failed - количество временно неуспешных записей, оставленных в очереди.
	Failed int
	// Discarded - количество записей, отброшенных как безнадёжные.
	Discarded int
}

// Config содержит настройки оркестратора.
type Config struct {
	DebounceDelay time.Duration
	Retry         resilience.RetryConfig
	Breaker       resilience.CircuitBreakerConfig
}

// DefaultConfig возвращает настройки оркестратора по умолчанию.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: DefaultDebounceDelay,
		Retry:         resilience.DefaultRetryConfig(),
		Breaker:       resilience.DefaultCircuitBreakerConfig(),
	}
}

// Orchestrator управляет конвейером сохранения: локальная запись,
// отложенная удалённая запись, очередь при отказах и её повтор при
// восстановлении связности. Все зависимости передаются явно; скрытого
// глобального состояния нет.
type Orchestrator struct {
	store    repositories.LocalStore
	remote   services.RemoteAPI
	conn     services.Connectivity
	queue    *ChangeQueue
	debounce *Debouncer
	retry    *resilience.Retry
	breaker  *resilience.CircuitBreaker

	statusMu sync.RWMutex
	statuses map[entityKey]entities.SyncStatus

	pushMu    sync.Mutex
	pushLocks map[entityKey]*sync.Mutex

	replayMu sync.Mutex

	now func() time.Time
}

// NewOrchestrator создает оркестратор синхронизации.
func NewOrchestrator(store repositories.LocalStore, remote services.RemoteAPI, conn services.Connectivity, cfg Config) *Orchestrator {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}
	return &Orchestrator{
		store:     store,
		remote:    remote,
		conn:      conn,
		queue:     NewChangeQueue(store),
		debounce:  NewDebouncer(cfg.DebounceDelay),
		retry:     resilience.NewRetry("remote-push", cfg.Retry),
		breaker:   resilience.NewCircuitBreaker(cfg.Breaker),
		statuses:  make(map[entityKey]entities.SyncStatus),
		pushLocks: make(map[entityKey]*sync.Mutex),
		now:       time.Now,
	}
}

// SaveNote выполняет конвейер сохранения заметки. Оптимистичное
// обновление в памяти уже применено вызывающей стороной; здесь
// происходит локальная запись и планирование удалённой. Отказы не
// возвращаются, а отражаются в статусе синхронизации.
func (o *Orchestrator) SaveNote(ctx context.Context, note *entities.Note) {
	note.UpdatedAt = o.now().UTC()
	key := entityKey{entities.EntityNote, note.ID}

	if err := o.store.PutNote(ctx, note); err != nil {
		logger.Log(ctx).Error(ctx, logLocalSaveFailed,
			zap.String("note_id", note.ID), zap.Error(err))
		o.setLocal(key, entities.LocalFailed)
	} else {
		o.setLocal(key, entities.LocalSaved)
	}

	o.markUnsynced(key)

	pushCtx := context.WithoutCancel(ctx)
	snapshot := *note
	o.debounce.Schedule(key.String(), func() {
		o.pushNote(pushCtx, &snapshot)
	})
}

// SaveFolder выполняет конвейер сохранения папки.
func (o *Orchestrator) SaveFolder(ctx context.Context, folder *entities.Folder) {
	folder.UpdatedAt = o.now().UTC()
	key := entityKey{entities.EntityFolder, folder.ID}

	if err := o.store.PutFolder(ctx, folder); err != nil {
		logger.Log(ctx).Error(ctx, logLocalSaveFailed,
			zap.String("folder_id", folder.ID), zap.Error(err))
		o.setLocal(key, entities.LocalFailed)
	} else {
		o.setLocal(key, entities.LocalSaved)
	}

	o.markUnsynced(key)

	pushCtx := context.WithoutCancel(ctx)
	snapshot := *folder
	o.debounce.Schedule(key.String(), func() {
		o.pushFolder(pushCtx, &snapshot)
	})
}

// DeleteNote удаляет заметку локально и удалённо. Запланированная
// отложенная запись этой заметки отменяется.
func (o *Orchestrator) DeleteNote(ctx context.Context, id string) {
	key := entityKey{entities.EntityNote, id}
	o.debounce.Cancel(key.String())

	if err := o.store.DeleteNote(ctx, id); err != nil {
		logger.Log(ctx).Error(ctx, logLocalSaveFailed,
			zap.String("note_id", id), zap.Error(err))
	}

	o.deleteRemote(ctx, key, func(ctx context.Context) error {
		return o.remote.DeleteNote(ctx, id)
	})
}

// DeleteFolder удаляет папку локально и удалённо.
func (o *Orchestrator) DeleteFolder(ctx context.Context, id string) {
	key := entityKey{entities.EntityFolder, id}
	o.debounce.Cancel(key.String())

	if err := o.store.DeleteFolder(ctx, id); err != nil {
		logger.Log(ctx).Error(ctx, logLocalSaveFailed,
			zap.String("folder_id", id), zap.Error(err))
	}

	o.deleteRemote(ctx, key, func(ctx context.Context) error {
		return o.remote.DeleteFolder(ctx, id)
	})
}

// Flush немедленно выполняет отложенную удалённую запись сущности,
// не дожидаясь таймера. Возвращает false, если записи не запланировано.
// Если запись уже в полёте, Flush дождётся её завершения, а не породит
// вторую.
func (o *Orchestrator) Flush(entity entities.EntityKind, id string) bool {
	return o.debounce.Flush(entityKey{entity, id}.String())
}

// Status возвращает текущий статус синхронизации сущности. Для
// неизвестной сущности возвращается спокойное состояние saved/synced.
func (o *Orchestrator) Status(entity entities.EntityKind, id string) entities.SyncStatus {
	o.statusMu.RLock()
	defer o.statusMu.RUnlock()

	if status, ok := o.statuses[entityKey{entity, id}]; ok {
		return status
	}
	return entities.SyncStatus{Local: entities.LocalSaved, Remote: entities.RemoteSynced}
}

// SignOut отменяет запланированные записи и атомарно очищает локальное
// хранилище вместе с очередью.
func (o *Orchestrator) SignOut(ctx context.Context) error {
	logger.Log(ctx).Info(ctx, logSignOut)
	o.debounce.Stop()

	o.statusMu.Lock()
	o.statuses = make(map[entityKey]entities.SyncStatus)
	o.statusMu.Unlock()

	if err := o.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear local state: %w", err)
	}
	return nil
}

// Run потребляет события связности до отмены контекста: переход в
// онлайн запускает повтор очереди. Предназначен для запуска в отдельной
// горутине.
func (o *Orchestrator) Run(ctx context.Context) {
	log := logger.Log(ctx)
	for {
		select {
		case <-ctx.Done():
			o.debounce.Stop()
			return
		case online, ok := <-o.conn.Events():
			if !ok {
				return
			}
			if !online {
				log.Info(ctx, logBecameOffline)
				continue
			}
			log.Info(ctx, logBecameOnline)
			if _, err := o.Replay(ctx); err != nil {
				log.Error(ctx, "queue replay error", zap.Error(err))
			}
		}
	}
}

// pushNote - отложенная удалённая запись заметки.
func (o *Orchestrator) pushNote(ctx context.Context, note *entities.Note) {
	key := entityKey{entities.EntityNote, note.ID}
	lock := o.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	log := logger.Log(ctx).With(zap.String("note_id", note.ID))

	if !o.conn.Online() || !o.breaker.Allow() {
		log.Debug(ctx, logRemotePushSkipped)
		o.enqueueUpsert(ctx, entities.EntityNote, note.ID, note.Payload())
		o.setRemote(key, entities.RemoteFailed)
		return
	}

	o.markSyncing(key)

	var saved *entities.Note
	err := o.retry.Execute(ctx, func() error {
		var opErr error
		if entities.IsTempID(note.ID) {
			saved, opErr = o.remote.CreateNote(ctx, note.Payload())
		} else {
			saved, opErr = o.remote.UpdateNote(ctx, note.ID, note.Payload())
		}
		return opErr
	})
	o.clearInFlight(key)

	if err != nil {
		o.breaker.Failure()
		log.Warn(ctx, logRemotePushFailed, zap.Error(err))
		o.enqueueUpsert(ctx, entities.EntityNote, note.ID, note.Payload())
		o.setRemote(key, entities.RemoteFailed)
		return
	}
	o.breaker.Success()

	if err := o.adoptNote(ctx, note.ID, saved); err != nil {
		log.Error(ctx, logLocalSaveFailed, zap.Error(err))
		o.setLocal(key, entities.LocalFailed)
	}
	if saved.ID != note.ID {
		o.moveStatus(key, entityKey{entities.EntityNote, saved.ID})
		key = entityKey{entities.EntityNote, saved.ID}
	}
	o.setRemote(key, entities.RemoteSynced)
	log.Debug(ctx, logRemotePushDone, zap.String("server_id", saved.ID))
}

// pushFolder - отложенная удалённая запись папки.
func (o *Orchestrator) pushFolder(ctx context.Context, folder *entities.Folder) {
	key := entityKey{entities.EntityFolder, folder.ID}
	lock := o.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	log := logger.Log(ctx).With(zap.String("folder_id", folder.ID))

	if !o.conn.Online() || !o.breaker.Allow() {
		log.Debug(ctx, logRemotePushSkipped)
		o.enqueueUpsert(ctx, entities.EntityFolder, folder.ID, folder.Payload())
		o.setRemote(key, entities.RemoteFailed)
		return
	}

	o.markSyncing(key)

	var saved *entities.Folder
	err := o.retry.Execute(ctx, func() error {
		var opErr error
		if entities.IsTempID(folder.ID) {
			saved, opErr = o.remote.CreateFolder(ctx, folder.Payload())
		} else {
			saved, opErr = o.remote.UpdateFolder(ctx, folder.ID, folder.Payload())
		}
		return opErr
	})
	o.clearInFlight(key)

	if err != nil {
		o.breaker.Failure()
		log.Warn(ctx, logRemotePushFailed, zap.Error(err))
		o.enqueueUpsert(ctx, entities.EntityFolder, folder.ID, folder.Payload())
		o.setRemote(key, entities.RemoteFailed)
		return
	}
	o.breaker.Success()

	if err := o.adoptFolder(ctx, folder.ID, saved); err != nil {
		log.Error(ctx, logLocalSaveFailed, zap.Error(err))
		o.setLocal(key, entities.LocalFailed)
	}
	if saved.ID != folder.ID {
		o.moveStatus(key, entityKey{entities.EntityFolder, saved.ID})
		key = entityKey{entities.EntityFolder, saved.ID}
	}
	o.setRemote(key, entities.RemoteSynced)
	log.Debug(ctx, logRemotePushDone, zap.String("server_id", saved.ID))
}

// deleteRemote - общая часть удалённого удаления для заметок и папок.
func (o *Orchestrator) deleteRemote(ctx context.Context, key entityKey, call func(context.Context) error) {
	log := logger.Log(ctx).With(zap.String("entity", key.String()))

	// Сущность с временным идентификатором сервера не достигла:
	// постановка delete в очередь аннигилирует отложенный create.
	if entities.IsTempID(key.id) {
		if err := o.queue.Add(ctx, entities.ChangeDelete, key.entity, key.id, nil); err != nil {
			log.Error(ctx, "failed to queue delete", zap.Error(err))
		}
		o.dropStatus(key)
		return
	}

	if !o.conn.Online() || !o.breaker.Allow() {
		log.Debug(ctx, logRemotePushSkipped)
		if err := o.queue.Add(ctx, entities.ChangeDelete, key.entity, key.id, nil); err != nil {
			log.Error(ctx, "failed to queue delete", zap.Error(err))
		}
		o.setRemote(key, entities.RemoteFailed)
		return
	}

	o.markSyncing(key)
	err := o.retry.Execute(ctx, func() error { return call(ctx) })
	o.clearInFlight(key)

	if err != nil {
		o.breaker.Failure()
		log.Warn(ctx, logRemotePushFailed, zap.Error(err))
		if err := o.queue.Add(ctx, entities.ChangeDelete, key.entity, key.id, nil); err != nil {
			log.Error(ctx, "failed to queue delete", zap.Error(err))
		}
		o.setRemote(key, entities.RemoteFailed)
		return
	}
	o.breaker.Success()
	o.dropStatus(key)
	log.Debug(ctx, logRemoteDeleteDone)
}

// enqueueUpsert ставит в очередь create или update в зависимости от
// того, подтверждён ли идентификатор сервером.
func (o *Orchestrator) enqueueUpsert(ctx context.Context, entity entities.EntityKind, id string, payload entities.Payload) {
	kind := entities.ChangeUpdate
	if entities.IsTempID(id) {
		kind = entities.ChangeCreate
	}
	if err := o.queue.Add(ctx, kind, entity, id, payload); err != nil {
		logger.Log(ctx).Error(ctx, "failed to queue change",
			zap.String("entity_id", id), zap.Error(err))
	}
}

// adoptNote сохраняет авторитетную серверную версию заметки, заменяя
// временную локальную запись при необходимости.
func (o *Orchestrator) adoptNote(ctx context.Context, localID string, saved *entities.Note) error {
	if saved.ID != localID {
		if err := o.store.DeleteNote(ctx, localID); err != nil {
			return fmt.Errorf("drop temp note: %w", err)
		}
	}
	if err := o.store.PutNote(ctx, saved); err != nil {
		return fmt.Errorf("persist server note: %w", err)
	}
	return nil
}

// adoptFolder сохраняет авторитетную серверную версию папки.
func (o *Orchestrator) adoptFolder(ctx context.Context, localID string, saved *entities.Folder) error {
	if saved.ID != localID {
		if err := o.store.DeleteFolder(ctx, localID); err != nil {
			return fmt.Errorf("drop temp folder: %w", err)
		}
	}
	if err := o.store.PutFolder(ctx, saved); err != nil {
		return fmt.Errorf("persist server folder: %w", err)
	}
	return nil
}

func (o *Orchestrator) lockFor(key entityKey) *sync.Mutex {
	o.pushMu.Lock()
	defer o.pushMu.Unlock()

	lock, ok := o.pushLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		o.pushLocks[key] = lock
	}
	return lock
}

func (o *Orchestrator) setLocal(key entityKey, state entities.LocalState) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	status := o.statuses[key]
	status.Local = state
	o.statuses[key] = status
}

func (o *Orchestrator) setRemote(key entityKey, state entities.RemoteState) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	status := o.statuses[key]
	status.Remote = state
	status.InFlight = state == entities.RemoteSyncing
	o.statuses[key] = status
}

func (o *Orchestrator) markSyncing(key entityKey) {
	o.setRemote(key, entities.RemoteSyncing)
}

// markUnsynced переводит сущность в unsynced, не трогая идущую попытку:
// активный syncing остаётся видимым до её завершения.
func (o *Orchestrator) markUnsynced(key entityKey) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	status := o.statuses[key]
	if status.Remote == entities.RemoteSyncing {
		return
	}
	status.Remote = entities.RemoteUnsynced
	status.InFlight = false
	o.statuses[key] = status
}

func (o *Orchestrator) clearInFlight(key entityKey) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	status := o.statuses[key]
	status.InFlight = false
	o.statuses[key] = status
}

func (o *Orchestrator) moveStatus(from, to entityKey) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	if status, ok := o.statuses[from]; ok {
		delete(o.statuses, from)
		o.statuses[to] = status
	}
}

func (o *Orchestrator) dropStatus(key entityKey) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	delete(o.statuses, key)
}
