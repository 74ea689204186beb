package app_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"notesync/internal/sync/app"
	"notesync/internal/sync/domain/entities"
	"notesync/internal/sync/ports/services"
	"notesync/internal/sync/resilience"
)

var errNetwork = errors.New("connection refused")

type mockRemoteAPI struct {
	mock.Mock
}

func (m *mockRemoteAPI) CreateNote(ctx context.Context, payload entities.Payload) (*entities.Note, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Note), args.Error(1)
}

func (m *mockRemoteAPI) UpdateNote(ctx context.Context, id string, payload entities.Payload) (*entities.Note, error) {
	args := m.Called(ctx, id, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Note), args.Error(1)
}

func (m *mockRemoteAPI) DeleteNote(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRemoteAPI) ListNotes(ctx context.Context) ([]*entities.Note, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Note), args.Error(1)
}

func (m *mockRemoteAPI) CreateFolder(ctx context.Context, payload entities.Payload) (*entities.Folder, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Folder), args.Error(1)
}

func (m *mockRemoteAPI) UpdateFolder(ctx context.Context, id string, payload entities.Payload) (*entities.Folder, error) {
	args := m.Called(ctx, id, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Folder), args.Error(1)
}

func (m *mockRemoteAPI) DeleteFolder(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRemoteAPI) ListFolders(ctx context.Context) ([]*entities.Folder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Folder), args.Error(1)
}

type fakeConn struct {
	online atomic.Bool
	events chan bool
}

func newFakeConn(online bool) *fakeConn {
	c := &fakeConn{events: make(chan bool, 8)}
	c.online.Store(online)
	return c
}

func (c *fakeConn) Online() bool        { return c.online.Load() }
func (c *fakeConn) Events() <-chan bool { return c.events }

func (c *fakeConn) set(online bool) {
	if c.online.Swap(online) != online {
		c.events <- online
	}
}

func newTestOrchestrator(store *memStore, remote services.RemoteAPI, conn services.Connectivity) *app.Orchestrator {
	return app.NewOrchestrator(store, remote, conn, app.Config{
		DebounceDelay: time.Hour,
		Retry:         resilience.RetryConfig{MaxAttempts: 1},
		Breaker: resilience.CircuitBreakerConfig{
			ErrorThreshold:   100,
			Timeout:          time.Minute,
			SuccessThreshold: 1,
		},
	})
}

func serverNote(id, title string) *entities.Note {
	now := time.Now().UTC()
	return &entities.Note{ID: id, Title: title, Owner: "user-1", CreatedAt: now, UpdatedAt: now}
}

func TestSaveNoteOfflineQueuesUpdate(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(false)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	note := serverNote("5", "Edited offline")
	o.SaveNote(ctx, note)
	require.True(t, o.Flush(entities.EntityNote, "5"))

	status := o.Status(entities.EntityNote, "5")
	assert.Equal(t, entities.LocalSaved, status.Local)
	assert.Equal(t, entities.RemoteFailed, status.Remote)

	changes, err := store.ListPendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, entities.ChangeUpdate, changes[0].Kind)
	assert.Equal(t, "5", changes[0].EntityID)

	stored, err := store.GetNote(ctx, "5")
	require.NoError(t, err)
	require.NotNil(t, stored, "local write must not be blocked by being offline")
	remote.AssertNotCalled(t, "UpdateNote", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveNoteOnlinePushes(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(true)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	confirmed := serverNote("5", "Edited")
	remote.On("UpdateNote", mock.Anything, "5", mock.Anything).Return(confirmed, nil)

	o.SaveNote(ctx, serverNote("5", "Edited"))
	require.True(t, o.Flush(entities.EntityNote, "5"))

	status := o.Status(entities.EntityNote, "5")
	assert.Equal(t, entities.RemoteSynced, status.Remote)
	assert.False(t, status.InFlight)

	changes, err := store.ListPendingChanges(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes)

	stored, err := store.GetNote(ctx, "5")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, confirmed.UpdatedAt, stored.UpdatedAt, "server timestamp is authoritative")
	remote.AssertExpectations(t)
}

func TestSaveNewNoteAdoptsServerID(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(true)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	remote.On("CreateNote", mock.Anything, mock.Anything).Return(serverNote("srv-1", "Draft"), nil)

	note := entities.NewNote("user-1", "Draft", "body", nil)
	tempID := note.ID
	o.SaveNote(ctx, note)
	require.True(t, o.Flush(entities.EntityNote, tempID))

	gone, err := store.GetNote(ctx, tempID)
	require.NoError(t, err)
	assert.Nil(t, gone, "temporary row is replaced, never reused")

	adopted, err := store.GetNote(ctx, "srv-1")
	require.NoError(t, err)
	require.NotNil(t, adopted)

	status := o.Status(entities.EntityNote, "srv-1")
	assert.Equal(t, entities.RemoteSynced, status.Remote)
	remote.AssertExpectations(t)
}

func TestSaveNoteRemoteFailureQueues(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(true)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	remote.On("UpdateNote", mock.Anything, "5", mock.Anything).Return(nil, errNetwork)

	o.SaveNote(ctx, serverNote("5", "Edited"))
	require.True(t, o.Flush(entities.EntityNote, "5"))

	assert.Equal(t, entities.RemoteFailed, o.Status(entities.EntityNote, "5").Remote)

	changes, err := store.ListPendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, entities.ChangeUpdate, changes[0].Kind)
}

func TestOfflineDoubleEditOfDraftQueuesSingleCreate(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(false)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	note := entities.NewNote("user-1", "Draft", "", nil)
	o.SaveNote(ctx, note)
	require.True(t, o.Flush(entities.EntityNote, note.ID))

	note.Title = "Draft, edited"
	o.SaveNote(ctx, note)
	require.True(t, o.Flush(entities.EntityNote, note.ID))

	changes, err := store.ListPendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1, "the server must see one create, not duplicates")
	assert.Equal(t, entities.ChangeCreate, changes[0].Kind)
	assert.Equal(t, "Draft, edited", changes[0].Payload["title"])
}

func TestSaveDuringInFlightPushKeepsSyncing(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(true)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	remote.On("UpdateNote", mock.Anything, "5", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(serverNote("5", "Edited"), nil)

	o.SaveNote(ctx, serverNote("5", "Edited"))
	done := make(chan struct{})
	go func() {
		o.Flush(entities.EntityNote, "5")
		close(done)
	}()
	<-started

	o.SaveNote(ctx, serverNote("5", "Edited again"))

	status := o.Status(entities.EntityNote, "5")
	assert.Equal(t, entities.RemoteSyncing, status.Remote,
		"an edit must not hide the attempt that is already running")
	assert.True(t, status.InFlight)

	close(release)
	<-done
}

func TestSaveNoteLocalFailureKeepsOptimisticState(t *testing.T) {
	store := newMemStore()
	store.putNoteErr = errors.New("quota exceeded")
	remote := new(mockRemoteAPI)
	conn := newFakeConn(false)
	o := newTestOrchestrator(store, remote, conn)

	o.SaveNote(context.Background(), serverNote("5", "Edited"))

	status := o.Status(entities.EntityNote, "5")
	assert.Equal(t, entities.LocalFailed, status.Local)
	assert.Equal(t, entities.RemoteUnsynced, status.Remote,
		"remote push is still scheduled after a local failure")
}

func TestReplayOnReconnect(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(false)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	o.SaveNote(ctx, serverNote("5", "Edited offline"))
	require.True(t, o.Flush(entities.EntityNote, "5"))

	conn.set(true)
	remote.On("UpdateNote", mock.Anything, "5", mock.Anything).Return(serverNote("5", "Edited offline"), nil)

	report, err := o.Replay(ctx)
	require.NoError(t, err)
	assert.True(t, report.Ran)
	assert.Equal(t, 1, report.Replayed)
	assert.Zero(t, report.Failed)

	changes, err := store.ListPendingChanges(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, entities.RemoteSynced, o.Status(entities.EntityNote, "5").Remote)
	remote.AssertExpectations(t)
}

func TestReplayPermanentFailureDiscards(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(true)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	queue := app.NewChangeQueue(store)
	require.NoError(t, queue.Add(ctx, entities.ChangeUpdate, entities.EntityNote, "gone", entities.Payload{"title": "x"}))

	remote.On("UpdateNote", mock.Anything, "gone", mock.Anything).
		Return(nil, &services.APIError{StatusCode: http.StatusNotFound, Message: "not found"})

	report, err := o.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Discarded)
	assert.Zero(t, report.Failed, "a permanent failure must not count as a sync failure")

	changes, err := store.ListPendingChanges(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes, "retrying a 404 would provably fail again")
}

func TestReplayTransientFailureKeepsRecord(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(true)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	queue := app.NewChangeQueue(store)
	require.NoError(t, queue.Add(ctx, entities.ChangeUpdate, entities.EntityNote, "5", entities.Payload{"title": "x"}))

	remote.On("UpdateNote", mock.Anything, "5", mock.Anything).
		Return(nil, &services.APIError{StatusCode: http.StatusTooManyRequests, Message: "slow down"})

	report, err := o.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Discarded)

	changes, err := store.ListPendingChanges(ctx)
	require.NoError(t, err)
	assert.Len(t, changes, 1, "rate-limited change stays queued for the next cycle")
}

func TestReplayCreateAdoptsServerEntity(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(true)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	tempID := entities.TempIDPrefix + "draft"
	require.NoError(t, store.PutNote(ctx, &entities.Note{ID: tempID, Title: "Draft"}))
	queue := app.NewChangeQueue(store)
	require.NoError(t, queue.Add(ctx, entities.ChangeCreate, entities.EntityNote, tempID, entities.Payload{"title": "Draft"}))

	remote.On("CreateNote", mock.Anything, mock.Anything).Return(serverNote("srv-9", "Draft"), nil)

	report, err := o.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Replayed)

	gone, err := store.GetNote(ctx, tempID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	adopted, err := store.GetNote(ctx, "srv-9")
	require.NoError(t, err)
	assert.NotNil(t, adopted)
}

func TestReplaySingleFlight(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(true)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	queue := app.NewChangeQueue(store)
	require.NoError(t, queue.Add(ctx, entities.ChangeUpdate, entities.EntityNote, "5", entities.Payload{"title": "x"}))

	release := make(chan struct{})
	started := make(chan struct{})
	remote.On("UpdateNote", mock.Anything, "5", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(serverNote("5", "x"), nil)

	done := make(chan app.ReplayReport, 1)
	go func() {
		report, _ := o.Replay(ctx)
		done <- report
	}()

	<-started
	second, err := o.Replay(ctx)
	require.NoError(t, err)
	assert.False(t, second.Ran, "overlapping replay must be a no-op")

	close(release)
	first := <-done
	assert.True(t, first.Ran)
	assert.Equal(t, 1, first.Replayed)
}

func TestDeleteNoteOnline(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(true)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	require.NoError(t, store.PutNote(ctx, serverNote("5", "Doomed")))
	remote.On("DeleteNote", mock.Anything, "5").Return(nil)

	o.DeleteNote(ctx, "5")

	gone, err := store.GetNote(ctx, "5")
	require.NoError(t, err)
	assert.Nil(t, gone)

	changes, err := store.ListPendingChanges(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes)
	remote.AssertExpectations(t)
}

func TestDeleteNoteOfflineQueuesDelete(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(false)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	require.NoError(t, store.PutNote(ctx, serverNote("5", "Doomed")))

	o.DeleteNote(ctx, "5")

	changes, err := store.ListPendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, entities.ChangeDelete, changes[0].Kind)
	assert.Equal(t, entities.RemoteFailed, o.Status(entities.EntityNote, "5").Remote)
}

func TestDeleteTempNoteCancelsQueuedCreate(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(false)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	note := entities.NewNote("user-1", "Draft", "", nil)
	o.SaveNote(ctx, note)
	require.True(t, o.Flush(entities.EntityNote, note.ID), "offline push queues the create")

	o.DeleteNote(ctx, note.ID)

	changes, err := store.ListPendingChanges(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes, "delete of a never-synced entity annihilates the queued create")
	remote.AssertNotCalled(t, "DeleteNote", mock.Anything, mock.Anything)
}

func TestDeleteCancelsPendingDebounce(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(true)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	remote.On("DeleteNote", mock.Anything, "5").Return(nil)

	o.SaveNote(ctx, serverNote("5", "Edited"))
	o.DeleteNote(ctx, "5")

	assert.False(t, o.Flush(entities.EntityNote, "5"),
		"the scheduled push must be cancelled by the delete")
	remote.AssertNotCalled(t, "UpdateNote", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunReplaysOnReconnect(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(false)
	o := newTestOrchestrator(store, remote, conn)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o.SaveNote(ctx, serverNote("5", "Edited offline"))
	require.True(t, o.Flush(entities.EntityNote, "5"))

	remote.On("UpdateNote", mock.Anything, "5", mock.Anything).Return(serverNote("5", "Edited offline"), nil)

	go o.Run(ctx)
	conn.set(true)

	waitFor(t, func() bool {
		changes, err := store.ListPendingChanges(context.Background())
		return err == nil && len(changes) == 0
	})
	assert.Equal(t, entities.RemoteSynced, o.Status(entities.EntityNote, "5").Remote)
}

func TestRefreshNotesMergesAndPersists(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(true)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	older := time.Date(2023, 1, 1, 10, 0, 1, 0, time.UTC)
	newer := time.Date(2023, 1, 1, 10, 0, 2, 0, time.UTC)

	require.NoError(t, store.PutNote(ctx, &entities.Note{ID: "1", Title: "Local", UpdatedAt: newer}))
	require.NoError(t, store.PutNote(ctx, &entities.Note{ID: "stale", Title: "Deleted remotely", UpdatedAt: older}))
	require.NoError(t, store.PutNote(ctx, &entities.Note{ID: entities.TempIDPrefix + "d", Title: "Draft", UpdatedAt: older}))

	remote.On("ListNotes", mock.Anything).Return([]*entities.Note{
		{ID: "1", Title: "Server", UpdatedAt: older},
		{ID: "2", Title: "Server only", UpdatedAt: older},
	}, nil)

	merged, err := o.RefreshNotes(ctx)
	require.NoError(t, err)

	titles := make(map[string]string, len(merged))
	for _, note := range merged {
		titles[note.ID] = note.Title
	}
	assert.Equal(t, "Local", titles["1"], "strictly newer local edit wins")
	assert.Equal(t, "Server only", titles["2"])
	assert.Contains(t, titles, entities.TempIDPrefix+"d")
	assert.NotContains(t, titles, "stale")

	stale, err := store.GetNote(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, stale, "remotely deleted note is purged from the local store")
}

func TestSignOutClearsEverything(t *testing.T) {
	store := newMemStore()
	remote := new(mockRemoteAPI)
	conn := newFakeConn(false)
	o := newTestOrchestrator(store, remote, conn)
	ctx := context.Background()

	o.SaveNote(ctx, serverNote("5", "Edited"))
	require.True(t, o.Flush(entities.EntityNote, "5"))

	require.NoError(t, o.SignOut(ctx))

	notes, err := store.ListNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
	changes, err := store.ListPendingChanges(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes)

	status := o.Status(entities.EntityNote, "5")
	assert.Equal(t, entities.RemoteSynced, status.Remote, "statuses reset to the quiet state")
}
