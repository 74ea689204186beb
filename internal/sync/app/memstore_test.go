package app_test

import (
	"context"
	"sync"

	"notesync/internal/sync/domain/entities"
)

// memStore is an in-memory LocalStore used by queue and orchestrator
// tests. Pending changes keep insertion order, which is what the SQLite
// adapter guarantees via creation timestamps.
type memStore struct {
	mu      sync.Mutex
	notes   map[string]*entities.Note
	folders map[string]*entities.Folder
	pending []*entities.PendingChange

	putNoteErr error
}

func newMemStore() *memStore {
	return &memStore{
		notes:   make(map[string]*entities.Note),
		folders: make(map[string]*entities.Folder),
	}
}

func (m *memStore) PutNote(_ context.Context, note *entities.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putNoteErr != nil {
		return m.putNoteErr
	}
	clone := *note
	m.notes[note.ID] = &clone
	return nil
}

func (m *memStore) PutNotes(ctx context.Context, notes []*entities.Note) error {
	for _, note := range notes {
		if err := m.PutNote(ctx, note); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) GetNote(_ context.Context, id string) (*entities.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	note, ok := m.notes[id]
	if !ok {
		return nil, nil
	}
	clone := *note
	return &clone, nil
}

func (m *memStore) ListNotes(_ context.Context) ([]*entities.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	notes := make([]*entities.Note, 0, len(m.notes))
	for _, note := range m.notes {
		clone := *note
		notes = append(notes, &clone)
	}
	return notes, nil
}

func (m *memStore) DeleteNote(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notes, id)
	return nil
}

func (m *memStore) PutFolder(_ context.Context, folder *entities.Folder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *folder
	m.folders[folder.ID] = &clone
	return nil
}

func (m *memStore) PutFolders(ctx context.Context, folders []*entities.Folder) error {
	for _, folder := range folders {
		if err := m.PutFolder(ctx, folder); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) GetFolder(_ context.Context, id string) (*entities.Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	folder, ok := m.folders[id]
	if !ok {
		return nil, nil
	}
	clone := *folder
	return &clone, nil
}

func (m *memStore) ListFolders(_ context.Context) ([]*entities.Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	folders := make([]*entities.Folder, 0, len(m.folders))
	for _, folder := range m.folders {
		clone := *folder
		folders = append(folders, &clone)
	}
	return folders, nil
}

func (m *memStore) DeleteFolder(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.folders, id)
	return nil
}

func (m *memStore) UpsertPendingChange(_ context.Context, change *entities.PendingChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *change
	for i, existing := range m.pending {
		if existing.ID == change.ID {
			m.pending[i] = &clone
			return nil
		}
	}
	m.pending = append(m.pending, &clone)
	return nil
}

func (m *memStore) PendingChangeFor(_ context.Context, entity entities.EntityKind, entityID string) (*entities.PendingChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, change := range m.pending {
		if change.Entity == entity && change.EntityID == entityID {
			clone := *change
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListPendingChanges(_ context.Context) ([]*entities.PendingChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	changes := make([]*entities.PendingChange, 0, len(m.pending))
	for _, change := range m.pending {
		clone := *change
		changes = append(changes, &clone)
	}
	return changes, nil
}

func (m *memStore) DeletePendingChange(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, change := range m.pending {
		if change.ID == id {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memStore) ClearPendingChanges(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
	return nil
}

func (m *memStore) ClearAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = make(map[string]*entities.Note)
	m.folders = make(map[string]*entities.Folder)
	m.pending = nil
	return nil
}
