package entities

import "time"

// Folder представляет собой папку для группировки заметок.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFolder creates a locally originated folder with a temporary id.
func NewFolder(owner, name string) *Folder {
	now := time.Now().UTC()
	return &Folder{
		ID:        NewTempID(),
		Name:      name,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// EntityID реализует app.Mergeable.
func (f *Folder) EntityID() string { return f.ID }

// ModifiedAt реализует app.Mergeable.
func (f *Folder) ModifiedAt() time.Time { return f.UpdatedAt }

// Payload возвращает частичный payload для удалённой записи папки.
func (f *Folder) Payload() Payload {
	return Payload{"name": f.Name}
}
