// Package entities определяет доменные сущности движка синхронизации.
package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TempIDPrefix - зарезервированный маркер локально созданных идентификаторов.
// Значение является частью сохранённых данных и менять его нельзя.
const TempIDPrefix = "local-"

// NewTempID генерирует временный идентификатор для сущности,
// ещё не подтверждённой сервером.
func NewTempID() string {
	return TempIDPrefix + uuid.New().String()
}

// IsTempID сообщает, является ли идентификатор временным (локальным).
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// Note представляет собой заметку пользователя.
type Note struct {
	ID        string    `json:"id"`
	FolderID  *string   `json:"folder_id,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewNote creates a locally originated note with a temporary id.
func NewNote(owner, title, content string, folderID *string) *Note {
	now := time.Now().UTC()
	return &Note{
		ID:        NewTempID(),
		FolderID:  folderID,
		Title:     title,
		Content:   content,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// EntityID реализует app.Mergeable.
func (n *Note) EntityID() string { return n.ID }

// ModifiedAt реализует app.Mergeable.
func (n *Note) ModifiedAt() time.Time { return n.UpdatedAt }

// Payload возвращает частичный payload для удалённой записи заметки.
func (n *Note) Payload() Payload {
	p := Payload{
		"title":   n.Title,
		"content": n.Content,
	}
	if n.FolderID != nil {
		p["folder_id"] = *n.FolderID
	}
	return p
}
