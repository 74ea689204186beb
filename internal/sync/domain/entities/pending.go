package entities

import (
	"time"

	"github.com/google/uuid"
)

// ChangeKind - вид отложенной операции.
type ChangeKind string

// Виды отложенных операций.
const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// EntityKind - вид сущности, к которой относится операция.
type EntityKind string

// Виды сущностей.
const (
	EntityNote   EntityKind = "note"
	EntityFolder EntityKind = "folder"
)

// Payload - частичный набор полей для удалённой записи.
type Payload map[string]any

// Merge возвращает поверхностное слияние двух payload;
// поля из other имеют приоритет. Исходные payload не изменяются.
func (p Payload) Merge(other Payload) Payload {
	merged := make(Payload, len(p)+len(other))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// PendingChange - отложенная мутация, ожидающая подтверждения сервером.
// Инвариант очереди: не более одной записи на пару (Entity, EntityID).
type PendingChange struct {
	ID        string     `json:"id"`
	Kind      ChangeKind `json:"kind"`
	Entity    EntityKind `json:"entity"`
	EntityID  string     `json:"entity_id"`
	Payload   Payload    `json:"payload,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewPendingChange создает новую запись очереди отложенных изменений.
func NewPendingChange(kind ChangeKind, entity EntityKind, entityID string, payload Payload) *PendingChange {
	return &PendingChange{
		ID:        uuid.New().String(),
		Kind:      kind,
		Entity:    entity,
		EntityID:  entityID,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}
