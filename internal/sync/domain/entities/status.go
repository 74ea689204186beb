package entities

// LocalState - состояние локального сохранения.
type LocalState string

// Состояния локальной оси.
const (
	LocalUnsaved LocalState = "unsaved"
	LocalSaved   LocalState = "saved"
	LocalFailed  LocalState = "failed"
)

// RemoteState - состояние удалённой синхронизации.
type RemoteState string

// Состояния удалённой оси.
const (
	RemoteUnsynced RemoteState = "unsynced"
	RemoteSyncing  RemoteState = "syncing"
	RemoteSynced   RemoteState = "synced"
	RemoteFailed   RemoteState = "failed"
)

// SyncStatus - производное состояние синхронизации одной сущности.
// Не сохраняется; живёт только в памяти оркестратора.
type SyncStatus struct {
	Local    LocalState  `json:"local"`
	Remote   RemoteState `json:"remote"`
	InFlight bool        `json:"in_flight"`
}
