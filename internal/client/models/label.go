package models

// Label is a named, colored tag, many-to-many with items and highlights.
// Name uniqueness is enforced by the remote service, not locally; local
// creation is optimistic.
type Label struct {
	ID          string
	Name        string
	Color       string // hex, e.g. "#FFD234"
	Description string
	SyncStatus  SyncStatus
}
