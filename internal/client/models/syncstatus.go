package models

// SyncStatus marks how a locally stored record relates to the remote
// service. It drives two things: whether normal queries should show the
// record (needs-deletion rows are hidden) and whether the outbox should
// attempt a remote call for it.
type SyncStatus int

const (
	StatusInSync SyncStatus = iota
	StatusNeedsCreation
	StatusNeedsUpdate
	StatusNeedsDeletion
)

func (s SyncStatus) String() string {
	switch s {
	case StatusInSync:
		return "in-sync"
	case StatusNeedsCreation:
		return "needs-creation"
	case StatusNeedsUpdate:
		return "needs-update"
	case StatusNeedsDeletion:
		return "needs-deletion"
	default:
		return "unknown"
	}
}

// Pending reports whether the record still requires a remote call.
func (s SyncStatus) Pending() bool {
	return s != StatusInSync
}
