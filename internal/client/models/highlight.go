package models

import "time"

// Highlight is a user-selected excerpt bound to exactly one Item for its
// lifetime. Highlights are created locally first with a client-generated
// id; the remote creation call follows asynchronously.
type Highlight struct {
	ID                  string
	ShortID             string
	ItemID              string
	Quote               string
	Patch               string
	Annotation          string
	Prefix              string
	Suffix              string
	PositionPercent     float64
	PositionAnchorIndex int64
	CreatedByMe         bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
	SyncStatus          SyncStatus

	Labels []Label
}
