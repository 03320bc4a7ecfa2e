// Package remote is the boundary to the remote service. The Gateway
// interface is what the rest of the client programs against; Client
// implements it over the service's GraphQL HTTP API.
package remote

import (
	"context"
	"time"

	"github.com/pagekeep/pagekeep/internal/client/models"
)

// ListQuery is a server-side list/search request.
type ListQuery struct {
	Query  string // search expression, e.g. "in:inbox golang"
	Cursor string // opaque continuation token, "" for the first page
	Limit  int
}

// ListResult is one page of a list query.
type ListResult struct {
	Items   []models.Item
	Cursor  string
	HasMore bool
}

// DeltaResult is one page of an items-changed-since query. Deleted IDs
// are reported separately so the client can drop local rows.
type DeltaResult struct {
	Items      []models.Item
	DeletedIDs []string
	Cursor     string
	HasMore    bool
}

// HighlightInput carries the fields of a remote highlight creation.
type HighlightInput struct {
	ID                  string
	ShortID             string
	ItemID              string
	Quote               string
	Patch               string
	Annotation          string
	PositionPercent     float64
	PositionAnchorIndex int64
}

// Gateway issues remote queries and mutations. Implementations must map
// transport failures to ErrUnavailable and API-level rejections to
// *ValidationError so callers can tell the two apart.
type Gateway interface {
	// Viewer returns the authenticated username.
	Viewer(ctx context.Context) (string, error)

	ListItems(ctx context.Context, q ListQuery) (*ListResult, error)
	DeltaItems(ctx context.Context, since time.Time, cursor string) (*DeltaResult, error)

	// ItemContent fetches rendered page content for prefetching.
	ItemContent(ctx context.Context, itemID, username string) ([]byte, error)

	SaveURL(ctx context.Context, requestID, url string) error
	ArchiveItem(ctx context.Context, itemID string, archived bool) error
	DeleteItem(ctx context.Context, itemID string) error
	SnoozeItem(ctx context.Context, itemID string, until time.Time) error

	CreateHighlight(ctx context.Context, in HighlightInput) (*models.Highlight, error)
	UpdateHighlight(ctx context.Context, highlightID, annotation string) error
	DeleteHighlight(ctx context.Context, highlightID string) error

	ListLabels(ctx context.Context) ([]models.Label, error)
	CreateLabel(ctx context.Context, label models.Label) (*models.Label, error)
	DeleteLabel(ctx context.Context, labelID string) error
	SetItemLabels(ctx context.Context, itemID string, labelIDs []string) error
	SetHighlightLabels(ctx context.Context, highlightID string, labelIDs []string) error
}
