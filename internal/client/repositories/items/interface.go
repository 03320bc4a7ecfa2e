package items

import (
	"context"

	"github.com/pagekeep/pagekeep/internal/client/models"
)

// Repository is the local persistence surface for library items.
type Repository interface {
	// Upsert merges an item by id, last-write-wins on updated_at: an
	// incoming row older than the stored one is ignored. Label links are
	// replaced when the row wins.
	Upsert(ctx context.Context, item *models.Item) error

	// Insert stores a brand-new item and fails on id conflicts.
	Insert(ctx context.Context, item *models.Item) error

	// GetByID returns the item or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Item, error)

	// GetByURL returns the item stored under a normalized page URL, or
	// common.ErrNotFound.
	GetByURL(ctx context.Context, pageURL string) (*models.Item, error)

	// List returns items matching the options, labels attached.
	List(ctx context.Context, opts models.ListOptions) ([]models.Item, error)

	// ListPending returns items whose sync status still requires a
	// remote call, oldest first.
	ListPending(ctx context.Context) ([]models.Item, error)

	Update(ctx context.Context, item *models.Item) error
	SetSyncStatus(ctx context.Context, id string, status models.SyncStatus) error
	SetArchived(ctx context.Context, id string, archived bool, status models.SyncStatus) error
	ReplaceLabels(ctx context.Context, itemID string, labelIDs []string) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
