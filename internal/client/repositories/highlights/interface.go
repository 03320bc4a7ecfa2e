package highlights

import (
	"context"

	"github.com/pagekeep/pagekeep/internal/client/models"
)

// Repository is the local persistence surface for highlights.
type Repository interface {
	Insert(ctx context.Context, h *models.Highlight) error
	Upsert(ctx context.Context, h *models.Highlight) error

	// GetByID returns the highlight or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Highlight, error)

	// ListByItem returns the item's highlights ordered by creation time.
	ListByItem(ctx context.Context, itemID string) ([]models.Highlight, error)

	// ListPending returns highlights whose sync status still requires a
	// remote call, oldest first.
	ListPending(ctx context.Context) ([]models.Highlight, error)

	UpdateAnnotation(ctx context.Context, id, annotation string, status models.SyncStatus) error
	SetSyncStatus(ctx context.Context, id string, status models.SyncStatus) error
	ReplaceLabels(ctx context.Context, highlightID string, labelIDs []string) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
