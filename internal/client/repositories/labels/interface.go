package labels

import (
	"context"

	"github.com/pagekeep/pagekeep/internal/client/models"
)

// Repository is the local persistence surface for labels.
type Repository interface {
	Upsert(ctx context.Context, l *models.Label) error

	// GetByID returns the label or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Label, error)

	// List returns all labels ordered by case-insensitive name.
	List(ctx context.Context) ([]models.Label, error)

	// ListPending returns labels whose sync status still requires a
	// remote call.
	ListPending(ctx context.Context) ([]models.Label, error)

	SetSyncStatus(ctx context.Context, id string, status models.SyncStatus) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
