package contentcache

import (
	"context"
	"time"
)

// Repository caches prefetched page content keyed by (item id, username).
// Entries are a read-path optimization only; losing them never affects
// sync correctness.
type Repository interface {
	Put(ctx context.Context, itemID, username string, content []byte, fetchedAt time.Time) error

	// Get returns the cached content, or common.ErrNotFound.
	Get(ctx context.Context, itemID, username string) ([]byte, error)

	Delete(ctx context.Context, itemID string) error
	Clear(ctx context.Context) error
}
