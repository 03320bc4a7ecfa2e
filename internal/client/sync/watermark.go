package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/pagekeep/pagekeep/internal/client/repositories/metadata"
)

const keyLastSyncTime = "last_item_sync_time"

// Watermark persists the timestamp of the last fully applied sync. It
// is advanced only after every page of a delta window has been merged,
// so an interrupted sync re-fetches the same window on the next run.
type Watermark struct {
	meta metadata.Repository
}

func NewWatermark(meta metadata.Repository) *Watermark {
	return &Watermark{meta: meta}
}

// LastSyncTime returns the stored watermark, or the epoch when no sync
// has completed yet (fresh install, after logout).
func (w *Watermark) LastSyncTime(ctx context.Context) (time.Time, error) {
	raw, err := w.meta.Get(ctx, keyLastSyncTime)
	if err != nil {
		return time.Time{}, err
	}
	if len(raw) == 0 {
		return time.Unix(0, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt watermark %q: %w", raw, err)
	}
	return t, nil
}

func (w *Watermark) SetLastSyncTime(ctx context.Context, t time.Time) error {
	return w.meta.Set(ctx, keyLastSyncTime, []byte(t.UTC().Format(time.RFC3339Nano)))
}

// Reset drops the watermark back to the epoch.
func (w *Watermark) Reset(ctx context.Context) error {
	return w.meta.Delete(ctx, keyLastSyncTime)
}
