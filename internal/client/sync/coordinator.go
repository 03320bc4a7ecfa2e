// Package sync keeps the local item store consistent with the remote
// service: delta fetches behind a persisted watermark, an optimistic
// mutation outbox, and a sequencer that drops stale query responses.
package sync

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	"github.com/pagekeep/pagekeep/internal/client/models"
	"github.com/pagekeep/pagekeep/internal/client/remote"
	"github.com/pagekeep/pagekeep/internal/client/store"
	"github.com/pagekeep/pagekeep/internal/logging"
	"golang.org/x/sync/singleflight"
)

// MetadataKeyUsername is where the authenticated username is cached;
// prefetch requests are keyed by (item id, username).
const MetadataKeyUsername = "viewer_username"

// Coordinator orchestrates delta sync. It owns the watermark and the
// pagination cursor of the in-progress fetch; a single-flight guard
// ensures two Sync calls never race the same cursor; a second caller
// joins the in-flight run and shares its result.
type Coordinator struct {
	store   *store.Store
	gateway remote.Gateway
	outbox  *Outbox
	wm      *Watermark
	log     logging.Logger

	sf singleflight.Group
	bg gosync.WaitGroup

	now func() time.Time
}

func NewCoordinator(st *store.Store, gw remote.Gateway, ob *Outbox, log logging.Logger) *Coordinator {
	return &Coordinator{
		store:   st,
		gateway: gw,
		outbox:  ob,
		wm:      NewWatermark(st.Metadata()),
		log:     log,
		now:     time.Now,
	}
}

// Watermark exposes the coordinator's sync watermark (logout resets it).
func (c *Coordinator) Watermark() *Watermark { return c.wm }

// Sync fetches items changed since the last successful sync and merges
// them into the local store. Network failures are swallowed: the
// watermark is not advanced, so the same window is retried on the next
// call, which makes Sync safe to invoke on every foreground event.
func (c *Coordinator) Sync(ctx context.Context) error {
	_, err, _ := c.sf.Do("sync", func() (any, error) {
		return nil, c.performSync(ctx)
	})
	return err
}

func (c *Coordinator) performSync(ctx context.Context) error {
	syncStart := c.now().UTC()

	lastSync, err := c.wm.LastSyncTime(ctx)
	if err != nil {
		return err
	}

	// Pending local mutations go out first so a stale-looking delta
	// cannot clobber them via last-write-wins.
	if err := c.outbox.Flush(ctx); err != nil {
		c.log.Warn(ctx, "sync: outbox flush failed", "error", err)
	}
	c.outbox.Wait()

	page, err := c.gateway.DeltaItems(ctx, lastSync, "")
	if err != nil {
		if errors.Is(err, remote.ErrUnavailable) {
			c.log.Warn(ctx, "sync: delta fetch failed, will retry on next sync", "error", err)
			return nil
		}
		return err
	}

	if err := c.store.ApplyDelta(ctx, page.Items, page.DeletedIDs); err != nil {
		return err
	}

	touched := itemIDs(page.Items)

	if page.HasMore {
		// The watermark stays put until the continuation drains the
		// window; a crash mid-way just re-fetches the same window.
		c.bg.Add(1)
		go c.continueDelta(lastSync, page.Cursor, syncStart)
	} else {
		if err := c.wm.SetLastSyncTime(ctx, syncStart); err != nil {
			return err
		}
	}

	if len(touched) > 0 {
		c.bg.Add(1)
		go c.prefetch(touched)
	}

	return nil
}

// continueDelta walks the remaining pages of a delta window strictly
// sequentially: cursor N+1 is not requested until page N is merged.
// Detached from the originating call; a superseding Sync is a benign
// race settled by last-write-wins.
func (c *Coordinator) continueDelta(since time.Time, cursor string, syncStart time.Time) {
	defer c.bg.Done()

	ctx := context.Background()
	var touched []string

	for {
		pageCtx, cancel := context.WithTimeout(ctx, asyncCallTimeout)
		page, err := c.gateway.DeltaItems(pageCtx, since, cursor)
		cancel()
		if err != nil {
			c.log.Warn(ctx, "sync: delta continuation aborted", "cursor", cursor, "error", err)
			return
		}

		if err := c.store.ApplyDelta(ctx, page.Items, page.DeletedIDs); err != nil {
			c.log.Error(ctx, "sync: failed to merge delta page", "error", err)
			return
		}
		touched = append(touched, itemIDs(page.Items)...)

		if !page.HasMore {
			break
		}
		cursor = page.Cursor
	}

	if err := c.wm.SetLastSyncTime(ctx, syncStart); err != nil {
		c.log.Error(ctx, "sync: failed to advance watermark", "error", err)
		return
	}

	if len(touched) > 0 {
		c.bg.Add(1)
		go c.prefetch(touched)
	}
}

// prefetch warms the content cache for freshly synced items. Purely a
// read-path optimization: every failure is logged and dropped.
func (c *Coordinator) prefetch(ids []string) {
	defer c.bg.Done()

	ctx := context.Background()

	raw, err := c.store.Metadata().Get(ctx, MetadataKeyUsername)
	if err != nil || len(raw) == 0 {
		return
	}
	username := string(raw)

	for _, id := range ids {
		fetchCtx, cancel := context.WithTimeout(ctx, asyncCallTimeout)
		content, err := c.gateway.ItemContent(fetchCtx, id, username)
		cancel()
		if err != nil {
			c.log.Debug(ctx, "sync: prefetch failed", "id", id, "error", err)
			continue
		}
		if err := c.store.CacheContent(ctx, id, username, content); err != nil {
			c.log.Debug(ctx, "sync: prefetch cache write failed", "id", id, "error", err)
		}
	}
}

// Wait joins the background continuation and prefetch tasks. Tests and
// shutdown paths use it; interactive callers never do.
func (c *Coordinator) Wait() { c.bg.Wait() }

func itemIDs(items []models.Item) []string {
	ids := make([]string, 0, len(items))
	for i := range items {
		ids = append(ids, items[i].ID)
	}
	return ids
}
