package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"testing"
	"time"

	"github.com/pagekeep/pagekeep/internal/client/models"
	"github.com/pagekeep/pagekeep/internal/client/remote"
	"github.com/pagekeep/pagekeep/internal/client/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T, gw *fakeGateway) (*Coordinator, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	ob := NewOutbox(st, gw, testLogger())
	c := NewCoordinator(st, gw, ob, testLogger())
	return c, st
}

func TestCoordinator_SinglePageAdvancesWatermark(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()

	gw.deltaFn = func(time.Time, string) (*remote.DeltaResult, error) {
		return &remote.DeltaResult{
			Items: []models.Item{testItem("item-1", "https://example.com/1")},
		}, nil
	}

	c, st := newTestCoordinator(t, gw)
	syncStart := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return syncStart }

	require.NoError(t, c.Sync(ctx))
	c.Wait()

	items, err := st.ListItems(ctx, models.ListOptions{Filter: models.FilterAll})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	wm, err := c.Watermark().LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, wm.Equal(syncStart))
}

func TestCoordinator_DeltaMergeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()

	page := &remote.DeltaResult{
		Items: []models.Item{
			testItem("item-1", "https://example.com/1"),
			testItem("item-2", "https://example.com/2"),
		},
		DeletedIDs: []string{"item-gone"},
	}
	gw.deltaFn = func(time.Time, string) (*remote.DeltaResult, error) { return page, nil }

	c, st := newTestCoordinator(t, gw)

	require.NoError(t, c.Sync(ctx))
	c.Wait()
	require.NoError(t, c.Sync(ctx))
	c.Wait()

	items, err := st.ListItems(ctx, models.ListOptions{Filter: models.FilterAll})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCoordinator_TwoPageDelta(t *testing.T) {
	// 13 changed items arrive as a page of 10 with a continuation and a
	// page of 3. All 13 must land, and the watermark must end at the
	// sync start time, not at the epoch and not at the second page's
	// fetch time.
	ctx := context.Background()
	gw := newFakeGateway()

	pageOne := make([]models.Item, 0, 10)
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("item-%02d", i)
		pageOne = append(pageOne, testItem(id, "https://example.com/"+id))
	}
	pageTwo := make([]models.Item, 0, 3)
	for i := 10; i < 13; i++ {
		id := fmt.Sprintf("item-%02d", i)
		pageTwo = append(pageTwo, testItem(id, "https://example.com/"+id))
	}

	gw.deltaFn = func(_ time.Time, cursor string) (*remote.DeltaResult, error) {
		if cursor == "" {
			return &remote.DeltaResult{Items: pageOne, Cursor: "10", HasMore: true}, nil
		}
		require.Equal(t, "10", cursor)
		return &remote.DeltaResult{Items: pageTwo}, nil
	}

	c, st := newTestCoordinator(t, gw)
	syncStart := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return syncStart }

	require.NoError(t, c.Sync(ctx))
	c.Wait()

	items, err := st.ListItems(ctx, models.ListOptions{Filter: models.FilterAll})
	require.NoError(t, err)
	assert.Len(t, items, 13)

	wm, err := c.Watermark().LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, wm.Equal(syncStart))

	assert.Equal(t, 2, gw.count("DeltaItems"))
}

func TestCoordinator_WatermarkHeldOnContinuationFailure(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()

	gw.deltaFn = func(_ time.Time, cursor string) (*remote.DeltaResult, error) {
		if cursor == "" {
			return &remote.DeltaResult{
				Items:   []models.Item{testItem("item-1", "https://example.com/1")},
				Cursor:  "next",
				HasMore: true,
			}, nil
		}
		return nil, remote.ErrUnavailable
	}

	c, _ := newTestCoordinator(t, gw)

	require.NoError(t, c.Sync(ctx))
	c.Wait()

	// The window was not fully applied, so the watermark must still be
	// at the epoch and the next sync re-fetches the same window.
	wm, err := c.Watermark().LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, wm.Equal(time.Unix(0, 0).UTC()))
}

func TestCoordinator_FirstPageFailureIsSoft(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()

	gw.deltaFn = func(time.Time, string) (*remote.DeltaResult, error) {
		return nil, remote.ErrUnavailable
	}

	c, _ := newTestCoordinator(t, gw)

	// Unreachable server is not an error for the caller; the sync just
	// retries the same window next time.
	require.NoError(t, c.Sync(ctx))
	c.Wait()

	wm, err := c.Watermark().LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, wm.Equal(time.Unix(0, 0).UTC()))
}

func TestCoordinator_SyncIsSingleFlight(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once gosync.Once
	gw.deltaFn = func(time.Time, string) (*remote.DeltaResult, error) {
		once.Do(func() { close(entered) })
		<-release
		return &remote.DeltaResult{}, nil
	}

	c, _ := newTestCoordinator(t, gw)

	var wg gosync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = c.Sync(ctx)
	}()
	<-entered
	go func() {
		defer wg.Done()
		_ = c.Sync(ctx)
	}()

	// Give the second call a moment to join the first.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	c.Wait()

	assert.Equal(t, 1, gw.count("DeltaItems"))
}

func TestCoordinator_FlushesOutboxBeforeDelta(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()

	var order []string
	var mu gosync.Mutex
	note := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	gw.archiveFn = func(string, bool) error {
		note("archive")
		return nil
	}
	gw.deltaFn = func(time.Time, string) (*remote.DeltaResult, error) {
		note("delta")
		return &remote.DeltaResult{}, nil
	}

	c, st := newTestCoordinator(t, gw)

	pending := testItem("item-1", "https://example.com/1")
	pending.IsArchived = true
	pending.SyncStatus = models.StatusNeedsUpdate
	require.NoError(t, st.ApplyDelta(ctx, []models.Item{pending}, nil))

	require.NoError(t, c.Sync(ctx))
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"archive", "delta"}, order)
}

func TestCoordinator_PrefetchPopulatesContentCache(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()

	gw.deltaFn = func(time.Time, string) (*remote.DeltaResult, error) {
		return &remote.DeltaResult{
			Items: []models.Item{testItem("item-1", "https://example.com/1")},
		}, nil
	}

	c, st := newTestCoordinator(t, gw)
	require.NoError(t, st.Metadata().Set(ctx, MetadataKeyUsername, []byte("tester")))

	require.NoError(t, c.Sync(ctx))
	c.Wait()

	content, err := st.CachedContent(ctx, "item-1", "tester")
	require.NoError(t, err)
	assert.Equal(t, []byte("content of item-1"), content)
}

func TestCoordinator_PrefetchSkippedWithoutViewer(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()

	gw.deltaFn = func(time.Time, string) (*remote.DeltaResult, error) {
		return &remote.DeltaResult{
			Items: []models.Item{testItem("item-1", "https://example.com/1")},
		}, nil
	}

	c, _ := newTestCoordinator(t, gw)

	require.NoError(t, c.Sync(ctx))
	c.Wait()

	assert.Equal(t, 0, gw.count("ItemContent"))
}
