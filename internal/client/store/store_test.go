package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pagekeep/pagekeep/internal/client/models"
	"github.com/pagekeep/pagekeep/internal/common"
	"github.com/pagekeep/pagekeep/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return New(db, log)
}

func testItem(id, url string) models.Item {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return models.Item{
		ID:        id,
		Title:     "item " + id,
		PageURL:   url,
		SavedAt:   now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSaveCapture_NewItem(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	it, err := st.SaveCapture(ctx, models.PageCapture{
		URL:   "HTTPS://Example.COM/Article#section-2",
		Title: "An Article",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/Article", it.PageURL)
	assert.Equal(t, models.StatusNeedsCreation, it.SyncStatus)
	assert.Equal(t, models.StateProcessing, it.State)
	assert.Equal(t, it.ID, it.CreatedID)

	stored, err := st.ItemByID(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "An Article", stored.Title)
}

func TestSaveCapture_SameURLUpdatesExistingItem(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	first, err := st.SaveCapture(ctx, models.PageCapture{URL: "https://example.com/page/"})
	require.NoError(t, err)

	// Fragment and trailing-slash variants normalize to the same URL, so
	// no second row appears.
	second, err := st.SaveCapture(ctx, models.PageCapture{
		URL:   "https://example.com/page#top",
		Title: "Renamed",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	items, err := st.ListItems(ctx, models.ListOptions{Filter: models.FilterAll})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Renamed", items[0].Title)
}

func TestSaveCapture_KeepsServerIdentity(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	synced := testItem("server-id", "https://example.com/page")
	synced.State = models.StateSucceeded
	require.NoError(t, st.ApplyDelta(ctx, []models.Item{synced}, nil))

	saved, err := st.SaveCapture(ctx, models.PageCapture{URL: "https://example.com/page"})
	require.NoError(t, err)
	assert.Equal(t, "server-id", saved.ID)
	assert.Equal(t, models.StateSucceeded, saved.State)
}

func TestApplyDelta_UpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	a := testItem("a", "https://example.com/a")
	b := testItem("b", "https://example.com/b")
	require.NoError(t, st.ApplyDelta(ctx, []models.Item{a, b}, nil))

	a.Title = "updated"
	a.UpdatedAt = a.UpdatedAt.Add(time.Minute)
	require.NoError(t, st.ApplyDelta(ctx, []models.Item{a}, []string{"b"}))

	items, err := st.ListItems(ctx, models.ListOptions{Filter: models.FilterAll})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "updated", items[0].Title)

	_, err = st.ItemByID(ctx, "b")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestApplyDelta_OlderRowLoses(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	current := testItem("a", "https://example.com/a")
	current.Title = "current"
	require.NoError(t, st.ApplyDelta(ctx, []models.Item{current}, nil))

	stale := current
	stale.Title = "stale"
	stale.UpdatedAt = current.UpdatedAt.Add(-time.Hour)
	require.NoError(t, st.ApplyDelta(ctx, []models.Item{stale}, nil))

	stored, err := st.ItemByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "current", stored.Title)
}

func TestSubscribe_NotifiedAfterCommit(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	var changes []Change
	sub := st.Subscribe(func(c Change) { changes = append(changes, c) })
	defer sub.Cancel()

	it := testItem("a", "https://example.com/a")
	require.NoError(t, st.ApplyDelta(ctx, []models.Item{it}, nil))

	require.Len(t, changes, 1)
	assert.Equal(t, EntityItems, changes[0].Entity)
	assert.Equal(t, []string{"a"}, changes[0].IDs)
}

func TestSubscribe_CancelStopsNotifications(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	calls := 0
	sub := st.Subscribe(func(Change) { calls++ })
	sub.Cancel()

	it := testItem("a", "https://example.com/a")
	require.NoError(t, st.ApplyDelta(ctx, []models.Item{it}, nil))
	assert.Equal(t, 0, calls)
}

func TestSubscribe_NoNotificationOnRollback(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	it := testItem("a", "https://example.com/a")
	require.NoError(t, st.ApplyDelta(ctx, []models.Item{it}, nil))

	calls := 0
	sub := st.Subscribe(func(Change) { calls++ })
	defer sub.Cancel()

	// Inserting a duplicate id rolls the transaction back.
	dup := testItem("a", "https://example.com/other")
	_, err := st.SaveCapture(ctx, models.PageCapture{URL: dup.PageURL, RequestID: "a"})
	require.Error(t, err)
	assert.Equal(t, 0, calls)
}

func TestDeleteFlow_TombstoneHiddenFromFilters(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	it := testItem("a", "https://example.com/a")
	require.NoError(t, st.ApplyDelta(ctx, []models.Item{it}, nil))
	require.NoError(t, st.SetItemStatus(ctx, "a", models.StatusNeedsDeletion))

	for _, f := range []models.Filter{models.FilterInbox, models.FilterAll, models.FilterArchived} {
		items, err := st.ListItems(ctx, models.ListOptions{Filter: f})
		require.NoError(t, err)
		assert.Empty(t, items, "filter %s", f)
	}

	// The tombstone is still visible to the outbox.
	pending, err := st.PendingItems(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.StatusNeedsDeletion, pending[0].SyncStatus)
}

func TestItemByURL_Normalizes(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.SaveCapture(ctx, models.PageCapture{URL: "https://example.com/page"})
	require.NoError(t, err)

	found, err := st.ItemByURL(ctx, "HTTPS://EXAMPLE.com/page/#frag")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", found.PageURL)
}

func TestHighlights_CascadeOnItemDelete(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	it := testItem("a", "https://example.com/a")
	require.NoError(t, st.ApplyDelta(ctx, []models.Item{it}, nil))

	now := time.Now().UTC()
	h := &models.Highlight{
		ID:        "h1",
		ShortID:   "h1short",
		ItemID:    "a",
		Quote:     "quoted text",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.InsertHighlight(ctx, h))
	require.NoError(t, st.DeleteItem(ctx, "a"))

	_, err := st.HighlightByID(ctx, "h1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestReset_WipesEverything(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	it := testItem("a", "https://example.com/a")
	require.NoError(t, st.ApplyDelta(ctx, []models.Item{it}, nil))
	require.NoError(t, st.UpsertLabel(ctx, &models.Label{ID: "l1", Name: "reading"}))
	require.NoError(t, st.Metadata().Set(ctx, "some_key", []byte("v")))
	require.NoError(t, st.CacheContent(ctx, "a", "tester", []byte("body")))

	require.NoError(t, st.Reset(ctx))

	items, err := st.ListItems(ctx, models.ListOptions{Filter: models.FilterAll})
	require.NoError(t, err)
	assert.Empty(t, items)

	ls, err := st.Labels(ctx)
	require.NoError(t, err)
	assert.Empty(t, ls)

	v, err := st.Metadata().Get(ctx, "some_key")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = st.CachedContent(ctx, "a", "tester")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
