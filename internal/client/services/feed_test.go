package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pagekeep/pagekeep/internal/client/models"
	"github.com/pagekeep/pagekeep/internal/client/remote"
	"github.com/pagekeep/pagekeep/internal/client/store"
	syncx "github.com/pagekeep/pagekeep/internal/client/sync"
	"github.com/pagekeep/pagekeep/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.OpenDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return store.New(db, testLogger())
}

// feedGateway overrides only what feed tests exercise; calling anything
// else panics through the embedded nil interface.
type feedGateway struct {
	remote.Gateway
	listFn   func(q remote.ListQuery) (*remote.ListResult, error)
	labelsFn func() ([]models.Label, error)
	deltaFn  func() (*remote.DeltaResult, error)
}

func (g *feedGateway) ListItems(_ context.Context, q remote.ListQuery) (*remote.ListResult, error) {
	if g.listFn != nil {
		return g.listFn(q)
	}
	return &remote.ListResult{}, nil
}

func (g *feedGateway) ListLabels(context.Context) ([]models.Label, error) {
	if g.labelsFn != nil {
		return g.labelsFn()
	}
	return nil, nil
}

func (g *feedGateway) DeltaItems(context.Context, time.Time, string) (*remote.DeltaResult, error) {
	if g.deltaFn != nil {
		return g.deltaFn()
	}
	return &remote.DeltaResult{}, nil
}

func newTestFeed(t *testing.T, gw remote.Gateway) (*FeedService, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	ob := syncx.NewOutbox(st, gw, testLogger())
	coord := syncx.NewCoordinator(st, gw, ob, testLogger())
	f := NewFeedService(st, gw, coord, testLogger())
	t.Cleanup(f.Close)
	return f, st
}

func feedItem(id, url string) models.Item {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return models.Item{
		ID: id, Title: "item " + id, PageURL: url,
		SavedAt: now, CreatedAt: now, UpdatedAt: now,
	}
}

func TestFeed_ReloadsOnStoreChange(t *testing.T) {
	ctx := context.Background()
	f, st := newTestFeed(t, &feedGateway{})

	require.NoError(t, st.ApplyDelta(ctx, []models.Item{feedItem("a", "https://example.com/a")}, nil))

	// The subscription fires synchronously on commit; the snapshot is
	// already rebuilt.
	items, _ := f.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
}

func TestFeed_SearchReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	gw := &feedGateway{
		listFn: func(q remote.ListQuery) (*remote.ListResult, error) {
			assert.Equal(t, "in:inbox golang", q.Query)
			return &remote.ListResult{
				Items:  []models.Item{feedItem("remote-1", "https://example.com/r1")},
				Cursor: "c1",
			}, nil
		},
	}
	f, st := newTestFeed(t, gw)

	require.NoError(t, st.ApplyDelta(ctx, []models.Item{feedItem("local", "https://example.com/l")}, nil))
	require.NoError(t, f.Search(ctx, "golang"))

	items, _ := f.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "remote-1", items[0].ID)
}

func TestFeed_LoadMoreAppendsNextPage(t *testing.T) {
	ctx := context.Background()
	gw := &feedGateway{}
	gw.listFn = func(q remote.ListQuery) (*remote.ListResult, error) {
		if q.Cursor == "" {
			return &remote.ListResult{
				Items:  []models.Item{feedItem("p1", "https://example.com/1")},
				Cursor: "c1", HasMore: true,
			}, nil
		}
		assert.Equal(t, "c1", q.Cursor)
		return &remote.ListResult{
			Items: []models.Item{feedItem("p2", "https://example.com/2")},
		}, nil
	}
	f, _ := newTestFeed(t, gw)

	require.NoError(t, f.Search(ctx, "term"))
	require.NoError(t, f.LoadMore(ctx))

	items, _ := f.Snapshot()
	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].ID)
	assert.Equal(t, "p2", items[1].ID)
}

func TestFeed_LoadMoreWithoutSearchIsNoop(t *testing.T) {
	called := false
	gw := &feedGateway{listFn: func(remote.ListQuery) (*remote.ListResult, error) {
		called = true
		return &remote.ListResult{}, nil
	}}
	f, _ := newTestFeed(t, gw)

	require.NoError(t, f.LoadMore(context.Background()))
	assert.False(t, called)
}

func TestFeed_StaleSearchResponseIsDropped(t *testing.T) {
	ctx := context.Background()

	slowStarted := make(chan struct{})
	slowRelease := make(chan struct{})
	gw := &feedGateway{}
	gw.listFn = func(q remote.ListQuery) (*remote.ListResult, error) {
		if q.Query == "in:inbox slow" {
			close(slowStarted)
			<-slowRelease
			return &remote.ListResult{
				Items: []models.Item{feedItem("slow", "https://example.com/slow")},
			}, nil
		}
		return &remote.ListResult{
			Items: []models.Item{feedItem("fast", "https://example.com/fast")},
		}, nil
	}
	f, _ := newTestFeed(t, gw)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Search(ctx, "slow")
	}()
	<-slowStarted

	// A newer search completes while the first is still in flight.
	require.NoError(t, f.Search(ctx, "fast"))

	close(slowRelease)
	<-done

	items, _ := f.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "fast", items[0].ID)
}

func TestFeed_ClearSearchReturnsToLocalListing(t *testing.T) {
	ctx := context.Background()
	gw := &feedGateway{listFn: func(remote.ListQuery) (*remote.ListResult, error) {
		return &remote.ListResult{
			Items: []models.Item{feedItem("remote", "https://example.com/r")},
		}, nil
	}}
	f, st := newTestFeed(t, gw)

	require.NoError(t, st.ApplyDelta(ctx, []models.Item{feedItem("local", "https://example.com/l")}, nil))
	require.NoError(t, f.Search(ctx, "term"))
	require.NoError(t, f.ClearSearch(ctx))

	items, _ := f.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "local", items[0].ID)
}

func TestFeed_SetFilter(t *testing.T) {
	ctx := context.Background()
	f, st := newTestFeed(t, &feedGateway{})

	archived := feedItem("arch", "https://example.com/arch")
	archived.IsArchived = true
	require.NoError(t, st.ApplyDelta(ctx, []models.Item{
		feedItem("inbox", "https://example.com/in"), archived,
	}, nil))

	require.NoError(t, f.SetFilter(ctx, models.FilterArchived))
	items, _ := f.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "arch", items[0].ID)
}

func TestFeed_RefreshWarmsLabelsAndSyncs(t *testing.T) {
	ctx := context.Background()
	gw := &feedGateway{
		labelsFn: func() ([]models.Label, error) {
			return []models.Label{{ID: "l1", Name: "reading"}}, nil
		},
		deltaFn: func() (*remote.DeltaResult, error) {
			return &remote.DeltaResult{
				Items: []models.Item{feedItem("synced", "https://example.com/s")},
			}, nil
		},
	}
	f, st := newTestFeed(t, gw)

	require.NoError(t, f.Refresh(ctx))

	items, loading := f.Snapshot()
	assert.False(t, loading)
	require.Len(t, items, 1)
	assert.Equal(t, "synced", items[0].ID)

	ls, err := st.Labels(ctx)
	require.NoError(t, err)
	require.Len(t, ls, 1)
	assert.Equal(t, "reading", ls[0].Name)
}
