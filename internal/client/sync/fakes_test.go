package sync

import (
	"context"
	"io"
	"log/slog"
	gosync "sync"
	"testing"
	"time"

	"github.com/pagekeep/pagekeep/internal/client/models"
	"github.com/pagekeep/pagekeep/internal/client/remote"
	"github.com/pagekeep/pagekeep/internal/client/store"
	"github.com/pagekeep/pagekeep/internal/logging"
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

// fakeGateway implements remote.Gateway with per-method hooks and call
// counters. Unset hooks succeed and return zero values.
type fakeGateway struct {
	mu    gosync.Mutex
	calls map[string]int

	deltaFn           func(since time.Time, cursor string) (*remote.DeltaResult, error)
	saveURLFn         func(requestID, url string) error
	archiveFn         func(itemID string, archived bool) error
	deleteItemFn      func(itemID string) error
	createHighlightFn func(in remote.HighlightInput) (*models.Highlight, error)
	updateHighlightFn func(id, annotation string) error
	createLabelFn     func(l models.Label) (*models.Label, error)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{calls: map[string]int{}}
}

func (g *fakeGateway) record(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[name]++
	return g.calls[name]
}

func (g *fakeGateway) count(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name]
}

func (g *fakeGateway) Viewer(context.Context) (string, error) {
	g.record("Viewer")
	return "tester", nil
}

func (g *fakeGateway) ListItems(context.Context, remote.ListQuery) (*remote.ListResult, error) {
	g.record("ListItems")
	return &remote.ListResult{}, nil
}

func (g *fakeGateway) DeltaItems(_ context.Context, since time.Time, cursor string) (*remote.DeltaResult, error) {
	g.record("DeltaItems")
	if g.deltaFn != nil {
		return g.deltaFn(since, cursor)
	}
	return &remote.DeltaResult{}, nil
}

func (g *fakeGateway) ItemContent(_ context.Context, itemID, _ string) ([]byte, error) {
	g.record("ItemContent")
	return []byte("content of " + itemID), nil
}

func (g *fakeGateway) SaveURL(_ context.Context, requestID, url string) error {
	g.record("SaveURL")
	if g.saveURLFn != nil {
		return g.saveURLFn(requestID, url)
	}
	return nil
}

func (g *fakeGateway) ArchiveItem(_ context.Context, itemID string, archived bool) error {
	g.record("ArchiveItem")
	if g.archiveFn != nil {
		return g.archiveFn(itemID, archived)
	}
	return nil
}

func (g *fakeGateway) DeleteItem(_ context.Context, itemID string) error {
	g.record("DeleteItem")
	if g.deleteItemFn != nil {
		return g.deleteItemFn(itemID)
	}
	return nil
}

func (g *fakeGateway) SnoozeItem(context.Context, string, time.Time) error {
	g.record("SnoozeItem")
	return nil
}

func (g *fakeGateway) CreateHighlight(_ context.Context, in remote.HighlightInput) (*models.Highlight, error) {
	g.record("CreateHighlight")
	if g.createHighlightFn != nil {
		return g.createHighlightFn(in)
	}
	return &models.Highlight{ID: in.ID}, nil
}

func (g *fakeGateway) UpdateHighlight(_ context.Context, id, annotation string) error {
	g.record("UpdateHighlight")
	if g.updateHighlightFn != nil {
		return g.updateHighlightFn(id, annotation)
	}
	return nil
}

func (g *fakeGateway) DeleteHighlight(context.Context, string) error {
	g.record("DeleteHighlight")
	return nil
}

func (g *fakeGateway) ListLabels(context.Context) ([]models.Label, error) {
	g.record("ListLabels")
	return nil, nil
}

func (g *fakeGateway) CreateLabel(_ context.Context, l models.Label) (*models.Label, error) {
	g.record("CreateLabel")
	if g.createLabelFn != nil {
		return g.createLabelFn(l)
	}
	out := l
	return &out, nil
}

func (g *fakeGateway) DeleteLabel(context.Context, string) error {
	g.record("DeleteLabel")
	return nil
}

func (g *fakeGateway) SetItemLabels(context.Context, string, []string) error {
	g.record("SetItemLabels")
	return nil
}

func (g *fakeGateway) SetHighlightLabels(context.Context, string, []string) error {
	g.record("SetHighlightLabels")
	return nil
}

var _ remote.Gateway = (*fakeGateway)(nil)
