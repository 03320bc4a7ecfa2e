// Package services exposes the user-intent surface consumed by the
// rendering layer: the feed snapshot, highlight and label actions, and
// authentication. Services never block on remote reconciliation; that
// is the outbox's job.
package services

import (
	"context"
	gosync "sync"
	"time"

	"github.com/pagekeep/pagekeep/internal/client/models"
	"github.com/pagekeep/pagekeep/internal/client/remote"
	"github.com/pagekeep/pagekeep/internal/client/store"
	syncx "github.com/pagekeep/pagekeep/internal/client/sync"
	"github.com/pagekeep/pagekeep/internal/logging"
)

const defaultPageSize = 10

// FeedService maintains the visible feed snapshot: an ordered item
// slice plus a loading flag. Local listings re-read the store on every
// committed change; server-side searches go through the sequencer so a
// slow stale response can never overwrite a newer one.
type FeedService struct {
	store   *store.Store
	gateway remote.Gateway
	coord   *syncx.Coordinator
	log     logging.Logger

	seq syncx.Sequencer

	mu         gosync.Mutex
	items      []models.Item
	loading    bool
	cursor     string
	searchTerm string
	filter     models.Filter
	sort       models.Sort
	pageSize   int

	sub *store.Subscription
}

func NewFeedService(st *store.Store, gw remote.Gateway, coord *syncx.Coordinator, log logging.Logger) *FeedService {
	f := &FeedService{
		store:    st,
		gateway:  gw,
		coord:    coord,
		log:      log,
		filter:   models.FilterInbox,
		sort:     models.SortNewest,
		pageSize: defaultPageSize,
	}
	f.sub = st.Subscribe(f.onStoreChange)
	return f
}

// SetPageSize adjusts the search page size.
func (f *FeedService) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	f.mu.Lock()
	f.pageSize = n
	f.mu.Unlock()
}

// Close cancels the store subscription.
func (f *FeedService) Close() { f.sub.Cancel() }

// Snapshot returns the current visible state.
func (f *FeedService) Snapshot() ([]models.Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]models.Item, len(f.items))
	copy(items, f.items)
	return items, f.loading
}

// SetFilter switches the local listing filter and re-reads the store.
func (f *FeedService) SetFilter(ctx context.Context, filter models.Filter) error {
	f.mu.Lock()
	f.filter = filter
	f.searchTerm = ""
	f.mu.Unlock()
	return f.reloadLocal(ctx)
}

func (f *FeedService) onStoreChange(store.Change) {
	f.mu.Lock()
	searching := f.searchTerm != ""
	f.mu.Unlock()
	if searching {
		// Search results come from the server; don't clobber them with
		// a local re-read.
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := f.reloadLocal(ctx); err != nil {
		f.log.Warn(ctx, "feed: reload after store change failed", "error", err)
	}
}

func (f *FeedService) reloadLocal(ctx context.Context) error {
	f.mu.Lock()
	opts := models.ListOptions{Filter: f.filter, Sort: f.sort}
	f.mu.Unlock()

	items, err := f.store.ListItems(ctx, opts)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.items = items
	f.mu.Unlock()
	return nil
}

// Refresh runs a full refresh: warm the viewer and label caches, sync
// deltas, then rebuild the snapshot from the local store.
func (f *FeedService) Refresh(ctx context.Context) error {
	f.setLoading(true)
	defer f.setLoading(false)

	f.warmLabels(ctx)

	if err := f.coord.Sync(ctx); err != nil {
		return err
	}

	return f.reloadLocal(ctx)
}

// warmLabels fetches the label list once when the local cache is empty.
func (f *FeedService) warmLabels(ctx context.Context) {
	ls, err := f.store.Labels(ctx)
	if err != nil || len(ls) > 0 {
		return
	}
	fetched, err := f.gateway.ListLabels(ctx)
	if err != nil {
		f.log.Debug(ctx, "feed: label warmup failed", "error", err)
		return
	}
	if err := f.store.ReplaceLabels(ctx, fetched); err != nil {
		f.log.Warn(ctx, "feed: failed to store labels", "error", err)
	}
}

// Search issues a server-side query for the term. Responses are applied
// through the sequencer: whichever request was issued last wins, and
// earlier responses arriving after it are dropped.
func (f *FeedService) Search(ctx context.Context, term string) error {
	return f.runSearch(ctx, term, true)
}

// LoadMore fetches the next page of the current search.
func (f *FeedService) LoadMore(ctx context.Context) error {
	f.mu.Lock()
	term := f.searchTerm
	f.mu.Unlock()
	if term == "" {
		return nil
	}
	return f.runSearch(ctx, term, false)
}

func (f *FeedService) runSearch(ctx context.Context, term string, isRefresh bool) error {
	seq := f.seq.Issue()

	f.setLoading(true)
	defer f.setLoading(false)

	f.mu.Lock()
	query := f.filter.QueryString()
	if term != "" {
		query += " " + term
	}
	cursor := ""
	if !isRefresh {
		cursor = f.cursor
	}
	limit := f.pageSize
	f.mu.Unlock()

	res, err := f.gateway.ListItems(ctx, remote.ListQuery{Query: query, Cursor: cursor, Limit: limit})
	if err != nil {
		return err
	}

	applied := f.seq.Apply(seq, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.searchTerm = term
		f.cursor = res.Cursor
		if isRefresh {
			f.items = res.Items
		} else {
			f.items = append(f.items, res.Items...)
		}
	})
	if !applied {
		f.log.Debug(ctx, "feed: stale search response dropped", "seq", seq)
	}
	return nil
}

// ClearSearch returns the feed to the local listing.
func (f *FeedService) ClearSearch(ctx context.Context) error {
	f.mu.Lock()
	f.searchTerm = ""
	f.cursor = ""
	f.mu.Unlock()
	return f.reloadLocal(ctx)
}

func (f *FeedService) setLoading(v bool) {
	f.mu.Lock()
	f.loading = v
	f.mu.Unlock()
}
