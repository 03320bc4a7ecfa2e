package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pagekeep/pagekeep/internal/client/models"
	"github.com/pagekeep/pagekeep/internal/client/remote"
	"github.com/pagekeep/pagekeep/internal/client/store"
	syncx "github.com/pagekeep/pagekeep/internal/client/sync"
	"github.com/pagekeep/pagekeep/internal/common"
	"github.com/pagekeep/pagekeep/internal/logging"
)

// ItemService handles item-level actions: capture, archive, delete,
// snooze, and content reads backed by the offline cache.
type ItemService struct {
	store   *store.Store
	gateway remote.Gateway
	outbox  *syncx.Outbox
	log     logging.Logger
}

func NewItemService(st *store.Store, gw remote.Gateway, ob *syncx.Outbox, log logging.Logger) *ItemService {
	return &ItemService{store: st, gateway: gw, outbox: ob, log: log}
}

// Save captures a page URL: the item appears in the library immediately
// and the server-side save is scheduled in the background. Saving a URL
// that is already in the library updates the existing item.
func (s *ItemService) Save(ctx context.Context, rawURL, title string) (*models.Item, error) {
	return s.outbox.SaveCapture(ctx, models.PageCapture{URL: rawURL, Title: title})
}

// Archive sets or clears the archived flag.
func (s *ItemService) Archive(ctx context.Context, id string, archived bool) error {
	return s.outbox.ArchiveItem(ctx, id, archived)
}

// Delete removes the item; it disappears from views immediately.
func (s *ItemService) Delete(ctx context.Context, id string) error {
	return s.outbox.DeleteItem(ctx, id)
}

// Snooze hides the item until the given time.
func (s *ItemService) Snooze(ctx context.Context, id string, until time.Time) error {
	return s.outbox.SnoozeItem(ctx, id, until)
}

// Get returns the locally stored item.
func (s *ItemService) Get(ctx context.Context, id string) (*models.Item, error) {
	return s.store.ItemByID(ctx, id)
}

// Content returns the rendered page content, preferring the offline
// cache and falling back to a remote fetch that repopulates it.
func (s *ItemService) Content(ctx context.Context, itemID, username string) ([]byte, error) {
	cached, err := s.store.CachedContent(ctx, itemID, username)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	content, err := s.gateway.ItemContent(ctx, itemID, username)
	if err != nil {
		return nil, fmt.Errorf("content unavailable offline: %w", err)
	}
	if err := s.store.CacheContent(ctx, itemID, username, content); err != nil {
		s.log.Warn(ctx, "items: failed to cache content", "id", itemID, "error", err)
	}
	return content, nil
}
