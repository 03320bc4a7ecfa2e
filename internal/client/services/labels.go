package services

import (
	"context"

	"github.com/pagekeep/pagekeep/internal/client/models"
	"github.com/pagekeep/pagekeep/internal/client/remote"
	"github.com/pagekeep/pagekeep/internal/client/store"
	syncx "github.com/pagekeep/pagekeep/internal/client/sync"
	"github.com/pagekeep/pagekeep/internal/logging"
)

// LabelService reads labels from the local store and routes mutations
// through the outbox.
type LabelService struct {
	store   *store.Store
	gateway remote.Gateway
	outbox  *syncx.Outbox
	log     logging.Logger
}

func NewLabelService(st *store.Store, gw remote.Gateway, ob *syncx.Outbox, log logging.Logger) *LabelService {
	return &LabelService{store: st, gateway: gw, outbox: ob, log: log}
}

// List returns the locally cached labels, refreshing from the server
// when the cache is empty.
func (s *LabelService) List(ctx context.Context) ([]models.Label, error) {
	ls, err := s.store.Labels(ctx)
	if err != nil {
		return nil, err
	}
	if len(ls) > 0 {
		return ls, nil
	}

	fetched, err := s.gateway.ListLabels(ctx)
	if err != nil {
		// Offline: an empty cache is a valid answer.
		s.log.Debug(ctx, "labels: remote listing failed", "error", err)
		return ls, nil
	}
	if err := s.store.ReplaceLabels(ctx, fetched); err != nil {
		return nil, err
	}
	return s.store.Labels(ctx)
}

// Create stores a label optimistically and reconciles it remotely.
func (s *LabelService) Create(ctx context.Context, name, color, description string) (*models.Label, error) {
	return s.outbox.CreateLabel(ctx, name, color, description)
}

// Delete removes the label.
func (s *LabelService) Delete(ctx context.Context, id string) error {
	return s.outbox.DeleteLabel(ctx, id)
}

// SetItemLabels replaces an item's label set.
func (s *LabelService) SetItemLabels(ctx context.Context, itemID string, labelIDs []string) error {
	return s.outbox.SetItemLabels(ctx, itemID, labelIDs)
}
