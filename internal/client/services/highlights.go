package services

import (
	"context"

	"github.com/pagekeep/pagekeep/internal/client/models"
	"github.com/pagekeep/pagekeep/internal/client/store"
	syncx "github.com/pagekeep/pagekeep/internal/client/sync"
	"github.com/pagekeep/pagekeep/internal/logging"
)

// HighlightService is a thin facade over the outbox for highlight
// actions, plus local reads.
type HighlightService struct {
	store  *store.Store
	outbox *syncx.Outbox
	log    logging.Logger
}

func NewHighlightService(st *store.Store, ob *syncx.Outbox, log logging.Logger) *HighlightService {
	return &HighlightService{store: st, outbox: ob, log: log}
}

// Create saves a highlight locally and schedules the remote creation.
func (s *HighlightService) Create(ctx context.Context, in syncx.CreateHighlightInput) (*models.Highlight, error) {
	return s.outbox.CreateHighlight(ctx, in)
}

// Annotate sets or replaces the highlight's note.
func (s *HighlightService) Annotate(ctx context.Context, id, annotation string) error {
	return s.outbox.AnnotateHighlight(ctx, id, annotation)
}

// Remove deletes the highlight.
func (s *HighlightService) Remove(ctx context.Context, id string) error {
	return s.outbox.RemoveHighlight(ctx, id)
}

// SetLabels replaces the highlight's label set.
func (s *HighlightService) SetLabels(ctx context.Context, highlightID string, labelIDs []string) error {
	return s.outbox.SetHighlightLabels(ctx, highlightID, labelIDs)
}

// ForItem lists the item's highlights from the local store.
func (s *HighlightService) ForItem(ctx context.Context, itemID string) ([]models.Highlight, error) {
	return s.store.HighlightsByItem(ctx, itemID)
}
