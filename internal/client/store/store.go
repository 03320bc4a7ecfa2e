// Package store is the local item store: a SQLite-backed, transactional
// cache of the user's library. All mutation goes through it; every write
// runs inside a commit-or-rollback transaction, and observers subscribed
// via Subscribe are notified only after a commit.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pagekeep/pagekeep/internal/client/models"
	"github.com/pagekeep/pagekeep/internal/client/repositories/contentcache"
	"github.com/pagekeep/pagekeep/internal/client/repositories/highlights"
	"github.com/pagekeep/pagekeep/internal/client/repositories/items"
	"github.com/pagekeep/pagekeep/internal/client/repositories/labels"
	"github.com/pagekeep/pagekeep/internal/client/repositories/metadata"
	"github.com/pagekeep/pagekeep/internal/dbx"
	"github.com/pagekeep/pagekeep/internal/logging"
	"github.com/pagekeep/pagekeep/internal/urlx"
)

// Store owns the database handle and the change-subscription registry.
type Store struct {
	db   *sql.DB
	log  logging.Logger
	subs subscribers

	itemRepo      items.Repository
	highlightRepo highlights.Repository
	labelRepo     labels.Repository
	metadataRepo  metadata.Repository
	contentRepo   contentcache.Repository
}

// New returns a Store over an opened, migrated database.
func New(db *sql.DB, log logging.Logger) *Store {
	return &Store{
		db:            db,
		log:           log,
		itemRepo:      items.NewSQLiteRepository(db),
		highlightRepo: highlights.NewSQLiteRepository(db),
		labelRepo:     labels.NewSQLiteRepository(db),
		metadataRepo:  metadata.NewSQLiteRepository(db),
		contentRepo:   contentcache.NewSQLiteRepository(db),
	}
}

// Subscribe registers fn to run after every committed mutation.
func (s *Store) Subscribe(fn func(Change)) *Subscription {
	return s.subs.add(fn)
}

// Metadata exposes the key/value repository (watermark, token, viewer).
func (s *Store) Metadata() metadata.Repository { return s.metadataRepo }

func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, s.db, nil, fn)
}

// ---- items ----

// SaveCapture ingests a page capture with lookup-or-create semantics on
// the normalized URL: capturing the same page twice mutates the one
// existing item instead of creating a duplicate. The returned item is
// already persisted and marked needs-creation.
func (s *Store) SaveCapture(ctx context.Context, capture models.PageCapture) (*models.Item, error) {
	normalized, err := urlx.Normalize(capture.URL)
	if err != nil {
		return nil, err
	}

	requestID := capture.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var saved *models.Item
	err = s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := items.NewSQLiteRepository(tx)

		now := time.Now().UTC()
		existing, err := repo.GetByURL(ctx, normalized)
		if err != nil && !isNotFound(err) {
			return err
		}

		it := &models.Item{
			ID:            requestID,
			CreatedID:     requestID,
			Title:         capture.Title,
			PageURL:       normalized,
			Slug:          requestID,
			ContentReader: capture.ContentType,
			State:         models.StateProcessing,
			SavedAt:       now,
			CreatedAt:     now,
			UpdatedAt:     now,
			SyncStatus:    models.StatusNeedsCreation,
		}
		if it.Title == "" {
			it.Title = normalized
		}
		if it.ContentReader == "" {
			it.ContentReader = models.ReaderWeb
		}

		if existing != nil {
			// Keep the server-assigned identity and processing state of
			// the item already stored under this URL.
			it.ID = existing.ID
			it.State = existing.State
			it.CreatedAt = existing.CreatedAt
			saved = it
			return repo.Update(ctx, it)
		}

		saved = it
		return repo.Insert(ctx, it)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save capture: %w", err)
	}

	s.subs.notify(Change{Entity: EntityItems, IDs: []string{saved.ID}})
	return saved, nil
}

// ApplyDelta merges a page of changed items and removes server-deleted
// ones. The merge is keyed by id with last-write-wins on updated_at, so
// applying the same page twice is a no-op.
func (s *Store) ApplyDelta(ctx context.Context, changed []models.Item, deletedIDs []string) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := items.NewSQLiteRepository(tx)
		for i := range changed {
			if err := repo.Upsert(ctx, &changed[i]); err != nil {
				return err
			}
		}
		for _, id := range deletedIDs {
			if err := repo.Delete(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply delta: %w", err)
	}

	ids := make([]string, 0, len(changed)+len(deletedIDs))
	for i := range changed {
		ids = append(ids, changed[i].ID)
	}
	ids = append(ids, deletedIDs...)
	s.subs.notify(Change{Entity: EntityItems, IDs: ids})
	return nil
}

// ListItems queries the library; needs-deletion records are excluded by
// every filter's predicate.
func (s *Store) ListItems(ctx context.Context, opts models.ListOptions) ([]models.Item, error) {
	return s.itemRepo.List(ctx, opts)
}

func (s *Store) ItemByID(ctx context.Context, id string) (*models.Item, error) {
	return s.itemRepo.GetByID(ctx, id)
}

func (s *Store) ItemByURL(ctx context.Context, pageURL string) (*models.Item, error) {
	normalized, err := urlx.Normalize(pageURL)
	if err != nil {
		return nil, err
	}
	return s.itemRepo.GetByURL(ctx, normalized)
}

func (s *Store) PendingItems(ctx context.Context) ([]models.Item, error) {
	return s.itemRepo.ListPending(ctx)
}

// SetItemArchived flips the archived flag locally and tags the record
// for remote reconciliation.
func (s *Store) SetItemArchived(ctx context.Context, id string, archived bool, status models.SyncStatus) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return items.NewSQLiteRepository(tx).SetArchived(ctx, id, archived, status)
	})
	if err != nil {
		return err
	}
	s.subs.notify(Change{Entity: EntityItems, IDs: []string{id}})
	return nil
}

func (s *Store) SetItemStatus(ctx context.Context, id string, status models.SyncStatus) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return items.NewSQLiteRepository(tx).SetSyncStatus(ctx, id, status)
	})
	if err != nil {
		return err
	}
	s.subs.notify(Change{Entity: EntityItems, IDs: []string{id}})
	return nil
}

// DeleteItem removes the row for good. Logical deletion (the tombstone
// shown to the outbox) is SetItemStatus with needs-deletion.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return items.NewSQLiteRepository(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.subs.notify(Change{Entity: EntityItems, IDs: []string{id}})
	return nil
}

func (s *Store) SetItemLabels(ctx context.Context, itemID string, labelIDs []string) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return items.NewSQLiteRepository(tx).ReplaceLabels(ctx, itemID, labelIDs)
	})
	if err != nil {
		return err
	}
	s.subs.notify(Change{Entity: EntityItems, IDs: []string{itemID}})
	return nil
}

// ---- highlights ----

func (s *Store) InsertHighlight(ctx context.Context, h *models.Highlight) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return highlights.NewSQLiteRepository(tx).Insert(ctx, h)
	})
	if err != nil {
		return err
	}
	s.subs.notify(Change{Entity: EntityHighlights, IDs: []string{h.ID}})
	return nil
}

func (s *Store) HighlightByID(ctx context.Context, id string) (*models.Highlight, error) {
	return s.highlightRepo.GetByID(ctx, id)
}

func (s *Store) HighlightsByItem(ctx context.Context, itemID string) ([]models.Highlight, error) {
	return s.highlightRepo.ListByItem(ctx, itemID)
}

func (s *Store) PendingHighlights(ctx context.Context) ([]models.Highlight, error) {
	return s.highlightRepo.ListPending(ctx)
}

func (s *Store) UpdateHighlightAnnotation(ctx context.Context, id, annotation string, status models.SyncStatus) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return highlights.NewSQLiteRepository(tx).UpdateAnnotation(ctx, id, annotation, status)
	})
	if err != nil {
		return err
	}
	s.subs.notify(Change{Entity: EntityHighlights, IDs: []string{id}})
	return nil
}

func (s *Store) SetHighlightStatus(ctx context.Context, id string, status models.SyncStatus) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return highlights.NewSQLiteRepository(tx).SetSyncStatus(ctx, id, status)
	})
	if err != nil {
		return err
	}
	s.subs.notify(Change{Entity: EntityHighlights, IDs: []string{id}})
	return nil
}

// DeleteHighlight performs the hard local delete; the remote delete is
// the outbox's problem.
func (s *Store) DeleteHighlight(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return highlights.NewSQLiteRepository(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.subs.notify(Change{Entity: EntityHighlights, IDs: []string{id}})
	return nil
}

func (s *Store) SetHighlightLabels(ctx context.Context, highlightID string, labelIDs []string) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return highlights.NewSQLiteRepository(tx).ReplaceLabels(ctx, highlightID, labelIDs)
	})
	if err != nil {
		return err
	}
	s.subs.notify(Change{Entity: EntityHighlights, IDs: []string{highlightID}})
	return nil
}

// ---- labels ----

func (s *Store) UpsertLabel(ctx context.Context, l *models.Label) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return labels.NewSQLiteRepository(tx).Upsert(ctx, l)
	})
	if err != nil {
		return err
	}
	s.subs.notify(Change{Entity: EntityLabels, IDs: []string{l.ID}})
	return nil
}

// ReplaceLabels swaps the whole label collection for a fresh server
// listing in one transaction.
func (s *Store) ReplaceLabels(ctx context.Context, ls []models.Label) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := labels.NewSQLiteRepository(tx)
		for i := range ls {
			if err := repo.Upsert(ctx, &ls[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.subs.notify(Change{Entity: EntityLabels})
	return nil
}

func (s *Store) Labels(ctx context.Context) ([]models.Label, error) {
	return s.labelRepo.List(ctx)
}

func (s *Store) PendingLabels(ctx context.Context) ([]models.Label, error) {
	return s.labelRepo.ListPending(ctx)
}

func (s *Store) LabelByID(ctx context.Context, id string) (*models.Label, error) {
	return s.labelRepo.GetByID(ctx, id)
}

func (s *Store) SetLabelStatus(ctx context.Context, id string, status models.SyncStatus) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return labels.NewSQLiteRepository(tx).SetSyncStatus(ctx, id, status)
	})
	if err != nil {
		return err
	}
	s.subs.notify(Change{Entity: EntityLabels, IDs: []string{id}})
	return nil
}

func (s *Store) DeleteLabel(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return labels.NewSQLiteRepository(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.subs.notify(Change{Entity: EntityLabels, IDs: []string{id}})
	return nil
}

// ---- content cache ----

func (s *Store) CacheContent(ctx context.Context, itemID, username string, content []byte) error {
	return s.contentRepo.Put(ctx, itemID, username, content, time.Now().UTC())
}

func (s *Store) CachedContent(ctx context.Context, itemID, username string) ([]byte, error) {
	return s.contentRepo.Get(ctx, itemID, username)
}

// Reset wipes all local data, including metadata (so the watermark goes
// back to epoch). Used on logout and on local-storage reset.
func (s *Store) Reset(ctx context.Context) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := highlights.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		if err := items.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		if err := labels.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		if err := contentcache.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		return metadata.NewSQLiteRepository(tx).Clear(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to reset local storage: %w", err)
	}
	s.subs.notify(Change{Entity: EntityItems})
	return nil
}
