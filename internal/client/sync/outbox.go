package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/pagekeep/pagekeep/internal/client/models"
	"github.com/pagekeep/pagekeep/internal/client/remote"
	"github.com/pagekeep/pagekeep/internal/client/store"
	"github.com/pagekeep/pagekeep/internal/common"
	"github.com/pagekeep/pagekeep/internal/logging"
	"github.com/sethvargo/go-retry"
)

const asyncCallTimeout = 30 * time.Second

// Outbox makes user edits feel instantaneous while guaranteeing
// eventual remote consistency. Every mutation is persisted locally
// first, inside a transaction, and returned to the caller; the matching
// remote call runs asynchronously and only flips the record's
// sync-status tag. Records whose remote call failed stay pending and
// are retried by Flush.
type Outbox struct {
	store    *store.Store
	gateway  remote.Gateway
	log      logging.Logger
	notifier Notifier

	// surfaceCreateErrors controls whether failed remote creations are
	// reported through the notifier like update/delete failures are.
	surfaceCreateErrors bool

	wg gosync.WaitGroup
}

// Option configures an Outbox.
type Option func(*Outbox)

// WithNotifier sets the user notification surface.
func WithNotifier(n Notifier) Option {
	return func(o *Outbox) { o.notifier = n }
}

// WithSilentCreates suppresses notifications for failed remote
// creations, mirroring the historical behavior where only update and
// delete failures were surfaced.
func WithSilentCreates() Option {
	return func(o *Outbox) { o.surfaceCreateErrors = false }
}

// NewOutbox returns an Outbox. By default all mutation failures are
// surfaced uniformly through the notifier.
func NewOutbox(st *store.Store, gw remote.Gateway, log logging.Logger, opts ...Option) *Outbox {
	o := &Outbox{
		store:               st,
		gateway:             gw,
		log:                 log,
		notifier:            NopNotifier,
		surfaceCreateErrors: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// async runs a remote reconciliation call detached from the caller's
// context; the user-facing operation has already committed locally.
func (o *Outbox) async(fn func(ctx context.Context)) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), asyncCallTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait blocks until all in-flight remote calls finish. Used by Flush
// callers and tests; the UI never waits.
func (o *Outbox) Wait() { o.wg.Wait() }

func (o *Outbox) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(2, retry.NewExponential(250*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if err != nil && remote.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (o *Outbox) surface(ctx context.Context, msg string, err error) {
	o.log.Warn(ctx, msg, "error", err)
	o.notifier.Notify(ctx, msg)
}

// ---- highlights ----

// CreateHighlightInput carries the user-supplied fields of a new highlight.
type CreateHighlightInput struct {
	ItemID              string
	Quote               string
	Patch               string
	Annotation          string
	PositionPercent     float64
	PositionAnchorIndex int64
}

// CreateHighlight persists a new highlight synchronously and returns it;
// the remote creation call is fired asynchronously. The returned record
// is immediately visible in the local store with status needs-creation.
func (o *Outbox) CreateHighlight(ctx context.Context, in CreateHighlightInput) (*models.Highlight, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	h := &models.Highlight{
		ID:                  id,
		ShortID:             id[:8],
		ItemID:              in.ItemID,
		Quote:               in.Quote,
		Patch:               in.Patch,
		Annotation:          in.Annotation,
		PositionPercent:     in.PositionPercent,
		PositionAnchorIndex: in.PositionAnchorIndex,
		CreatedByMe:         true,
		CreatedAt:           now,
		UpdatedAt:           now,
		SyncStatus:          models.StatusNeedsCreation,
	}
	if err := o.store.InsertHighlight(ctx, h); err != nil {
		return nil, fmt.Errorf("failed to persist highlight: %w", err)
	}

	o.async(func(ctx context.Context) { o.pushHighlightCreate(ctx, h.ID) })
	return h, nil
}

func (o *Outbox) pushHighlightCreate(ctx context.Context, id string) {
	// Refetch: the record may have been annotated or deleted while the
	// call was queued.
	h, err := o.store.HighlightByID(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return
	}
	if err != nil {
		o.log.Error(ctx, "outbox: failed to load highlight", "id", id, "error", err)
		return
	}

	_, err = o.gateway.CreateHighlight(ctx, remote.HighlightInput{
		ID:                  h.ID,
		ShortID:             h.ShortID,
		ItemID:              h.ItemID,
		Quote:               h.Quote,
		Patch:               h.Patch,
		Annotation:          h.Annotation,
		PositionPercent:     h.PositionPercent,
		PositionAnchorIndex: h.PositionAnchorIndex,
	})
	if err != nil {
		if o.surfaceCreateErrors {
			o.surface(ctx, "highlight could not be saved to the server", err)
		} else {
			o.log.Warn(ctx, "outbox: highlight creation failed", "id", id, "error", err)
		}
		return
	}

	if err := o.store.SetHighlightStatus(ctx, id, models.StatusInSync); err != nil && !errors.Is(err, common.ErrNotFound) {
		o.log.Error(ctx, "outbox: failed to mark highlight in sync", "id", id, "error", err)
	}
}

// AnnotateHighlight updates the note locally (status needs-update) and
// pushes the change asynchronously. A missing record is a benign no-op.
func (o *Outbox) AnnotateHighlight(ctx context.Context, id, annotation string) error {
	err := o.store.UpdateHighlightAnnotation(ctx, id, annotation, models.StatusNeedsUpdate)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	o.async(func(ctx context.Context) {
		if err := o.gateway.UpdateHighlight(ctx, id, annotation); err != nil {
			if !errors.Is(err, remote.ErrNotFound) {
				o.surface(ctx, "highlight note could not be saved to the server", err)
			}
			return
		}
		if err := o.store.SetHighlightStatus(ctx, id, models.StatusInSync); err != nil && !errors.Is(err, common.ErrNotFound) {
			o.log.Error(ctx, "outbox: failed to mark highlight in sync", "id", id, "error", err)
		}
	})
	return nil
}

// RemoveHighlight deletes the highlight locally for good and fires a
// best-effort remote delete.
func (o *Outbox) RemoveHighlight(ctx context.Context, id string) error {
	if err := o.store.DeleteHighlight(ctx, id); err != nil {
		return err
	}

	o.async(func(ctx context.Context) {
		if err := o.gateway.DeleteHighlight(ctx, id); err != nil && !errors.Is(err, remote.ErrNotFound) {
			o.surface(ctx, "highlight could not be removed from the server", err)
		}
	})
	return nil
}

// SetHighlightLabels replaces the highlight's labels locally and pushes
// the new set.
func (o *Outbox) SetHighlightLabels(ctx context.Context, highlightID string, labelIDs []string) error {
	if err := o.store.SetHighlightLabels(ctx, highlightID, labelIDs); err != nil {
		return err
	}
	o.async(func(ctx context.Context) {
		if err := o.gateway.SetHighlightLabels(ctx, highlightID, labelIDs); err != nil && !errors.Is(err, remote.ErrNotFound) {
			o.surface(ctx, "labels could not be saved to the server", err)
		}
	})
	return nil
}

// ---- items ----

// SaveCapture stores a page capture locally (lookup-or-create on the
// normalized URL) and schedules the remote save. The returned item is
// visible in the library immediately with status needs-creation.
func (o *Outbox) SaveCapture(ctx context.Context, capture models.PageCapture) (*models.Item, error) {
	it, err := o.store.SaveCapture(ctx, capture)
	if err != nil {
		return nil, err
	}

	id, createdID, pageURL := it.ID, it.CreatedID, it.PageURL
	o.async(func(ctx context.Context) {
		if err := o.gateway.SaveURL(ctx, createdID, pageURL); err != nil {
			if o.surfaceCreateErrors {
				o.surface(ctx, "page could not be saved to the server", err)
			} else {
				o.log.Warn(ctx, "outbox: page save failed, will retry on flush", "id", id, "error", err)
			}
			return
		}
		if err := o.store.SetItemStatus(ctx, id, models.StatusInSync); err != nil && !errors.Is(err, common.ErrNotFound) {
			o.log.Error(ctx, "outbox: failed to mark item in sync", "id", id, "error", err)
		}
	})
	return it, nil
}

// ArchiveItem flips the archived flag locally and reconciles it
// asynchronously.
func (o *Outbox) ArchiveItem(ctx context.Context, itemID string, archived bool) error {
	err := o.store.SetItemArchived(ctx, itemID, archived, models.StatusNeedsUpdate)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	o.async(func(ctx context.Context) {
		if err := o.gateway.ArchiveItem(ctx, itemID, archived); err != nil {
			if !errors.Is(err, remote.ErrNotFound) {
				o.surface(ctx, "archive state could not be saved to the server", err)
			}
			return
		}
		if err := o.store.SetItemStatus(ctx, itemID, models.StatusInSync); err != nil && !errors.Is(err, common.ErrNotFound) {
			o.log.Error(ctx, "outbox: failed to mark item in sync", "id", itemID, "error", err)
		}
	})
	return nil
}

// DeleteItem tombstones the item (needs-deletion, hidden from normal
// views immediately) and removes the row once the server confirms.
func (o *Outbox) DeleteItem(ctx context.Context, itemID string) error {
	err := o.store.SetItemStatus(ctx, itemID, models.StatusNeedsDeletion)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	o.async(func(ctx context.Context) {
		err := o.gateway.DeleteItem(ctx, itemID)
		if err != nil && !errors.Is(err, remote.ErrNotFound) {
			// Tombstone stays; Flush retries later.
			o.surface(ctx, "item could not be deleted from the server", err)
			return
		}
		if err := o.store.DeleteItem(ctx, itemID); err != nil {
			o.log.Error(ctx, "outbox: failed to drop deleted item", "id", itemID, "error", err)
		}
	})
	return nil
}

// SnoozeItem asks the server to hide the item until the given time and
// archives it locally on success. Unlike the other paths this one is
// synchronous: a snooze failure is surfaced to the caller directly.
func (o *Outbox) SnoozeItem(ctx context.Context, itemID string, until time.Time) error {
	if err := o.gateway.SnoozeItem(ctx, itemID, until); err != nil {
		return fmt.Errorf("failed to snooze item: %w", err)
	}
	err := o.store.SetItemArchived(ctx, itemID, true, models.StatusInSync)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

// SetItemLabels replaces the item's labels locally and pushes the new set.
func (o *Outbox) SetItemLabels(ctx context.Context, itemID string, labelIDs []string) error {
	if err := o.store.SetItemLabels(ctx, itemID, labelIDs); err != nil {
		return err
	}
	o.async(func(ctx context.Context) {
		if err := o.gateway.SetItemLabels(ctx, itemID, labelIDs); err != nil && !errors.Is(err, remote.ErrNotFound) {
			o.surface(ctx, "labels could not be saved to the server", err)
		}
	})
	return nil
}

// ---- labels ----

// CreateLabel stores the label optimistically and reconciles the id the
// server assigns.
func (o *Outbox) CreateLabel(ctx context.Context, name, color, description string) (*models.Label, error) {
	l := &models.Label{
		ID:          uuid.NewString(),
		Name:        name,
		Color:       color,
		Description: description,
		SyncStatus:  models.StatusNeedsCreation,
	}
	if err := o.store.UpsertLabel(ctx, l); err != nil {
		return nil, err
	}

	localID := l.ID
	o.async(func(ctx context.Context) {
		created, err := o.gateway.CreateLabel(ctx, *l)
		if err != nil {
			if o.surfaceCreateErrors {
				o.surface(ctx, "label could not be saved to the server", err)
			}
			return
		}
		if created.ID != localID {
			if err := o.store.DeleteLabel(ctx, localID); err != nil {
				o.log.Error(ctx, "outbox: failed to drop provisional label", "id", localID, "error", err)
			}
		}
		created.SyncStatus = models.StatusInSync
		if err := o.store.UpsertLabel(ctx, created); err != nil {
			o.log.Error(ctx, "outbox: failed to store created label", "id", created.ID, "error", err)
		}
	})
	return l, nil
}

// DeleteLabel removes the label locally and fires a best-effort remote
// delete.
func (o *Outbox) DeleteLabel(ctx context.Context, labelID string) error {
	if err := o.store.DeleteLabel(ctx, labelID); err != nil {
		return err
	}
	o.async(func(ctx context.Context) {
		if err := o.gateway.DeleteLabel(ctx, labelID); err != nil && !errors.Is(err, remote.ErrNotFound) {
			o.surface(ctx, "label could not be deleted from the server", err)
		}
	})
	return nil
}

// ---- retry sweep ----

// Flush walks every pending record and retries its remote call with
// backoff. Individual failures are logged and skipped; the sweep keeps
// going so one unreachable record cannot starve the rest. Sync runs
// Flush before applying deltas so locally-originated changes are not
// clobbered by a last-write-wins merge.
func (o *Outbox) Flush(ctx context.Context) error {
	items, err := o.store.PendingItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending items: %w", err)
	}
	for i := range items {
		o.flushItem(ctx, &items[i])
	}

	hs, err := o.store.PendingHighlights(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending highlights: %w", err)
	}
	for i := range hs {
		o.flushHighlight(ctx, &hs[i])
	}

	ls, err := o.store.PendingLabels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending labels: %w", err)
	}
	for i := range ls {
		o.flushLabel(ctx, &ls[i])
	}

	return nil
}

func (o *Outbox) flushItem(ctx context.Context, it *models.Item) {
	var err error
	switch it.SyncStatus {
	case models.StatusNeedsCreation:
		err = o.withRetry(ctx, func(ctx context.Context) error {
			return o.gateway.SaveURL(ctx, it.CreatedID, it.PageURL)
		})
		if err == nil {
			err = o.store.SetItemStatus(ctx, it.ID, models.StatusInSync)
		}
	case models.StatusNeedsUpdate:
		err = o.withRetry(ctx, func(ctx context.Context) error {
			return o.gateway.ArchiveItem(ctx, it.ID, it.IsArchived)
		})
		if err == nil || errors.Is(err, remote.ErrNotFound) {
			err = o.store.SetItemStatus(ctx, it.ID, models.StatusInSync)
		}
	case models.StatusNeedsDeletion:
		err = o.withRetry(ctx, func(ctx context.Context) error {
			return o.gateway.DeleteItem(ctx, it.ID)
		})
		if err == nil || errors.Is(err, remote.ErrNotFound) {
			err = o.store.DeleteItem(ctx, it.ID)
		}
	}
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		o.log.Warn(ctx, "outbox: item reconciliation failed",
			"id", it.ID, "status", it.SyncStatus.String(), "error", err)
	}
}

func (o *Outbox) flushHighlight(ctx context.Context, h *models.Highlight) {
	var err error
	switch h.SyncStatus {
	case models.StatusNeedsCreation:
		err = o.withRetry(ctx, func(ctx context.Context) error {
			_, e := o.gateway.CreateHighlight(ctx, remote.HighlightInput{
				ID:                  h.ID,
				ShortID:             h.ShortID,
				ItemID:              h.ItemID,
				Quote:               h.Quote,
				Patch:               h.Patch,
				Annotation:          h.Annotation,
				PositionPercent:     h.PositionPercent,
				PositionAnchorIndex: h.PositionAnchorIndex,
			})
			return e
		})
		if err == nil {
			err = o.store.SetHighlightStatus(ctx, h.ID, models.StatusInSync)
		}
	case models.StatusNeedsUpdate:
		err = o.withRetry(ctx, func(ctx context.Context) error {
			return o.gateway.UpdateHighlight(ctx, h.ID, h.Annotation)
		})
		if err == nil || errors.Is(err, remote.ErrNotFound) {
			err = o.store.SetHighlightStatus(ctx, h.ID, models.StatusInSync)
		}
	case models.StatusNeedsDeletion:
		err = o.withRetry(ctx, func(ctx context.Context) error {
			return o.gateway.DeleteHighlight(ctx, h.ID)
		})
		if err == nil || errors.Is(err, remote.ErrNotFound) {
			err = o.store.DeleteHighlight(ctx, h.ID)
		}
	}
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		o.log.Warn(ctx, "outbox: highlight reconciliation failed",
			"id", h.ID, "status", h.SyncStatus.String(), "error", err)
	}
}

func (o *Outbox) flushLabel(ctx context.Context, l *models.Label) {
	var err error
	switch l.SyncStatus {
	case models.StatusNeedsCreation:
		var created *models.Label
		err = o.withRetry(ctx, func(ctx context.Context) error {
			var e error
			created, e = o.gateway.CreateLabel(ctx, *l)
			return e
		})
		if err == nil {
			if created.ID != l.ID {
				_ = o.store.DeleteLabel(ctx, l.ID)
			}
			created.SyncStatus = models.StatusInSync
			err = o.store.UpsertLabel(ctx, created)
		}
	case models.StatusNeedsDeletion:
		err = o.withRetry(ctx, func(ctx context.Context) error {
			return o.gateway.DeleteLabel(ctx, l.ID)
		})
		if err == nil || errors.Is(err, remote.ErrNotFound) {
			err = o.store.DeleteLabel(ctx, l.ID)
		}
	}
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		o.log.Warn(ctx, "outbox: label reconciliation failed",
			"id", l.ID, "status", l.SyncStatus.String(), "error", err)
	}
}
