package highlights

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pagekeep/pagekeep/internal/client/models"
	"github.com/pagekeep/pagekeep/internal/common"
	"github.com/pagekeep/pagekeep/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const highlightColumns = `h.id, h.short_id, h.item_id, h.quote, h.patch, h.annotation,
	h.prefix, h.suffix, h.position_percent, h.position_anchor_index,
	h.created_by_me, h.created_at, h.updated_at, h.sync_status`

func scanHighlight(row interface{ Scan(...any) error }) (*models.Highlight, error) {
	var h models.Highlight
	var byMe int64
	var createdAt, updatedAt int64
	var status int64
	err := row.Scan(&h.ID, &h.ShortID, &h.ItemID, &h.Quote, &h.Patch, &h.Annotation,
		&h.Prefix, &h.Suffix, &h.PositionPercent, &h.PositionAnchorIndex,
		&byMe, &createdAt, &updatedAt, &status)
	if err != nil {
		return nil, err
	}
	h.CreatedByMe = byMe != 0
	h.CreatedAt = time.UnixMilli(createdAt).UTC()
	h.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	h.SyncStatus = models.SyncStatus(status)
	return &h, nil
}

func highlightArgs(h *models.Highlight) []any {
	byMe := 0
	if h.CreatedByMe {
		byMe = 1
	}
	return []any{h.ID, h.ShortID, h.ItemID, h.Quote, h.Patch, h.Annotation,
		h.Prefix, h.Suffix, h.PositionPercent, h.PositionAnchorIndex,
		byMe, h.CreatedAt.UnixMilli(), h.UpdatedAt.UnixMilli(), int64(h.SyncStatus)}
}

func (r *SQLiteRepository) Insert(ctx context.Context, h *models.Highlight) error {
	query := `INSERT INTO highlights (id, short_id, item_id, quote, patch, annotation,
			prefix, suffix, position_percent, position_anchor_index,
			created_by_me, created_at, updated_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, highlightArgs(h)...); err != nil {
		return fmt.Errorf("failed to insert highlight: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, h *models.Highlight) error {
	query := `INSERT INTO highlights (id, short_id, item_id, quote, patch, annotation,
			prefix, suffix, position_percent, position_anchor_index,
			created_by_me, created_at, updated_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			short_id = excluded.short_id,
			quote = excluded.quote,
			patch = excluded.patch,
			annotation = excluded.annotation,
			prefix = excluded.prefix,
			suffix = excluded.suffix,
			position_percent = excluded.position_percent,
			position_anchor_index = excluded.position_anchor_index,
			updated_at = excluded.updated_at,
			sync_status = excluded.sync_status
		WHERE excluded.updated_at >= highlights.updated_at`
	if _, err := r.db.ExecContext(ctx, query, highlightArgs(h)...); err != nil {
		return fmt.Errorf("failed to upsert highlight: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Highlight, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+highlightColumns+` FROM highlights h WHERE h.id = ?`, id)
	h, err := scanHighlight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get highlight: %w", err)
	}
	if err := r.attachLabels(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (r *SQLiteRepository) ListByItem(ctx context.Context, itemID string) ([]models.Highlight, error) {
	query := `SELECT ` + highlightColumns + ` FROM highlights h WHERE h.item_id = ? ORDER BY h.created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list highlights: %w", err)
	}
	defer rows.Close()

	var result []models.Highlight
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		if err := r.attachLabels(ctx, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]models.Highlight, error) {
	query := `SELECT ` + highlightColumns + ` FROM highlights h WHERE h.sync_status != ? ORDER BY h.updated_at ASC`
	rows, err := r.db.QueryContext(ctx, query, int64(models.StatusInSync))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending highlights: %w", err)
	}
	defer rows.Close()

	var result []models.Highlight
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *h)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) UpdateAnnotation(ctx context.Context, id, annotation string, status models.SyncStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE highlights SET annotation = ?, sync_status = ?, updated_at = ? WHERE id = ?`,
		annotation, int64(status), time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update annotation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) SetSyncStatus(ctx context.Context, id string, status models.SyncStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE highlights SET sync_status = ? WHERE id = ?`, int64(status), id)
	if err != nil {
		return fmt.Errorf("failed to set highlight sync status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ReplaceLabels(ctx context.Context, highlightID string, labelIDs []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM highlight_labels WHERE highlight_id = ?`, highlightID); err != nil {
		return fmt.Errorf("failed to clear highlight labels: %w", err)
	}
	for _, labelID := range labelIDs {
		_, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO highlight_labels (highlight_id, label_id) VALUES (?, ?)`, highlightID, labelID)
		if err != nil {
			return fmt.Errorf("failed to link label: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM highlights WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete highlight: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM highlights`); err != nil {
		return fmt.Errorf("failed to clear highlights: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) attachLabels(ctx context.Context, h *models.Highlight) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.id, l.name, l.color, l.description, l.sync_status
		FROM labels l JOIN highlight_labels hl ON hl.label_id = l.id
		WHERE hl.highlight_id = ?
		ORDER BY LOWER(l.name)`, h.ID)
	if err != nil {
		return fmt.Errorf("failed to load highlight labels: %w", err)
	}
	defer rows.Close()

	h.Labels = nil
	for rows.Next() {
		var l models.Label
		var status int64
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &l.Description, &status); err != nil {
			return err
		}
		l.SyncStatus = models.SyncStatus(status)
		h.Labels = append(h.Labels, l)
	}
	return rows.Err()
}
