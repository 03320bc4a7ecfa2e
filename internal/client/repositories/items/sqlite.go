package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
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

const itemColumns = `i.id, i.created_id, i.title, i.page_url, i.slug, i.description, i.author,
	i.content_reader, i.state, i.is_archived, i.reading_progress,
	i.saved_at, i.created_at, i.updated_at, i.sync_status`

func scanItem(row interface{ Scan(...any) error }) (*models.Item, error) {
	var it models.Item
	var archived int64
	var savedAt, createdAt, updatedAt int64
	var status int64
	err := row.Scan(&it.ID, &it.CreatedID, &it.Title, &it.PageURL, &it.Slug,
		&it.Description, &it.Author, &it.ContentReader, &it.State,
		&archived, &it.ReadingProgress, &savedAt, &createdAt, &updatedAt, &status)
	if err != nil {
		return nil, err
	}
	it.IsArchived = archived != 0
	it.SavedAt = time.UnixMilli(savedAt).UTC()
	it.CreatedAt = time.UnixMilli(createdAt).UTC()
	it.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	it.SyncStatus = models.SyncStatus(status)
	return &it, nil
}

func itemArgs(it *models.Item) []any {
	archived := 0
	if it.IsArchived {
		archived = 1
	}
	return []any{it.ID, it.CreatedID, it.Title, it.PageURL, it.Slug, it.Description,
		it.Author, it.ContentReader, it.State, archived, it.ReadingProgress,
		it.SavedAt.UnixMilli(), it.CreatedAt.UnixMilli(), it.UpdatedAt.UnixMilli(),
		int64(it.SyncStatus)}
}

// Insert stores a brand-new item.
func (r *SQLiteRepository) Insert(ctx context.Context, it *models.Item) error {
	query := `INSERT INTO items (id, created_id, title, page_url, slug, description, author,
			content_reader, state, is_archived, reading_progress,
			saved_at, created_at, updated_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, itemArgs(it)...); err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// Upsert merges by id. The WHERE clause on the conflict update implements
// last-write-wins: a stale incoming row (older updated_at) changes nothing.
func (r *SQLiteRepository) Upsert(ctx context.Context, it *models.Item) error {
	query := `INSERT INTO items (id, created_id, title, page_url, slug, description, author,
			content_reader, state, is_archived, reading_progress,
			saved_at, created_at, updated_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_id = excluded.created_id,
			title = excluded.title,
			page_url = excluded.page_url,
			slug = excluded.slug,
			description = excluded.description,
			author = excluded.author,
			content_reader = excluded.content_reader,
			state = excluded.state,
			is_archived = excluded.is_archived,
			reading_progress = excluded.reading_progress,
			saved_at = excluded.saved_at,
			updated_at = excluded.updated_at,
			sync_status = excluded.sync_status
		WHERE excluded.updated_at >= items.updated_at`
	if _, err := r.db.ExecContext(ctx, query, itemArgs(it)...); err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	if len(it.Labels) > 0 {
		ids := make([]string, 0, len(it.Labels))
		for _, l := range it.Labels {
			ids = append(ids, l.ID)
		}
		return r.ReplaceLabels(ctx, it.ID, ids)
	}
	return nil
}

// Update rewrites all mutable columns of an existing item.
func (r *SQLiteRepository) Update(ctx context.Context, it *models.Item) error {
	query := `UPDATE items SET created_id = ?, title = ?, page_url = ?, slug = ?,
			description = ?, author = ?, content_reader = ?, state = ?,
			is_archived = ?, reading_progress = ?, saved_at = ?, created_at = ?,
			updated_at = ?, sync_status = ?
		WHERE id = ?`
	args := itemArgs(it)
	args = append(args[1:], it.ID)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items i WHERE i.id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if err := r.attachLabels(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (r *SQLiteRepository) GetByURL(ctx context.Context, pageURL string) (*models.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items i WHERE i.page_url = ?`, pageURL)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item by url: %w", err)
	}
	return it, nil
}

// List applies filter, label constraints, sort and paging, then attaches
// labels to each returned item.
func (r *SQLiteRepository) List(ctx context.Context, opts models.ListOptions) ([]models.Item, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + itemColumns + ` FROM items i WHERE `)
	sb.WriteString(opts.Filter.Predicate())

	var args []any
	for _, labelID := range opts.LabelIDs {
		sb.WriteString(` AND EXISTS (SELECT 1 FROM item_labels il WHERE il.item_id = i.id AND il.label_id = ?)`)
		args = append(args, labelID)
	}
	for _, labelID := range opts.NegatedLabelIDs {
		sb.WriteString(` AND NOT EXISTS (SELECT 1 FROM item_labels il WHERE il.item_id = i.id AND il.label_id = ?)`)
		args = append(args, labelID)
	}

	sb.WriteString(" ORDER BY " + opts.Sort.OrderBy())
	if opts.Limit > 0 {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var result []models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *it)
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

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items i WHERE i.sync_status != ? ORDER BY i.updated_at ASC`
	rows, err := r.db.QueryContext(ctx, query, int64(models.StatusInSync))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending items: %w", err)
	}
	defer rows.Close()

	var result []models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *it)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) SetSyncStatus(ctx context.Context, id string, status models.SyncStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE items SET sync_status = ? WHERE id = ?`, int64(status), id)
	if err != nil {
		return fmt.Errorf("failed to set item sync status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) SetArchived(ctx context.Context, id string, archived bool, status models.SyncStatus) error {
	v := 0
	if archived {
		v = 1
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET is_archived = ?, sync_status = ?, updated_at = ? WHERE id = ?`,
		v, int64(status), time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to set item archived: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// ReplaceLabels rewrites the item's label set.
func (r *SQLiteRepository) ReplaceLabels(ctx context.Context, itemID string, labelIDs []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM item_labels WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("failed to clear item labels: %w", err)
	}
	for _, labelID := range labelIDs {
		_, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO item_labels (item_id, label_id) VALUES (?, ?)`, itemID, labelID)
		if err != nil {
			return fmt.Errorf("failed to link label: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) attachLabels(ctx context.Context, it *models.Item) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.id, l.name, l.color, l.description, l.sync_status
		FROM labels l JOIN item_labels il ON il.label_id = l.id
		WHERE il.item_id = ?
		ORDER BY LOWER(l.name)`, it.ID)
	if err != nil {
		return fmt.Errorf("failed to load item labels: %w", err)
	}
	defer rows.Close()

	it.Labels = nil
	for rows.Next() {
		var l models.Label
		var status int64
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &l.Description, &status); err != nil {
			return err
		}
		l.SyncStatus = models.SyncStatus(status)
		it.Labels = append(it.Labels, l)
	}
	return rows.Err()
}
