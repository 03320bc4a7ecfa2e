package labels

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *SQLiteRepository) Upsert(ctx context.Context, l *models.Label) error {
	query := `INSERT INTO labels (id, name, color, description, sync_status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			description = excluded.description,
			sync_status = excluded.sync_status`
	_, err := r.db.ExecContext(ctx, query, l.ID, l.Name, l.Color, l.Description, int64(l.SyncStatus))
	if err != nil {
		return fmt.Errorf("failed to upsert label: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Label, error) {
	var l models.Label
	var status int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, color, description, sync_status FROM labels WHERE id = ?`, id).
		Scan(&l.ID, &l.Name, &l.Color, &l.Description, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get label: %w", err)
	}
	l.SyncStatus = models.SyncStatus(status)
	return &l, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Label, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color, description, sync_status FROM labels
		 WHERE sync_status != ? ORDER BY LOWER(name)`, int64(models.StatusNeedsDeletion))
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]models.Label, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color, description, sync_status FROM labels
		 WHERE sync_status != ? ORDER BY LOWER(name)`, int64(models.StatusInSync))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending labels: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows *sql.Rows) ([]models.Label, error) {
	var result []models.Label
	for rows.Next() {
		var l models.Label
		var status int64
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &l.Description, &status); err != nil {
			return nil, err
		}
		l.SyncStatus = models.SyncStatus(status)
		result = append(result, l)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) SetSyncStatus(ctx context.Context, id string, status models.SyncStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE labels SET sync_status = ? WHERE id = ?`, int64(status), id)
	if err != nil {
		return fmt.Errorf("failed to set label sync status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM labels WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete label: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM labels`); err != nil {
		return fmt.Errorf("failed to clear labels: %w", err)
	}
	return nil
}
