package contentcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pagekeep/pagekeep/internal/common"
	"github.com/pagekeep/pagekeep/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, itemID, username string, content []byte, fetchedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO content_cache (item_id, username, content, fetched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(item_id, username) DO UPDATE SET content = excluded.content, fetched_at = excluded.fetched_at
	`, itemID, username, content, fetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to cache content for %s: %w", itemID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, itemID, username string) ([]byte, error) {
	var content []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT content FROM content_cache WHERE item_id = ? AND username = ?`, itemID, username).
		Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached content for %s: %w", itemID, err)
	}
	return content, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, itemID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM content_cache WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("failed to drop cached content for %s: %w", itemID, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM content_cache`); err != nil {
		return fmt.Errorf("failed to clear content cache: %w", err)
	}
	return nil
}
