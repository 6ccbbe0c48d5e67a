package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vsood/schoolmail/pkg/models"
)

// CreateItem inserts a new extracted item, always as current. The ID is
// generated here when the caller leaves it empty.
func (db *DB) CreateItem(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.URLs == "" {
		item.URLs = "[]"
	}
	now := time.Now()
	query := `
		INSERT INTO items (id, source_email_id, content, date_start, date_end, external_urls, is_current, superseded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		item.ID,
		item.SourceEmailID,
		item.Content,
		item.DateStart,
		item.DateEnd,
		item.URLs,
		item.IsCurrent,
		item.SupersededBy,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	item.CreatedAt = now
	return nil
}

// GetItemByID returns an item by ID
func (db *DB) GetItemByID(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	query := `SELECT * FROM items WHERE id = ?`
	err := db.GetContext(ctx, &item, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

// ListCurrentItems returns all items with is_current = true, oldest first.
// The stable order matters: match resolution picks the first qualifying item.
func (db *DB) ListCurrentItems(ctx context.Context) ([]*models.Item, error) {
	var items []*models.Item
	query := `SELECT * FROM items WHERE is_current = true ORDER BY created_at ASC, id ASC`
	if err := db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("failed to list current items: %w", err)
	}
	return items, nil
}

// ListAllItems returns every item, oldest first
func (db *DB) ListAllItems(ctx context.Context) ([]*models.Item, error) {
	var items []*models.Item
	query := `SELECT * FROM items ORDER BY created_at ASC, id ASC`
	if err := db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// MarkSuperseded retires an item: is_current flips to false and
// superseded_by points at the item that replaced it. Chains collapse at
// write time: any earlier item still pointing at the retired one is
// re-pointed too, so superseded_by always references the final current item.
func (db *DB) MarkSuperseded(ctx context.Context, oldID, newID string) error {
	query := `UPDATE items SET is_current = false, superseded_by = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, newID, oldID); err != nil {
		return fmt.Errorf("failed to mark item superseded: %w", err)
	}

	repoint := `UPDATE items SET superseded_by = ? WHERE superseded_by = ?`
	if _, err := db.ExecContext(ctx, repoint, newID, oldID); err != nil {
		return fmt.Errorf("failed to collapse supersession chain: %w", err)
	}
	return nil
}

// UpdateItemURLs replaces the stored URL fingerprint set of an item
func (db *DB) UpdateItemURLs(ctx context.Context, id string, urlsJSON string) error {
	query := `UPDATE items SET external_urls = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, urlsJSON, id); err != nil {
		return fmt.Errorf("failed to update item urls: %w", err)
	}
	return nil
}

// UpdateItemDateEnd sets the end date of an item
func (db *DB) UpdateItemDateEnd(ctx context.Context, id, dateEnd string) error {
	query := `UPDATE items SET date_end = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, dateEnd, id); err != nil {
		return fmt.Errorf("failed to update item date_end: %w", err)
	}
	return nil
}

// ListItemsMissingDateEnd returns items that have a start date but no end date
func (db *DB) ListItemsMissingDateEnd(ctx context.Context) ([]*models.Item, error) {
	var items []*models.Item
	query := `SELECT * FROM items WHERE date_start IS NOT NULL AND date_end IS NULL ORDER BY created_at ASC`
	if err := db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("failed to list items missing date_end: %w", err)
	}
	return items, nil
}
