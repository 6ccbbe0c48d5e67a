package database

import (
	"context"
	"fmt"

	"github.com/vsood/schoolmail/pkg/models"
)

// ListStatusesByItem returns every user's status row attached to an item
func (db *DB) ListStatusesByItem(ctx context.Context, itemID string) ([]*models.UserItemStatus, error) {
	var statuses []*models.UserItemStatus
	query := `SELECT * FROM user_items WHERE item_id = ?`
	if err := db.SelectContext(ctx, &statuses, query, itemID); err != nil {
		return nil, fmt.Errorf("failed to list user statuses: %w", err)
	}
	return statuses, nil
}

// CreateStatus inserts a user's status row for an item. Returns
// ErrAlreadyExists when the user already has a row for that item; the
// existing row always wins.
func (db *DB) CreateStatus(ctx context.Context, status *models.UserItemStatus) error {
	query := `
		INSERT OR IGNORE INTO user_items (user_id, item_id, status, remind_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := db.ExecContext(ctx, query,
		status.UserID,
		status.ItemID,
		status.Status,
		status.RemindAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}
