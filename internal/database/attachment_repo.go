package database

import (
	"context"
	"fmt"

	"github.com/vsood/schoolmail/pkg/models"
)

// CreateAttachment inserts an attachment row. Duplicate (email, filename)
// pairs from a prior partial run are ignored and reported as ErrAlreadyExists.
func (db *DB) CreateAttachment(ctx context.Context, att *models.Attachment) error {
	query := `
		INSERT OR IGNORE INTO attachments (email_id, filename, mime_type, size_bytes, blob_location)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := db.ExecContext(ctx, query,
		att.EmailID,
		att.Filename,
		att.MimeType,
		att.SizeBytes,
		att.BlobLocation,
	)
	if err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAlreadyExists
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	att.ID = id
	return nil
}

// ListAttachmentsByEmail returns all attachments of an email
func (db *DB) ListAttachmentsByEmail(ctx context.Context, emailID int64) ([]*models.Attachment, error) {
	var attachments []*models.Attachment
	query := `SELECT * FROM attachments WHERE email_id = ?`
	if err := db.SelectContext(ctx, &attachments, query, emailID); err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return attachments, nil
}

// LinkAttachmentToItem sets the item back-reference of an attachment.
// The link is written at most once; an already linked attachment is left alone.
func (db *DB) LinkAttachmentToItem(ctx context.Context, attachmentID int64, itemID string) error {
	query := `UPDATE attachments SET item_id = ? WHERE id = ? AND item_id IS NULL`
	if _, err := db.ExecContext(ctx, query, itemID, attachmentID); err != nil {
		return fmt.Errorf("failed to link attachment to item: %w", err)
	}
	return nil
}
