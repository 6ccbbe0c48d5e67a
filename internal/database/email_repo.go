package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vsood/schoolmail/pkg/models"
)

// ErrNotFound is returned when a record is not found
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned when trying to insert a duplicate record
var ErrAlreadyExists = errors.New("record already exists")

// CreateEmail creates a full email row after the privacy gate passed.
// Returns ErrAlreadyExists if the external message id is already stored.
func (db *DB) CreateEmail(ctx context.Context, email *models.Email) error {
	query := `
		INSERT OR IGNORE INTO emails (external_message_id, subject, sender, occurred_at, body, privacy_check_passed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		email.ExternalMessageID,
		email.Subject,
		email.Sender,
		email.OccurredAt,
		email.Body,
		email.PrivacyCheckPassed,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create email: %w", err)
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

	email.ID = id
	email.CreatedAt = now
	return nil
}

// CreateFailedEmail stores the minimal row for an email that failed the
// privacy gate: external id and the failed flag only, no subject or body.
func (db *DB) CreateFailedEmail(ctx context.Context, externalMessageID string) error {
	query := `
		INSERT OR IGNORE INTO emails (external_message_id, privacy_check_passed, created_at)
		VALUES (?, false, ?)
	`
	result, err := db.ExecContext(ctx, query, externalMessageID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to create failed email record: %w", err)
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

// EmailExists reports whether an email with the given external message id is stored.
func (db *DB) EmailExists(ctx context.Context, externalMessageID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM emails WHERE external_message_id = ?`
	if err := db.GetContext(ctx, &count, query, externalMessageID); err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return count > 0, nil
}

// GetEmailByExternalID returns an email by its external message id
func (db *DB) GetEmailByExternalID(ctx context.Context, externalMessageID string) (*models.Email, error) {
	var email models.Email
	query := `SELECT * FROM emails WHERE external_message_id = ?`
	err := db.GetContext(ctx, &email, query, externalMessageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email: %w", err)
	}
	return &email, nil
}

// MostRecentEmailCreatedAt returns the creation time of the newest stored
// email, or nil when the table is empty. Used as the inclusive lower bound
// for the next mailbox query.
func (db *DB) MostRecentEmailCreatedAt(ctx context.Context) (*time.Time, error) {
	var createdAt time.Time
	query := `SELECT created_at FROM emails ORDER BY created_at DESC LIMIT 1`
	err := db.GetContext(ctx, &createdAt, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get most recent email time: %w", err)
	}
	return &createdAt, nil
}

// UpdateEmailOccurredAt sets the best-effort original date of an email
func (db *DB) UpdateEmailOccurredAt(ctx context.Context, id int64, occurredAt time.Time) error {
	query := `UPDATE emails SET occurred_at = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, occurredAt, id); err != nil {
		return fmt.Errorf("failed to update occurred_at: %w", err)
	}
	return nil
}

// ListEmails returns all stored emails, oldest first
func (db *DB) ListEmails(ctx context.Context) ([]*models.Email, error) {
	var emails []*models.Email
	query := `SELECT * FROM emails ORDER BY created_at ASC`
	if err := db.SelectContext(ctx, &emails, query); err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	return emails, nil
}
