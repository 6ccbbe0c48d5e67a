package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vsood/schoolmail/internal/database"
	"github.com/vsood/schoolmail/pkg/models"
)

// Superseder retires a duplicated item in favor of the one that replaced
// it and carries each user's status over. Safe to call twice with the
// same arguments: the retire write is a plain update and status rows are
// copied with first-write-wins semantics.
type Superseder struct {
	db     *database.DB
	logger *slog.Logger
}

// NewSuperseder creates a new superseder
func NewSuperseder(db *database.DB, logger *slog.Logger) *Superseder {
	return &Superseder{db: db, logger: logger}
}

// Supersede marks oldID as replaced by newID, then copies every user
// status row from the old item to the new one. The retire write happens
// first so no reader sees the old item as current while its statuses are
// being absorbed. Old status rows are kept for audit.
func (s *Superseder) Supersede(ctx context.Context, oldID, newID string) error {
	if oldID == newID {
		return fmt.Errorf("item cannot supersede itself: %s", oldID)
	}

	if err := s.db.MarkSuperseded(ctx, oldID, newID); err != nil {
		return fmt.Errorf("failed to retire item %s: %w", oldID, err)
	}

	statuses, err := s.db.ListStatusesByItem(ctx, oldID)
	if err != nil {
		return fmt.Errorf("failed to list statuses of %s: %w", oldID, err)
	}

	for _, status := range statuses {
		err := s.db.CreateStatus(ctx, &models.UserItemStatus{
			UserID:   status.UserID,
			ItemID:   newID,
			Status:   status.Status,
			RemindAt: status.RemindAt,
		})
		if errors.Is(err, database.ErrAlreadyExists) {
			// the user's existing status on the new item wins
			continue
		}
		if err != nil {
			// one user's migration failing is not fatal to the operation
			s.logger.Warn("could not migrate user status",
				"user_id", status.UserID,
				"old_item", oldID,
				"new_item", newID,
				"error", err,
			)
		}
	}

	return nil
}
