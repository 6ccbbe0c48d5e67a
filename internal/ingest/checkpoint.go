package ingest

import (
	"context"
	"time"

	"github.com/vsood/schoolmail/internal/database"
)

// NextCheckpoint returns the low-water mark for the next mailbox query:
// the creation time of the most recently stored email, or nil when
// nothing is stored yet (fetch everything). The bound is inclusive; the
// overlap re-fetches at most a handful of messages, which the
// already-stored check turns into no-ops.
func NextCheckpoint(ctx context.Context, db *database.DB) (*time.Time, error) {
	return db.MostRecentEmailCreatedAt(ctx)
}
