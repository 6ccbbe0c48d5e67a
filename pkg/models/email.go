package models

import (
	"database/sql"
	"time"
)

// Email represents one forwarded school email. The body is only ever
// populated when the privacy gate passed; failed emails keep a minimal
// row so they are not re-fetched on later runs.
type Email struct {
	ID                 int64          `db:"id"`
	ExternalMessageID  string         `db:"external_message_id"` // mailbox message id, unique
	Subject            string         `db:"subject"`
	Sender             string         `db:"sender"`
	OccurredAt         sql.NullTime   `db:"occurred_at"` // best-effort original date
	Body               sql.NullString `db:"body"`
	PrivacyCheckPassed sql.NullBool   `db:"privacy_check_passed"` // null = not yet classified
	CreatedAt          time.Time      `db:"created_at"`
}
