package models

import "database/sql"

// Attachment is a file stored alongside an email that passed the
// privacy gate. ItemID is set at most once, when the extraction step
// names the file in an item's attachment_filenames list.
type Attachment struct {
	ID           int64          `db:"id"`
	EmailID      int64          `db:"email_id"`
	Filename     string         `db:"filename"`
	MimeType     string         `db:"mime_type"`
	SizeBytes    int64          `db:"size_bytes"`
	BlobLocation string         `db:"blob_location"`
	ItemID       sql.NullString `db:"item_id"`
}
