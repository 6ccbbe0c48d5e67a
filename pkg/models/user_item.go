package models

import "database/sql"

// UserItemStatus is one user's relationship to one item (read,
// dismissed, reminder). Unique per (user_id, item_id). Rows are copied,
// never moved, when an item is superseded.
type UserItemStatus struct {
	UserID   string       `db:"user_id"`
	ItemID   string       `db:"item_id"`
	Status   string       `db:"status"`
	RemindAt sql.NullTime `db:"remind_at"`
}
