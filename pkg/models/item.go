package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Item is one discrete calendar/action fact extracted from an email.
// Content is never mutated after creation; IsCurrent flips true→false
// exactly once, and SupersededBy then points at the final current item
// in its lineage (chains are collapsed when the replacement is written).
type Item struct {
	ID            string         `db:"id"`
	SourceEmailID int64          `db:"source_email_id"`
	Content       string         `db:"content"`
	DateStart     sql.NullString `db:"date_start"` // YYYY-MM-DD
	DateEnd       sql.NullString `db:"date_end"`
	URLs          string         `db:"external_urls"` // JSON array of fingerprint URLs
	IsCurrent     bool           `db:"is_current"`
	SupersededBy  sql.NullString `db:"superseded_by"`
	CreatedAt     time.Time      `db:"created_at"`
}

// URLList decodes the stored URL fingerprint set. A malformed or empty
// column decodes to nil rather than an error.
func (i *Item) URLList() []string {
	if i.URLs == "" {
		return nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(i.URLs), &urls); err != nil {
		return nil
	}
	return urls
}

// SetURLList encodes a URL fingerprint set into the stored column
func (i *Item) SetURLList(urls []string) {
	if len(urls) == 0 {
		i.URLs = "[]"
		return
	}
	data, err := json.Marshal(urls)
	if err != nil {
		i.URLs = "[]"
		return
	}
	i.URLs = string(data)
}
