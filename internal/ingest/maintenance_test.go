package ingest

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/vsood/schoolmail/internal/database"
	"github.com/vsood/schoolmail/internal/dedup"
	"github.com/vsood/schoolmail/pkg/models"
)

func newTestMaintenance(db *database.DB) *Maintenance {
	return NewMaintenance(
		db,
		dedup.NewURLExtractor([]string{"supabase.co", "unsubscribe", "mailto:"}),
		0.85,
		slog.Default(),
	)
}

func storedDatedItem(t *testing.T, db *database.DB, emailID int64, content, dateStart string) *models.Item {
	t.Helper()
	item := &models.Item{
		SourceEmailID: emailID,
		Content:       content,
		IsCurrent:     true,
	}
	if dateStart != "" {
		item.DateStart = sql.NullString{String: dateStart, Valid: true}
	}
	if err := db.CreateItem(context.Background(), item); err != nil {
		t.Fatalf("failed to create item: %v", err)
	}
	return item
}

func TestDedupCurrent_FoldsSharedURL(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	email := storedEmail(t, db, "<m-1@x>")

	// same signup link, wording too different for a text match
	old := storedDatedItem(t, db, email.ID,
		"Sign up here: https://forms.example.com/trip", "2025-10-20")
	newer := storedDatedItem(t, db, email.ID,
		"Field trip volunteers needed, register at https://forms.example.com/trip today", "2025-10-20")
	unrelated := storedDatedItem(t, db, email.ID,
		"Library books due Friday", "2025-10-20")

	m := newTestMaintenance(db)
	if err := m.DedupCurrent(ctx); err != nil {
		t.Fatalf("dedup failed: %v", err)
	}

	got, err := db.GetItemByID(ctx, old.ID)
	if err != nil {
		t.Fatalf("failed to reload old item: %v", err)
	}
	if got.IsCurrent {
		t.Error("expected older item retired")
	}
	if !got.SupersededBy.Valid || got.SupersededBy.String != newer.ID {
		t.Errorf("expected superseded_by = %s, got %+v", newer.ID, got.SupersededBy)
	}

	for _, id := range []string{newer.ID, unrelated.ID} {
		item, err := db.GetItemByID(ctx, id)
		if err != nil {
			t.Fatalf("failed to reload item: %v", err)
		}
		if !item.IsCurrent {
			t.Errorf("expected item %s to stay current", id)
		}
	}
}

func TestDedupCurrent_SharedURLDifferentDatesKept(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	email := storedEmail(t, db, "<m-2@x>")

	storedDatedItem(t, db, email.ID,
		"Order lunch at https://lunch.example.com/order", "2025-10-06")
	storedDatedItem(t, db, email.ID,
		"Order lunch at https://lunch.example.com/order", "2025-10-13")

	m := newTestMaintenance(db)
	if err := m.DedupCurrent(ctx); err != nil {
		t.Fatalf("dedup failed: %v", err)
	}

	current, err := db.ListCurrentItems(ctx)
	if err != nil {
		t.Fatalf("failed to list current items: %v", err)
	}
	if len(current) != 2 {
		t.Errorf("expected recurring items on different dates kept, got %d current", len(current))
	}
}

func TestDedupCurrent_FoldsSimilarText(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	email := storedEmail(t, db, "<m-3@x>")

	old := storedDatedItem(t, db, email.ID, "Picture day is October 10, wear uniforms", "2025-10-10")
	newer := storedDatedItem(t, db, email.ID, "Picture day is October 10, wear uniforms!", "2025-10-10")
	other := storedDatedItem(t, db, email.ID, "Band concert in the gym at 7 PM", "2025-10-10")

	m := newTestMaintenance(db)
	if err := m.DedupCurrent(ctx); err != nil {
		t.Fatalf("dedup failed: %v", err)
	}

	got, err := db.GetItemByID(ctx, old.ID)
	if err != nil {
		t.Fatalf("failed to reload old item: %v", err)
	}
	if got.IsCurrent {
		t.Error("expected older duplicate retired")
	}
	if !got.SupersededBy.Valid || got.SupersededBy.String != newer.ID {
		t.Errorf("expected superseded_by = %s, got %+v", newer.ID, got.SupersededBy)
	}

	kept, err := db.GetItemByID(ctx, other.ID)
	if err != nil {
		t.Fatalf("failed to reload item: %v", err)
	}
	if !kept.IsCurrent {
		t.Error("expected dissimilar item to stay current")
	}
}

func TestDedupCurrent_BackfillsURLFingerprints(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	email := storedEmail(t, db, "<m-4@x>")
	item := storedDatedItem(t, db, email.ID,
		"RSVP at https://rsvp.example.com/gala. Unsubscribe: https://list.example.com/unsubscribe", "")

	m := newTestMaintenance(db)
	if err := m.DedupCurrent(ctx); err != nil {
		t.Fatalf("dedup failed: %v", err)
	}

	got, err := db.GetItemByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("failed to reload item: %v", err)
	}
	urls := got.URLList()
	if len(urls) != 1 || urls[0] != "https://rsvp.example.com/gala" {
		t.Errorf("expected single denylist-filtered fingerprint, got %v", urls)
	}
}

func TestBackfillDateEnds(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	email := storedEmail(t, db, "<m-5@x>")

	ranged := storedDatedItem(t, db, email.ID, "Book fair December 4-7 in the library", "2025-12-04")
	inverted := storedDatedItem(t, db, email.ID, "Makeup window December 4-7", "2025-12-10")
	plain := storedDatedItem(t, db, email.ID, "Early dismissal at noon", "2025-12-04")

	m := newTestMaintenance(db)
	if err := m.BackfillDateEnds(ctx); err != nil {
		t.Fatalf("backfill failed: %v", err)
	}

	got, err := db.GetItemByID(ctx, ranged.ID)
	if err != nil {
		t.Fatalf("failed to reload item: %v", err)
	}
	if !got.DateEnd.Valid || got.DateEnd.String != "2025-12-07" {
		t.Errorf("expected date_end 2025-12-07, got %+v", got.DateEnd)
	}

	// extracted end precedes the start date; row must be left untouched
	got, err = db.GetItemByID(ctx, inverted.ID)
	if err != nil {
		t.Fatalf("failed to reload item: %v", err)
	}
	if got.DateEnd.Valid {
		t.Errorf("expected inverted range skipped, got date_end %q", got.DateEnd.String)
	}

	got, err = db.GetItemByID(ctx, plain.ID)
	if err != nil {
		t.Fatalf("failed to reload item: %v", err)
	}
	if got.DateEnd.Valid {
		t.Errorf("expected no date_end without a range, got %q", got.DateEnd.String)
	}
}

func TestFixEmailDates(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	forwarded := &models.Email{
		ExternalMessageID: "<fwd-1@x>",
		Subject:           "Fwd: Fall festival",
		Sender:            "parent@family.example",
		OccurredAt:        sql.NullTime{Time: time.Date(2025, time.October, 20, 8, 0, 0, 0, time.UTC), Valid: true},
		Body: sql.NullString{
			String: "---------- Forwarded message ----------\nFrom: office@school.example\nDate: Tue, Oct 14, 2025 at 6:00 PM\n\nFall festival details inside.",
			Valid:  true,
		},
		PrivacyCheckPassed: sql.NullBool{Bool: true, Valid: true},
	}
	if err := db.CreateEmail(ctx, forwarded); err != nil {
		t.Fatalf("failed to create email: %v", err)
	}

	direct := storedEmail(t, db, "<direct-1@x>")

	m := newTestMaintenance(db)
	if err := m.FixEmailDates(ctx); err != nil {
		t.Fatalf("fix-dates failed: %v", err)
	}

	got, err := db.GetEmailByExternalID(ctx, forwarded.ExternalMessageID)
	if err != nil {
		t.Fatalf("failed to reload email: %v", err)
	}
	want := time.Date(2025, time.October, 14, 18, 0, 0, 0, time.UTC)
	if !got.OccurredAt.Valid || !got.OccurredAt.Time.Equal(want) {
		t.Errorf("expected occurred_at %v, got %+v", want, got.OccurredAt)
	}

	got, err = db.GetEmailByExternalID(ctx, direct.ExternalMessageID)
	if err != nil {
		t.Fatalf("failed to reload email: %v", err)
	}
	if got.OccurredAt.Valid {
		t.Errorf("expected email without forwarded header untouched, got %+v", got.OccurredAt)
	}
}
