package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/vsood/schoolmail/pkg/models"
)

func seedEmail(t *testing.T, db *DB, externalID string) int64 {
	t.Helper()
	email := &models.Email{ExternalMessageID: externalID}
	if err := db.CreateEmail(context.Background(), email); err != nil {
		t.Fatalf("failed to seed email: %v", err)
	}
	return email.ID
}

func TestCreateItem_AssignsIDAndDefaults(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	emailID := seedEmail(t, db, "<item-1@x>")

	item := &models.Item{SourceEmailID: emailID, Content: "Bake sale Friday", IsCurrent: true}
	if err := db.CreateItem(ctx, item); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if item.ID == "" {
		t.Error("expected generated id")
	}

	stored, err := db.GetItemByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if stored.URLs != "[]" {
		t.Errorf("expected empty fingerprint set, got %q", stored.URLs)
	}
	if urls := stored.URLList(); len(urls) != 0 {
		t.Errorf("expected no urls, got %v", urls)
	}
}

func TestMarkSuperseded_RemovesFromCurrentSet(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	emailID := seedEmail(t, db, "<item-2@x>")

	old := &models.Item{SourceEmailID: emailID, Content: "old", IsCurrent: true}
	replacement := &models.Item{SourceEmailID: emailID, Content: "new", IsCurrent: true}
	for _, item := range []*models.Item{old, replacement} {
		if err := db.CreateItem(ctx, item); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	if err := db.MarkSuperseded(ctx, old.ID, replacement.ID); err != nil {
		t.Fatalf("mark superseded failed: %v", err)
	}

	current, err := db.ListCurrentItems(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(current) != 1 || current[0].ID != replacement.ID {
		t.Errorf("expected only replacement current, got %d items", len(current))
	}

	all, err := db.ListAllItems(ctx)
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected retired item retained, got %d items", len(all))
	}
}

func TestListItemsMissingDateEnd(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	emailID := seedEmail(t, db, "<item-3@x>")

	missing := &models.Item{
		SourceEmailID: emailID, Content: "fair",
		DateStart: sql.NullString{String: "2025-12-04", Valid: true},
		IsCurrent: true,
	}
	complete := &models.Item{
		SourceEmailID: emailID, Content: "week",
		DateStart: sql.NullString{String: "2025-12-04", Valid: true},
		DateEnd:   sql.NullString{String: "2025-12-07", Valid: true},
		IsCurrent: true,
	}
	undated := &models.Item{SourceEmailID: emailID, Content: "note", IsCurrent: true}
	for _, item := range []*models.Item{missing, complete, undated} {
		if err := db.CreateItem(ctx, item); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	items, err := db.ListItemsMissingDateEnd(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != missing.ID {
		t.Errorf("expected only the dated item without an end, got %d", len(items))
	}
}

func TestLinkAttachmentToItem_FirstLinkWins(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	emailID := seedEmail(t, db, "<item-4@x>")

	first := &models.Item{SourceEmailID: emailID, Content: "a", IsCurrent: true}
	second := &models.Item{SourceEmailID: emailID, Content: "b", IsCurrent: true}
	for _, item := range []*models.Item{first, second} {
		if err := db.CreateItem(ctx, item); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	att := &models.Attachment{EmailID: emailID, Filename: "slip.pdf"}
	if err := db.CreateAttachment(ctx, att); err != nil {
		t.Fatalf("create attachment failed: %v", err)
	}
	dup := &models.Attachment{EmailID: emailID, Filename: "slip.pdf"}
	if err := db.CreateAttachment(ctx, dup); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists for duplicate filename, got %v", err)
	}

	if err := db.LinkAttachmentToItem(ctx, att.ID, first.ID); err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if err := db.LinkAttachmentToItem(ctx, att.ID, second.ID); err != nil {
		t.Fatalf("second link failed: %v", err)
	}

	attachments, err := db.ListAttachmentsByEmail(ctx, emailID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(attachments))
	}
	if !attachments[0].ItemID.Valid || attachments[0].ItemID.String != first.ID {
		t.Errorf("expected first link kept, got %+v", attachments[0].ItemID)
	}
}
