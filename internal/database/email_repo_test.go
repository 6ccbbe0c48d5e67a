package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/vsood/schoolmail/pkg/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateEmail_DuplicateExternalID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	email := &models.Email{
		ExternalMessageID: "<dup@x>",
		Subject:           "first",
		Sender:            "office@school.example",
		Body:              sql.NullString{String: "body", Valid: true},
	}
	if err := db.CreateEmail(ctx, email); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if email.ID == 0 {
		t.Error("expected assigned id")
	}

	dup := &models.Email{ExternalMessageID: "<dup@x>", Subject: "second"}
	if err := db.CreateEmail(ctx, dup); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	stored, err := db.GetEmailByExternalID(ctx, "<dup@x>")
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if stored.Subject != "first" {
		t.Errorf("expected first row kept, got subject %q", stored.Subject)
	}
}

func TestCreateFailedEmail_MinimalAndIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if err := db.CreateFailedEmail(ctx, "<failed@x>"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := db.CreateFailedEmail(ctx, "<failed@x>"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	stored, err := db.GetEmailByExternalID(ctx, "<failed@x>")
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if stored.Subject != "" || stored.Body.Valid {
		t.Error("expected minimal row without subject or body")
	}
	if !stored.PrivacyCheckPassed.Valid || stored.PrivacyCheckPassed.Bool {
		t.Errorf("expected privacy_check_passed = false, got %+v", stored.PrivacyCheckPassed)
	}

	exists, err := db.EmailExists(ctx, "<failed@x>")
	if err != nil {
		t.Fatalf("exists check failed: %v", err)
	}
	if !exists {
		t.Error("expected failed email to count as stored")
	}
}

func TestMostRecentEmailCreatedAt(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	checkpoint, err := db.MostRecentEmailCreatedAt(ctx)
	if err != nil {
		t.Fatalf("checkpoint query failed: %v", err)
	}
	if checkpoint != nil {
		t.Errorf("expected nil checkpoint on empty table, got %v", checkpoint)
	}

	for _, id := range []string{"<cp-1@x>", "<cp-2@x>"} {
		email := &models.Email{ExternalMessageID: id}
		if err := db.CreateEmail(ctx, email); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	checkpoint, err = db.MostRecentEmailCreatedAt(ctx)
	if err != nil {
		t.Fatalf("checkpoint query failed: %v", err)
	}
	if checkpoint == nil {
		t.Fatal("expected a checkpoint after inserts")
	}
	if time.Since(*checkpoint) > time.Minute {
		t.Errorf("checkpoint not near now: %v", *checkpoint)
	}
}

func TestGetEmailByExternalID_NotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetEmailByExternalID(context.Background(), "<missing@x>"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
