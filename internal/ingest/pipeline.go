package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vsood/schoolmail/internal/classify"
	"github.com/vsood/schoolmail/internal/database"
	"github.com/vsood/schoolmail/internal/dedup"
	"github.com/vsood/schoolmail/internal/mailbox"
	"github.com/vsood/schoolmail/internal/parser"
	"github.com/vsood/schoolmail/pkg/models"
)

// Mailbox is the external mail source: a UID search bounded by sender
// filters and a checkpoint, plus full-message fetch.
type Mailbox interface {
	Search(ctx context.Context, senders []string, since *time.Time) ([]uint32, error)
	Fetch(ctx context.Context, uids []uint32) ([]*mailbox.Message, error)
}

// Classifier is the external privacy gate and item extractor.
type Classifier interface {
	Analyze(ctx context.Context, in classify.Input) (*classify.Analysis, error)
}

// BlobStore stores attachment binaries keyed by email external id and filename.
type BlobStore interface {
	Put(externalID, filename string, data []byte) (string, error)
}

// PipelineDeps collects the collaborators of the ingestion pipeline.
type PipelineDeps struct {
	DB         *database.DB
	Mailbox    Mailbox
	Classifier Classifier
	Blobs      BlobStore
	Resolver   *dedup.Resolver
	URLs       *dedup.URLExtractor
	HTML       *parser.HTMLParser
	Logger     *slog.Logger

	SenderFilters []string
	PageSize      int
}

// Pipeline runs one batch ingestion pass: fetch new mail since the
// checkpoint, gate each email through the privacy check, store what
// passes, extract items and fold duplicates into the current set.
// Everything is sequential; no failure below config/storage bootstrap
// is fatal to the batch.
type Pipeline struct {
	db         *database.DB
	mailbox    Mailbox
	classifier Classifier
	blobs      BlobStore
	resolver   *dedup.Resolver
	urls       *dedup.URLExtractor
	html       *parser.HTMLParser
	superseder *Superseder
	logger     *slog.Logger

	senders  []string
	pageSize int
}

// NewPipeline creates a new ingestion pipeline
func NewPipeline(deps PipelineDeps) *Pipeline {
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Pipeline{
		db:         deps.DB,
		mailbox:    deps.Mailbox,
		classifier: deps.Classifier,
		blobs:      deps.Blobs,
		resolver:   deps.Resolver,
		urls:       deps.URLs,
		html:       deps.HTML,
		superseder: NewSuperseder(deps.DB, deps.Logger),
		logger:     deps.Logger,
		senders:    deps.SenderFilters,
		pageSize:   pageSize,
	}
}

// Run executes one batch pass
func (p *Pipeline) Run(ctx context.Context) error {
	since, err := NextCheckpoint(ctx, p.db)
	if err != nil {
		return fmt.Errorf("failed to compute checkpoint: %w", err)
	}
	if since != nil {
		p.logger.Info("fetching mail since checkpoint", "since", since)
	} else {
		p.logger.Info("no checkpoint, fetching all matching mail")
	}

	uids, err := p.mailbox.Search(ctx, p.senders, since)
	if err != nil {
		return fmt.Errorf("failed to search mailbox: %w", err)
	}
	if len(uids) == 0 {
		p.logger.Info("no new messages")
		return nil
	}
	p.logger.Info("found messages to process", "count", len(uids))

	for start := 0; start < len(uids); start += p.pageSize {
		end := start + p.pageSize
		if end > len(uids) {
			end = len(uids)
		}

		messages, err := p.mailbox.Fetch(ctx, uids[start:end])
		if err != nil {
			return fmt.Errorf("failed to fetch messages: %w", err)
		}

		for _, msg := range messages {
			if err := p.ProcessEmail(ctx, msg); err != nil {
				// one bad email never stops the batch
				p.logger.Error("failed to process email",
					"external_id", msg.ExternalID,
					"subject", msg.Subject,
					"error", err,
				)
			}
		}
	}

	return nil
}

// ProcessEmail drives one email through the ingestion states: the
// already-stored check, the privacy gate, storage and item extraction.
func (p *Pipeline) ProcessEmail(ctx context.Context, msg *mailbox.Message) error {
	log := p.logger.With("external_id", msg.ExternalID, "subject", msg.Subject)

	exists, err := p.db.EmailExists(ctx, msg.ExternalID)
	if err != nil {
		return fmt.Errorf("failed already-stored check: %w", err)
	}
	if exists {
		log.Debug("email already stored, skipping")
		return nil
	}

	body := msg.BodyText
	if body == "" && msg.BodyHTML != "" {
		if body, err = p.html.Text(msg.BodyHTML); err != nil {
			log.Warn("failed to convert HTML body", "error", err)
			body = ""
		}
	}

	names := make([]string, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		names = append(names, att.Filename)
	}

	log.Info("classifying email", "attachments", len(names))
	analysis, err := p.classifier.Analyze(ctx, classify.Input{
		Subject:         msg.Subject,
		Sender:          msg.Sender,
		Date:            msg.Date.Format(time.RFC1123Z),
		AttachmentNames: names,
		Body:            body,
	})
	if err != nil {
		// nothing was stored for this email; the next run retries it
		return fmt.Errorf("classification failed: %w", err)
	}

	if !analysis.PrivacyCheckPassed {
		log.Warn("privacy check failed", "reason", analysis.Reason)
		err := p.db.CreateFailedEmail(ctx, msg.ExternalID)
		if errors.Is(err, database.ErrAlreadyExists) {
			log.Debug("failed-email record already present")
			return nil
		}
		return err
	}

	// Upload attachments before the email row so a partial run leaves
	// blobs that the retry reuses, never an email row without blobs.
	blobLocations := make([]string, len(msg.Attachments))
	for i, att := range msg.Attachments {
		location, err := p.blobs.Put(msg.ExternalID, att.Filename, att.Data)
		if err != nil {
			return fmt.Errorf("failed to store attachment %s: %w", att.Filename, err)
		}
		blobLocations[i] = location
	}

	email := &models.Email{
		ExternalMessageID:  msg.ExternalID,
		Subject:            msg.Subject,
		Sender:             msg.Sender,
		OccurredAt:         occurredAt(body, msg.Date),
		Body:               sql.NullString{String: body, Valid: true},
		PrivacyCheckPassed: sql.NullBool{Bool: true, Valid: true},
	}
	if err := p.db.CreateEmail(ctx, email); err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			log.Info("email stored by a concurrent run, skipping")
			return nil
		}
		return fmt.Errorf("failed to store email: %w", err)
	}
	log.Info("stored email", "email_id", email.ID)

	for i, att := range msg.Attachments {
		err := p.db.CreateAttachment(ctx, &models.Attachment{
			EmailID:      email.ID,
			Filename:     att.Filename,
			MimeType:     att.MimeType,
			SizeBytes:    att.Size,
			BlobLocation: blobLocations[i],
		})
		if err != nil && !errors.Is(err, database.ErrAlreadyExists) {
			log.Warn("failed to store attachment row", "filename", att.Filename, "error", err)
		}
	}

	attachments, err := p.db.ListAttachmentsByEmail(ctx, email.ID)
	if err != nil {
		return fmt.Errorf("failed to list stored attachments: %w", err)
	}

	for _, extracted := range analysis.Items {
		if err := p.storeItem(ctx, email.ID, extracted, attachments); err != nil {
			log.Warn("failed to store item", "error", err)
		}
	}
	log.Info("extracted items", "count", len(analysis.Items))

	return nil
}

// storeItem inserts one extracted item (always as current), resolves it
// against the active set, and retires the matched item if any. Insertion
// is unconditional; supersession is the corrective follow-up.
func (p *Pipeline) storeItem(ctx context.Context, emailID int64, extracted classify.ItemExtract, attachments []*models.Attachment) error {
	urls := p.urls.Filter(extracted.ExternalURLs)

	active, err := p.db.ListCurrentItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to list current items: %w", err)
	}

	match := p.resolver.Resolve(dedup.Candidate{
		Content:   extracted.Content,
		DateStart: extracted.DateStart,
		URLs:      urls,
	}, active)

	item := &models.Item{
		SourceEmailID: emailID,
		Content:       extracted.Content,
		DateStart:     nullString(extracted.DateStart),
		DateEnd:       nullString(extracted.DateEnd),
		IsCurrent:     true,
	}
	item.SetURLList(urls)
	if err := p.db.CreateItem(ctx, item); err != nil {
		return err
	}

	if match != nil {
		if err := p.superseder.Supersede(ctx, match.ItemID, item.ID); err != nil {
			return fmt.Errorf("failed to supersede %s: %w", match.ItemID, err)
		}
		p.logger.Info("superseded existing item",
			"old_item", match.ItemID,
			"new_item", item.ID,
			"confidence", match.Confidence,
		)
	}

	for _, filename := range extracted.AttachmentFilenames {
		for _, att := range attachments {
			if att.Filename != filename {
				continue
			}
			if err := p.db.LinkAttachmentToItem(ctx, att.ID, item.ID); err != nil {
				p.logger.Warn("failed to link attachment", "filename", filename, "error", err)
			}
		}
	}

	return nil
}

// occurredAt prefers the original date buried in a forwarded body over
// the envelope date of the forwarding email.
func occurredAt(body string, envelopeDate time.Time) sql.NullTime {
	if original, ok := parser.ExtractForwardedDate(body); ok {
		return sql.NullTime{Time: original, Valid: true}
	}
	if envelopeDate.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: envelopeDate, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
