package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/vsood/schoolmail/internal/database"
	"github.com/vsood/schoolmail/internal/dedup"
	"github.com/vsood/schoolmail/internal/parser"
	"github.com/vsood/schoolmail/pkg/models"
)

// Maintenance is the offline pass over already-stored data: batch
// re-dedup of current items and date backfills. It shares the
// superseder with the live pipeline so both stay idempotent if run
// back-to-back.
type Maintenance struct {
	db         *database.DB
	urls       *dedup.URLExtractor
	superseder *Superseder
	threshold  float64
	logger     *slog.Logger
}

// NewMaintenance creates a new maintenance pass
func NewMaintenance(db *database.DB, urls *dedup.URLExtractor, threshold float64, logger *slog.Logger) *Maintenance {
	if threshold <= 0 {
		threshold = 0.85
	}
	return &Maintenance{
		db:         db,
		urls:       urls,
		superseder: NewSuperseder(db, logger),
		threshold:  threshold,
		logger:     logger,
	}
}

// DedupCurrent backfills URL fingerprints from item content, then folds
// duplicate current items: first groups sharing a URL on the same start
// date, then groups by text similarity. Within each group the newest
// item stays current and the older ones are superseded by it.
func (m *Maintenance) DedupCurrent(ctx context.Context) error {
	if err := m.backfillURLs(ctx); err != nil {
		return err
	}

	items, err := m.db.ListCurrentItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to list current items: %w", err)
	}
	m.logger.Info("deduplicating current items", "count", len(items))

	processed := make(map[string]bool)
	groups := m.urlGroups(items, processed)
	groups = append(groups, m.similarityGroups(items, processed)...)

	superseded := 0
	for _, group := range groups {
		// newest first; it absorbs the rest
		sort.Slice(group, func(i, j int) bool {
			if group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].ID > group[j].ID
			}
			return group[i].CreatedAt.After(group[j].CreatedAt)
		})

		newest := group[0]
		for _, old := range group[1:] {
			if err := m.superseder.Supersede(ctx, old.ID, newest.ID); err != nil {
				m.logger.Warn("failed to supersede item", "old_item", old.ID, "new_item", newest.ID, "error", err)
				continue
			}
			superseded++
		}
	}

	m.logger.Info("dedup complete", "groups", len(groups), "superseded", superseded)
	return nil
}

// backfillURLs re-extracts URL fingerprints from content for items whose
// stored set is stale or missing.
func (m *Maintenance) backfillURLs(ctx context.Context) error {
	items, err := m.db.ListAllItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	updated := 0
	for _, item := range items {
		extracted := m.urls.Extract(item.Content)
		if len(extracted) == 0 {
			continue
		}
		fresh := &models.Item{}
		fresh.SetURLList(extracted)
		if fresh.URLs == item.URLs {
			continue
		}
		if err := m.db.UpdateItemURLs(ctx, item.ID, fresh.URLs); err != nil {
			m.logger.Warn("failed to backfill urls", "item", item.ID, "error", err)
			continue
		}
		item.URLs = fresh.URLs
		updated++
	}

	m.logger.Info("backfilled url fingerprints", "updated", updated)
	return nil
}

// urlGroups groups current items that share a URL fingerprint and a
// start date.
func (m *Maintenance) urlGroups(items []*models.Item, processed map[string]bool) [][]*models.Item {
	urlIndex := make(map[string][]*models.Item)
	var urlOrder []string
	for _, item := range items {
		for _, url := range item.URLList() {
			if _, seen := urlIndex[url]; !seen {
				urlOrder = append(urlOrder, url)
			}
			urlIndex[url] = append(urlIndex[url], item)
		}
	}
	sort.Strings(urlOrder)

	var groups [][]*models.Item
	for _, url := range urlOrder {
		shared := urlIndex[url]
		if len(shared) < 2 {
			continue
		}

		byDate := make(map[string][]*models.Item)
		var dateOrder []string
		for _, item := range shared {
			if processed[item.ID] {
				continue
			}
			key := dateKey(item)
			if _, seen := byDate[key]; !seen {
				dateOrder = append(dateOrder, key)
			}
			byDate[key] = append(byDate[key], item)
		}

		for _, key := range dateOrder {
			group := byDate[key]
			if len(group) < 2 {
				continue
			}
			for _, item := range group {
				processed[item.ID] = true
			}
			groups = append(groups, group)
		}
	}

	return groups
}

// similarityGroups groups the not-yet-grouped items by text similarity
// on matching start dates. Pairwise over the remaining set.
func (m *Maintenance) similarityGroups(items []*models.Item, processed map[string]bool) [][]*models.Item {
	var remaining []*models.Item
	for _, item := range items {
		if !processed[item.ID] {
			remaining = append(remaining, item)
		}
	}

	var groups [][]*models.Item
	for i, a := range remaining {
		if processed[a.ID] {
			continue
		}

		group := []*models.Item{a}
		for _, b := range remaining[i+1:] {
			if processed[b.ID] {
				continue
			}
			if dateKey(a) != dateKey(b) {
				continue
			}
			if dedup.Similarity(a.Content, b.Content) >= m.threshold {
				group = append(group, b)
				processed[b.ID] = true
			}
		}

		if len(group) > 1 {
			processed[a.ID] = true
			groups = append(groups, group)
		}
	}

	return groups
}

func dateKey(item *models.Item) string {
	if !item.DateStart.Valid {
		return "\x00undated"
	}
	return item.DateStart.String
}

// BackfillDateEnds scans items that have a start date but no end date
// for a date range in their content. An extracted end date earlier than
// the start date is a data inconsistency: it is skipped with a warning
// and the row is left untouched.
func (m *Maintenance) BackfillDateEnds(ctx context.Context) error {
	items, err := m.db.ListItemsMissingDateEnd(ctx)
	if err != nil {
		return fmt.Errorf("failed to list items missing date_end: %w", err)
	}

	now := time.Now()
	updated := 0
	for _, item := range items {
		start := item.DateStart.String
		end, ok := parser.ExtractDateRangeEnd(item.Content, start, now)
		if !ok {
			continue
		}
		// ISO dates compare correctly as strings
		if end < start {
			m.logger.Warn("extracted end date precedes start date, skipping",
				"item", item.ID, "date_start", start, "date_end", end)
			continue
		}
		if err := m.db.UpdateItemDateEnd(ctx, item.ID, end); err != nil {
			m.logger.Warn("failed to update date_end", "item", item.ID, "error", err)
			continue
		}
		updated++
	}

	m.logger.Info("backfilled end dates", "updated", updated)
	return nil
}

// FixEmailDates re-derives each stored email's occurred_at from the
// forwarded date header in its body, where one exists.
func (m *Maintenance) FixEmailDates(ctx context.Context) error {
	emails, err := m.db.ListEmails(ctx)
	if err != nil {
		return fmt.Errorf("failed to list emails: %w", err)
	}

	updated := 0
	for _, email := range emails {
		if !email.Body.Valid {
			continue
		}
		original, ok := parser.ExtractForwardedDate(email.Body.String)
		if !ok {
			continue
		}
		if email.OccurredAt.Valid && email.OccurredAt.Time.Equal(original) {
			continue
		}
		if err := m.db.UpdateEmailOccurredAt(ctx, email.ID, original); err != nil {
			m.logger.Warn("failed to update email date", "email", email.ID, "error", err)
			continue
		}
		updated++
	}

	m.logger.Info("fixed email dates", "updated", updated)
	return nil
}
