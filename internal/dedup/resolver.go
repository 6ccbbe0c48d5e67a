package dedup

import (
	"github.com/vsood/schoolmail/pkg/models"
)

// Candidate is a newly extracted item being checked against the current set.
// An empty DateStart means the item has no date.
type Candidate struct {
	Content   string
	DateStart string
	URLs      []string
}

// Match identifies the current item a candidate duplicates and how
// confidently.
type Match struct {
	ItemID     string
	Confidence float64
}

// Resolver decides whether a candidate duplicates a current item. URL
// intersection is the strong signal and is checked against every active
// item before any text comparison, so a weaker text match discovered
// earlier can never shadow a URL match. Within each pass the first
// qualifying item wins, in the caller's iteration order; this mirrors
// the historical behavior and is deliberately not best-match.
type Resolver struct {
	threshold float64
}

// NewResolver creates a resolver with the given text similarity threshold.
func NewResolver(threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = 0.85
	}
	return &Resolver{threshold: threshold}
}

// Resolve scans the active items read-only and returns the first match,
// or nil when the candidate is new. Both passes require equal date_start
// values (both-null counts as equal).
func (r *Resolver) Resolve(c Candidate, active []*models.Item) *Match {
	for _, item := range active {
		if !dateStartEqual(c.DateStart, item) {
			continue
		}
		if urlsIntersect(c.URLs, item.URLList()) {
			return &Match{ItemID: item.ID, Confidence: 1.0}
		}
	}

	for _, item := range active {
		if !dateStartEqual(c.DateStart, item) {
			continue
		}
		if sim := Similarity(c.Content, item.Content); sim >= r.threshold {
			return &Match{ItemID: item.ID, Confidence: sim}
		}
	}

	return nil
}

func dateStartEqual(candidate string, item *models.Item) bool {
	if !item.DateStart.Valid {
		return candidate == ""
	}
	return candidate == item.DateStart.String
}

func urlsIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, url := range a {
		set[url] = struct{}{}
	}
	for _, url := range b {
		if _, ok := set[url]; ok {
			return true
		}
	}
	return false
}
