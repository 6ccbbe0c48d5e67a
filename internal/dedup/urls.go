package dedup

import (
	"regexp"
	"sort"
	"strings"
)

// trailing punctuation that regularly sticks to URLs in email text
const trailingPunct = ".,;:!?*"

var urlPattern = regexp.MustCompile(`https?://[^\s<>"')(\]\[]+`)

// URLExtractor extracts the actionable URL fingerprint set from item
// content, dropping storage-host, mail-redirect and unsubscribe links.
type URLExtractor struct {
	denylist []string
}

// NewURLExtractor creates an extractor with the given denylist substrings.
// Matching is case-insensitive.
func NewURLExtractor(denylist []string) *URLExtractor {
	lowered := make([]string, 0, len(denylist))
	for _, d := range denylist {
		d = strings.TrimSpace(strings.ToLower(d))
		if d != "" {
			lowered = append(lowered, d)
		}
	}
	return &URLExtractor{denylist: lowered}
}

// Extract returns the deduplicated, denylist-filtered URL set found in
// content. Never fails; empty content yields an empty set.
func (e *URLExtractor) Extract(content string) []string {
	if content == "" {
		return nil
	}
	return e.Filter(urlPattern.FindAllString(content, -1))
}

// Filter cleans and filters an externally supplied URL list with the same
// rules Extract applies: trailing punctuation stripped, denylisted URLs
// dropped, result deduplicated.
func (e *URLExtractor) Filter(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	var out []string

	for _, url := range urls {
		url = strings.TrimRight(strings.TrimSpace(url), trailingPunct)
		if url == "" || e.denied(url) {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, url)
	}

	sort.Strings(out)
	return out
}

func (e *URLExtractor) denied(url string) bool {
	lowered := strings.ToLower(url)
	for _, d := range e.denylist {
		if strings.Contains(lowered, d) {
			return true
		}
	}
	return false
}
