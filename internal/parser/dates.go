package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Forwarded emails carry the original message's headers in the body,
// e.g. "Date: Mon, Oct 14, 2025 at 6:00 PM". These patterns cover the
// formats Gmail and Outlook produce when forwarding.
var forwardedDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Date:\s*([A-Za-z]{3},\s+[A-Za-z]{3}\s+\d{1,2},\s+\d{4}\s+at\s+\d{1,2}:\d{2}\s*[AP]M)`),
	regexp.MustCompile(`(?i)Date:\s*([A-Za-z]{3},\s+\d{1,2}\s+[A-Za-z]{3}\s+\d{4}\s+\d{1,2}:\d{2}:\d{2})`),
	regexp.MustCompile(`(?i)Date:\s*([A-Za-z]+\s+\d{1,2},\s+\d{4}\s+at\s+\d{1,2}:\d{2}\s*[AP]M)`),
	regexp.MustCompile(`(?i)Date:\s*(\d{4}-\d{2}-\d{2})`),
	regexp.MustCompile(`(?is)-+\s*Forwarded message\s*-+.*?Date:\s*([^\n<]+)`),
}

var forwardedDateLayouts = []string{
	"Mon, Jan 2, 2006 at 3:04 PM",
	"Mon, Jan 2, 2006 at 3:04PM",
	"Mon, 2 Jan 2006 15:04:05",
	"January 2, 2006 at 3:04 PM",
	"January 2, 2006 at 3:04PM",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// ExtractForwardedDate pulls the original email date out of a forwarded
// body. Returns false when no recognizable date header is present.
func ExtractForwardedDate(body string) (time.Time, bool) {
	if body == "" {
		return time.Time{}, false
	}

	for _, pattern := range forwardedDatePatterns {
		match := pattern.FindStringSubmatch(body)
		if match == nil {
			continue
		}
		raw := strings.TrimSpace(match[1])
		for _, layout := range forwardedDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, true
			}
		}
	}

	return time.Time{}, false
}

// Date range formats like "December 4 to December 7", "Dec 4-7" or
// "12/4 to 12/7" in item content.
var dateRangePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)([A-Za-z]+\s+\d{1,2})\s*(?:to|through|–|-)\s*([A-Za-z]+\s+\d{1,2})(?:,?\s*\d{4})?`),
	regexp.MustCompile(`(?i)([A-Za-z]+\s+\d{1,2})\s*[-–]\s*(\d{1,2})(?:,?\s*\d{4})?`),
	regexp.MustCompile(`(\d{1,2}/\d{1,2})\s*(?:to|through|–|-)\s*(\d{1,2}/\d{1,2})(?:/\d{2,4})?`),
}

var monthDayLayouts = []string{
	"January 2 2006",
	"Jan 2 2006",
	"1/2 2006",
}

// ExtractDateRangeEnd finds a date range in content and returns the end
// date as YYYY-MM-DD. The year comes from dateStart when present,
// otherwise from now. Returns false when the content holds no range.
func ExtractDateRangeEnd(content, dateStart string, now time.Time) (string, bool) {
	if content == "" {
		return "", false
	}

	year := now.Year()
	if len(dateStart) >= 4 {
		if y, err := parseYear(dateStart[:4]); err == nil {
			year = y
		}
	}

	for _, pattern := range dateRangePatterns {
		match := pattern.FindStringSubmatch(content)
		if match == nil {
			continue
		}
		startStr, endStr := match[1], match[2]

		// "December 4-7": the end is a bare day in the start's month
		if isDigits(endStr) {
			start, ok := parseMonthDay(startStr, year)
			if !ok {
				continue
			}
			return fmt.Sprintf("%04d-%02d-%s", year, int(start.Month()), pad2(endStr)), true
		}

		if end, ok := parseMonthDay(endStr, year); ok {
			return end.Format("2006-01-02"), true
		}
	}

	return "", false
}

func parseMonthDay(s string, year int) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	for _, layout := range monthDayLayouts {
		if t, err := time.Parse(layout, fmt.Sprintf("%s %d", s, year)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseYear(s string) (int, error) {
	t, err := time.Parse("2006", s)
	if err != nil {
		return 0, err
	}
	return t.Year(), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
