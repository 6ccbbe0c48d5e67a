package classify

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ItemExtract is one extracted calendar/action item.
type ItemExtract struct {
	Content             string   `json:"content"`
	DateStart           string   `json:"date_start,omitempty"`
	DateEnd             string   `json:"date_end,omitempty"`
	ExternalURLs        []string `json:"external_urls,omitempty"`
	AttachmentFilenames []string `json:"attachment_filenames,omitempty"`
}

// Analysis is the structured result of the privacy gate and extraction.
type Analysis struct {
	PrivacyCheckPassed bool          `json:"privacy_check_passed"`
	Reason             string        `json:"reason,omitempty"`
	Items              []ItemExtract `json:"items,omitempty"`
}

var fencedJSONRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseAnalysis extracts and decodes the first JSON object from a model
// response. The object may be wrapped in a fenced code block or embedded
// in surrounding prose.
func ParseAnalysis(text string) (*Analysis, error) {
	jsonStr, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(jsonStr), &analysis); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}
	return &analysis, nil
}

func extractJSON(text string) (string, error) {
	if match := fencedJSONRegex.FindStringSubmatch(text); match != nil {
		candidate := strings.TrimSpace(match[1])
		if strings.HasPrefix(candidate, "{") {
			return candidate, nil
		}
	}

	if obj, ok := firstBalancedObject(text); ok {
		return obj, nil
	}

	return "", fmt.Errorf("no JSON object found in response")
}

// firstBalancedObject scans for the first top-level {...} object,
// tracking string literals so braces inside values don't confuse the
// depth count.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
