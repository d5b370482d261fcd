package parse

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the wire format for every calendar date exchanged with the upstream API.
const DateLayout = "2006-01-02"

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Date checks that raw is a real calendar date in YYYY-MM-DD form and returns it trimmed.
// Zero-padded ISO dates order the same way as strings, so callers may compare the result directly.
func Date(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !dateRe.MatchString(s) {
		return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD", raw)
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return s, nil
}

// DatePrefix trims an upstream timestamp or date down to its YYYY-MM-DD part.
// Values that do not start with a date are returned unchanged.
func DatePrefix(raw string) string {
	if len(raw) >= len(DateLayout) && dateRe.MatchString(raw[:len(DateLayout)]) {
		return raw[:len(DateLayout)]
	}
	return raw
}
