package scan

import (
	"net/http"
	"strings"
	"unicode/utf8"
)

// MinBodyLength is the character count a 200 body must exceed to count as a
// profile page. Shorter pages are typically soft-404s.
const MinBodyLength = 500

type Verdict int

const (
	Retry Verdict = iota
	VerdictConfirmed
	VerdictBlocked
)

// Classify maps one response to a verdict. The order of the checks matters:
// a 200 that is short or carries a negative marker falls through to Retry.
func Classify(statusCode int, body string, invalid []string) Verdict {
	if statusCode == http.StatusOK && utf8.RuneCountInString(body) > MinBodyLength && !containsAny(body, invalid) {
		return VerdictConfirmed
	}
	if statusCode == http.StatusForbidden || statusCode == http.StatusTooManyRequests {
		return VerdictBlocked
	}
	return Retry
}

func containsAny(body string, markers []string) bool {
	if len(markers) == 0 {
		return false
	}
	lower := strings.ToLower(body)
	for _, m := range markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
