package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
)

var enabled atomic.Bool

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRe = regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`)
	tokenRe = regexp.MustCompile(`\b[Bb]earer\s+[A-Za-z0-9._\-]+\b`)
)

// SetEnabled toggles PII redaction for logged chat text.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Enabled returns true when redaction is active.
func Enabled() bool {
	return enabled.Load()
}

// Text redacts emails, phone numbers and bearer tokens when enabled. Chat
// messages pass through here before they reach any log sink; stored
// transcripts are never redacted.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	out := emailRe.ReplaceAllString(in, "[REDACTED_EMAIL]")
	out = phoneRe.ReplaceAllString(out, "[REDACTED_PHONE]")
	out = tokenRe.ReplaceAllString(out, "[REDACTED_TOKEN]")
	return out
}
