package redact

import (
	"strings"
	"testing"
)

func TestRedactDisabled(t *testing.T) {
	SetEnabled(false)
	in := "remind me to email alice@example.com at +62 812 3456 7890"
	if got := Text(in); got != in {
		t.Fatalf("expected no redaction, got %q", got)
	}
}

func TestRedactEnabled(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)
	got := Text("remind me to email alice@example.com at +62 812 3456 7890")
	if strings.Contains(got, "alice@example.com") {
		t.Fatalf("email not redacted: %q", got)
	}
	if !strings.Contains(got, "[REDACTED_EMAIL]") || !strings.Contains(got, "[REDACTED_PHONE]") {
		t.Fatalf("missing placeholders: %q", got)
	}
}

func TestRedactBearerToken(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)
	got := Text("header was Bearer eyJhbGciOiJIUzI1NiJ9.abc.def")
	if strings.Contains(got, "eyJhbGciOiJIUzI1NiJ9") {
		t.Fatalf("token not redacted: %q", got)
	}
}
