package token

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)

	raw, err := issuer.Issue(42)
	if err != nil {
		t.Fatalf("Issue(42) error: %v", err)
	}

	got, err := issuer.Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got != 42 {
		t.Errorf("Parse() = %d, want 42", got)
	}
}

func TestParseRejects(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)
	other := NewIssuer("other-secret", time.Hour)

	expired := NewIssuer("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	foreign, _ := other.Issue(1)
	stale, _ := expired.Issue(1)

	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", stale},
		{"empty", ""},
	}

	for _, tt := range tests {
		_, err := issuer.Parse(tt.raw)
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse(%s) error = %v, want ErrInvalidToken", tt.name, err)
		}
	}
}
