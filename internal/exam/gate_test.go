package exam

import (
	"errors"
	"testing"

	"github.com/pucet-prep/backend/internal/models"
)

func TestGateAdmit(t *testing.T) {
	gate := NewGate(testCatalog(t))
	chapter := int64(3)

	tests := []struct {
		name    string
		learner models.Learner
		req     Request
		code    string // empty means admitted
	}{
		{"free under limit", models.Learner{FreeTestsTaken: 4}, SingleSubject{Slug: "physics"}, ""},
		{"free at limit", models.Learner{FreeTestsTaken: 5}, SingleSubject{Slug: "physics"}, CodeLimitReached},
		{"free over limit", models.Learner{FreeTestsTaken: 9}, Stream{Name: "PCB"}, CodeLimitReached},
		{"premium over limit", models.Learner{IsPremium: true, FreeTestsTaken: 50}, Stream{Name: "PCB"}, ""},
		{"free practice without chapter", models.Learner{FreeTestsTaken: 0}, Practice{SubjectSlug: "physics"}, ""},
		{"free chapter practice", models.Learner{FreeTestsTaken: 0}, Practice{SubjectSlug: "physics", ChapterID: &chapter}, CodePremiumOnly},
		{"premium-only checked before quota", models.Learner{FreeTestsTaken: 5}, Practice{SubjectSlug: "physics", ChapterID: &chapter}, CodePremiumOnly},
		{"premium chapter practice", models.Learner{IsPremium: true}, Practice{SubjectSlug: "physics", ChapterID: &chapter}, ""},
	}

	for _, tt := range tests {
		err := gate.Admit(&tt.learner, tt.req)
		if tt.code == "" {
			if err != nil {
				t.Errorf("%s: Admit() = %v, want nil", tt.name, err)
			}
			continue
		}
		var denied *EntitlementError
		if !errors.As(err, &denied) {
			t.Errorf("%s: Admit() = %v, want *EntitlementError", tt.name, err)
			continue
		}
		if denied.Code != tt.code {
			t.Errorf("%s: code = %s, want %s", tt.name, denied.Code, tt.code)
		}
		if denied.IsPremium {
			t.Errorf("%s: IsPremium = true, want false", tt.name)
		}
	}
}

func TestGateDoesNotMutateLearner(t *testing.T) {
	gate := NewGate(testCatalog(t))
	learner := models.Learner{FreeTestsTaken: 2}
	for i := 0; i < 10; i++ {
		gate.Admit(&learner, SingleSubject{Slug: "physics"})
	}
	if learner.FreeTestsTaken != 2 {
		t.Errorf("FreeTestsTaken = %d, want 2", learner.FreeTestsTaken)
	}
}

func TestGateRemaining(t *testing.T) {
	gate := NewGate(testCatalog(t))

	tests := []struct {
		learner models.Learner
		want    int
	}{
		{models.Learner{FreeTestsTaken: 0}, 5},
		{models.Learner{FreeTestsTaken: 4}, 1},
		{models.Learner{FreeTestsTaken: 7}, 0},
		{models.Learner{IsPremium: true, FreeTestsTaken: 3}, -1},
	}

	for _, tt := range tests {
		if got := gate.Remaining(&tt.learner); got != tt.want {
			t.Errorf("Remaining(%+v) = %d, want %d", tt.learner, got, tt.want)
		}
	}
}

func TestEntitlementMessage(t *testing.T) {
	err := &EntitlementError{Code: CodeLimitReached}
	if got := err.Message(); got != "Free limit reached" {
		t.Errorf("Message() = %q, want %q", got, "Free limit reached")
	}
}
