package exam

import (
	"errors"
	"fmt"
)

var (
	ErrSubjectNotFound    = errors.New("subject not found")
	ErrChapterNotFound    = errors.New("chapter not found")
	ErrInvalidStream      = errors.New("invalid stream")
	ErrSubjectsIncomplete = errors.New("one or more subjects for this stream not found")
	ErrInvalidDifficulty  = errors.New("difficulty must be 'all', 'easy', 'medium', or 'hard'")
	ErrInvalidRequest     = errors.New("exactly one of subject or stream is required")
	ErrLearnerNotFound    = errors.New("learner not found")
	ErrInvalidSubmission  = errors.New("invalid submission")
)

// Denial codes surfaced to clients.
const (
	CodeLimitReached = "LIMIT_REACHED"
	CodePremiumOnly  = "PREMIUM_ONLY"
)

// EntitlementError is an expected refusal to start an exam.
type EntitlementError struct {
	Code      string
	IsPremium bool
}

func (e *EntitlementError) Error() string {
	return fmt.Sprintf("entitlement denied: %s", e.Code)
}

// Message is the human-readable text shown next to the code.
func (e *EntitlementError) Message() string {
	switch e.Code {
	case CodeLimitReached:
		return "Free limit reached"
	case CodePremiumOnly:
		return "Chapter practice is available to premium members only"
	default:
		return "Not allowed"
	}
}

func invalidSubmission(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSubmission, fmt.Sprintf(format, args...))
}
