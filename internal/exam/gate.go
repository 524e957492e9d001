package exam

import "github.com/pucet-prep/backend/internal/models"

// Gate decides whether a learner may start a paper. It never mutates the
// learner: the free-test counter moves only when a paper is submitted.
type Gate struct {
	freeTestLimit int
}

func NewGate(catalog Catalog) Gate {
	return Gate{freeTestLimit: catalog.FreeTestLimit()}
}

// Admit returns nil to admit, or an *EntitlementError. The premium-only
// feature check runs before the quota check.
func (g Gate) Admit(learner *models.Learner, req Request) error {
	if requiresPremium(req) && !learner.IsPremium {
		return &EntitlementError{Code: CodePremiumOnly, IsPremium: false}
	}
	if learner.IsPremium {
		return nil
	}
	if learner.FreeTestsTaken < g.freeTestLimit {
		return nil
	}
	return &EntitlementError{Code: CodeLimitReached, IsPremium: false}
}

// Remaining is the number of free papers left, or -1 for premium learners.
func (g Gate) Remaining(learner *models.Learner) int {
	if learner.IsPremium {
		return -1
	}
	if left := g.freeTestLimit - learner.FreeTestsTaken; left > 0 {
		return left
	}
	return 0
}
