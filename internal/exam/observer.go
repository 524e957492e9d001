package exam

// Observer receives engine events for metrics. Implementations must be
// safe for concurrent use.
type Observer interface {
	ExamAssembled(mode string, questions int)
	EntitlementDenied(code string)
	SubmissionRecorded(premium bool)
	LedgerUpdateFailed()
	StatsFoldFailed()
}

type nopObserver struct{}

func (nopObserver) ExamAssembled(string, int) {}
func (nopObserver) EntitlementDenied(string)  {}
func (nopObserver) SubmissionRecorded(bool)   {}
func (nopObserver) LedgerUpdateFailed()       {}
func (nopObserver) StatsFoldFailed()          {}
