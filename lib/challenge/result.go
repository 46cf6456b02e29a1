package challenge

// Outcome is what happened to a submitted answer.
type Outcome int

const (
	// OutcomeAbsent means there was no challenge for the member.
	OutcomeAbsent Outcome = iota
	// OutcomeCorrect means the answer matched and the challenge was removed.
	OutcomeCorrect
	// OutcomeWrong means the answer did not match. See Result.Exhausted.
	OutcomeWrong
	// OutcomeExpired means the challenge timed out before the answer came in.
	OutcomeExpired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAbsent:
		return "absent"
	case OutcomeCorrect:
		return "correct"
	case OutcomeWrong:
		return "wrong"
	case OutcomeExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Result is returned by Store.Submit. None of the outcomes are errors; the
// caller maps each one to a message for the member.
type Result struct {
	Outcome Outcome

	// AttemptsLeft is set for OutcomeWrong.
	AttemptsLeft int

	// Exhausted is set for OutcomeWrong when the last attempt was used and
	// the challenge was removed.
	Exhausted bool

	// Challenge is a snapshot of the challenge the answer was checked
	// against. It is the zero value for OutcomeAbsent. For a non-exhausted
	// OutcomeWrong it carries the image to show again.
	Challenge Challenge
}

// Retry reports whether the member may answer the same puzzle again.
func (r Result) Retry() bool {
	return r.Outcome == OutcomeWrong && !r.Exhausted
}
