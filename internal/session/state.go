package session

// State is the session's position in the attempt lifecycle.
type State int

const (
	Loading State = iota
	LoadFailed
	History
	Taking
	Submitting
	Results
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case LoadFailed:
		return "load_failed"
	case History:
		return "history"
	case Taking:
		return "taking"
	case Submitting:
		return "submitting"
	case Results:
		return "results"
	default:
		return "unknown"
	}
}
