package recipe

// State is the lifecycle state of a build tree.
type State int

const (
	Unconfigured State = iota
	Configured
	Built
	Failed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Built:
		return "built"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// IsTerminal reports whether no further phase can change s.
func (s State) IsTerminal() bool {
	return s == Built || s == Failed
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case Unconfigured:
		return to == Configured
	case Configured:
		return to == Built || to == Failed
	default:
		return false
	}
}
