package gate

// State is the lifecycle position of an [Activation].
type State int

const (
	Unevaluated State = iota
	Armed
	Settled
	CheckedIn
	Disposed
	Failed
)

func (s State) String() string {
	switch s {
	case Unevaluated:
		return "unevaluated"
	case Armed:
		return "armed"
	case Settled:
		return "settled"
	case CheckedIn:
		return "checked_in"
	case Disposed:
		return "disposed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Settled || s == CheckedIn || s == Disposed || s == Failed
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Decision is the result of [Activation.Evaluate].
type Decision int

const (
	Undecided Decision = iota
	AlreadyCheckedIn
	NeedsCheckIn
)

func (d Decision) String() string {
	switch d {
	case AlreadyCheckedIn:
		return "already_checked_in"
	case NeedsCheckIn:
		return "needs_check_in"
	default:
		return "undecided"
	}
}

func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
