package query

import (
	"github.com/spigell/assessment-finder/internal/recommend"
)

const (
	ValidationMessage = "Please enter a query or job description."
	RequestMessage    = "Something went wrong. Please try again."
)

// Phase is the stage of the interaction a State is in.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSucceeded
	PhaseFailed
	// PhaseInvalid is a submission rejected before any request was made.
	PhaseInvalid
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	case PhaseInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of the interaction. Values are only built by
// the transition constructors below, so results and an error message never
// coexist.
type State struct {
	seq     uint64
	phase   Phase
	query   string
	results []recommend.Recommendation
	err     string
}

func idle() State {
	return State{phase: PhaseIdle}
}

func invalid(seq uint64, q string) State {
	return State{seq: seq, phase: PhaseInvalid, query: q, err: ValidationMessage}
}

func loading(seq uint64, q string) State {
	return State{seq: seq, phase: PhaseLoading, query: q}
}

func succeeded(seq uint64, q string, results []recommend.Recommendation) State {
	copied := make([]recommend.Recommendation, len(results))
	copy(copied, results)
	return State{seq: seq, phase: PhaseSucceeded, query: q, results: copied}
}

func failed(seq uint64, q string) State {
	return State{seq: seq, phase: PhaseFailed, query: q, err: RequestMessage}
}

func (s State) Phase() Phase { return s.phase }

// Seq is the sequence number of the submission that produced the state.
func (s State) Seq() uint64 { return s.seq }

func (s State) Query() string { return s.query }

// Loading reports whether a request is in flight; the submit trigger must be
// disabled while it is true.
func (s State) Loading() bool { return s.phase == PhaseLoading }

// Settled reports whether the last request resolved or failed.
func (s State) Settled() bool {
	return s.phase == PhaseSucceeded || s.phase == PhaseFailed
}

// Results returns a copy of the recommendations. It is never nil.
func (s State) Results() []recommend.Recommendation {
	out := make([]recommend.Recommendation, len(s.results))
	copy(out, s.results)
	return out
}

// ErrorMessage returns the user-facing error message, empty unless the phase
// is PhaseFailed or PhaseInvalid.
func (s State) ErrorMessage() string { return s.err }
