package sleep

// Phase is the state of the cycle controller.
type Phase int32

const (
	// PhaseCollecting accepts reports between two passes.
	PhaseCollecting Phase = iota
	// PhaseScheduling runs estimation, coverage and selection.
	PhaseScheduling
	// PhasePublishing hands the policy to the network and writes the snapshot.
	PhasePublishing
	// PhaseReset drops every cycle local table.
	PhaseReset
)

func (p Phase) String() string {
	switch p {
	case PhaseCollecting:
		return "collecting"
	case PhaseScheduling:
		return "scheduling"
	case PhasePublishing:
		return "publishing"
	case PhaseReset:
		return "reset"
	default:
		return "unknown"
	}
}

// next returns the phase following p.
func (p Phase) next() Phase {
	if p == PhaseReset {
		return PhaseCollecting
	}
	return p + 1
}

// canTransition reports whether the controller may move from p to to. Every
// phase may fall back to reset.
func (p Phase) canTransition(to Phase) bool {
	return to == p.next() || to == PhaseReset
}
