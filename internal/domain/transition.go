package domain

import "fmt"

// TransitionPolicy decides whether an incoming status may replace the
// current one. Both policies refuse to move a terminal status back to
// pending; they differ only on terminal → other terminal.
type TransitionPolicy string

const (
	// FirstTerminalWins treats success and failed as absorbing states
	FirstTerminalWins TransitionPolicy = "first_terminal"
	// LatestTerminalWins lets a later terminal status replace an earlier one
	LatestTerminalWins TransitionPolicy = "latest_terminal"
)

// transitionTables holds the allowed target states per current state
var transitionTables = map[TransitionPolicy]map[PaymentStatus][]PaymentStatus{
	FirstTerminalWins: {
		PaymentStatusPending: {PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed},
		PaymentStatusSuccess: {PaymentStatusSuccess},
		PaymentStatusFailed:  {PaymentStatusFailed},
	},
	LatestTerminalWins: {
		PaymentStatusPending: {PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed},
		PaymentStatusSuccess: {PaymentStatusSuccess, PaymentStatusFailed},
		PaymentStatusFailed:  {PaymentStatusFailed, PaymentStatusSuccess},
	},
}

// ParseTransitionPolicy parses the STATUS_MERGE_POLICY value
func ParseTransitionPolicy(s string) (TransitionPolicy, error) {
	switch TransitionPolicy(s) {
	case "", FirstTerminalWins:
		return FirstTerminalWins, nil
	case LatestTerminalWins:
		return LatestTerminalWins, nil
	default:
		return "", fmt.Errorf("unknown status merge policy %q", s)
	}
}

// CanTransition reports whether from → to is allowed under the policy.
// Same-state transitions are allowed and are no-ops.
func (p TransitionPolicy) CanTransition(from, to PaymentStatus) bool {
	table, ok := transitionTables[p]
	if !ok {
		table = transitionTables[FirstTerminalWins]
	}
	for _, allowed := range table[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Apply merges an incoming status into rec. It returns true if the record's
// status changed.
func (p TransitionPolicy) Apply(rec *PaymentRecord, incoming PaymentStatus) bool {
	if rec.Status == incoming || !p.CanTransition(rec.Status, incoming) {
		return false
	}
	rec.Status = incoming
	return true
}
