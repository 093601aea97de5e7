package lottery

import (
	"time"
)

// Phase is the lifecycle position of a round.
type Phase uint8

const (
	// PhaseOpen accepts entries.
	PhaseOpen Phase = iota
	// PhaseRandomnessRequested is closed for entries and waiting on the oracle.
	PhaseRandomnessRequested
	// PhaseResolved has paid out and is recorded in history.
	PhaseResolved
	// PhasePaying has a winner chosen and the payout under way or sent but
	// not yet recorded in history.
	PhasePaying
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseRandomnessRequested:
		return "randomness-requested"
	case PhaseResolved:
		return "resolved"
	case PhasePaying:
		return "paying"
	default:
		return "unknown"
	}
}

// Round is the unit of lottery play.
type Round struct {
	ID       uint64   `json:"id"`
	Phase    Phase    `json:"phase"`
	Entrants []string `json:"entrants"` // duplicates allowed, one ticket each
	Pot      uint64   `json:"pot"`      // satoshis

	// Pending oracle request. RequestID is empty while the round is open.
	RequestID   string    `json:"request_id,omitempty"`
	RequestedAt time.Time `json:"requested_at,omitempty"`

	// Seed is the delivered random value, big-endian. Nil until the oracle
	// delivers; consumed by the resolver.
	Seed        []byte    `json:"seed,omitempty"`
	FulfilledAt time.Time `json:"fulfilled_at,omitempty"`

	// Payout is the resolution in progress while the round is paying. Its
	// PayoutTxID is set once the transfer has succeeded.
	Payout *Record `json:"payout,omitempty"`
}

// clone returns a deep copy so a mutation can be prepared off to the side.
func (r Round) clone() Round {
	c := r
	if r.Entrants != nil {
		c.Entrants = append([]string(nil), r.Entrants...)
	}
	if r.Seed != nil {
		c.Seed = append([]byte(nil), r.Seed...)
	}
	if r.Payout != nil {
		p := *r.Payout
		c.Payout = &p
	}
	return c
}

// State is the persisted process-wide ledger state.
type State struct {
	Round   Round  `json:"round"`
	Balance uint64 `json:"balance"` // custodial funds held, satoshis
}

func (s *State) clone() *State {
	return &State{Round: s.Round.clone(), Balance: s.Balance}
}

// newState returns the initial state with round 1 open.
func newState() *State {
	return &State{Round: Round{ID: 1, Phase: PhaseOpen}}
}

// Record is the immutable history entry for a resolved round.
type Record struct {
	RoundID     uint64    `json:"round_id"`
	Winner      string    `json:"winner"`
	Payout      uint64    `json:"payout"` // satoshis
	Entrants    int       `json:"entrants"`
	WinnerIndex int       `json:"winner_index"`
	PayoutTxID  string    `json:"payout_txid,omitempty"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// RandomnessRequest identifies one oracle request for one round.
type RandomnessRequest struct {
	ID          string
	RoundID     uint64
	RequestedAt time.Time
}

// Status is an operator snapshot of the current round.
type Status struct {
	RoundID     uint64
	Phase       Phase
	Entrants    int
	Pot         uint64
	Balance     uint64
	RequestID   string
	RequestedAt time.Time
	Fulfilled   bool

	// Set while the round is paying.
	Winner     string
	PayoutTxID string
}

// AwaitingOracle reports whether the round is waiting on an oracle delivery.
func (s Status) AwaitingOracle() bool {
	return s.Phase == PhaseRandomnessRequested && !s.Fulfilled
}

// Stalled reports whether the oracle has been silent for longer than after.
// A zero after disables the check.
func (s Status) Stalled(now time.Time, after time.Duration) bool {
	if after <= 0 || !s.AwaitingOracle() {
		return false
	}
	return now.Sub(s.RequestedAt) > after
}
