package lottery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/bitfsorg/potlottery-go/lottery"

// Oracle is the external randomness source. Request must return once the
// request is issued; the value arrives later through Ledger.FulfillRandomness.
// Implementations must not call FulfillRandomness from within Request.
type Oracle interface {
	Request(ctx context.Context, req RandomnessRequest) error
}

// Verifier checks an oracle delivery before it is cached.
type Verifier interface {
	Verify(req RandomnessRequest, value, proof []byte) error
}

// Transferer moves funds out of custody. It either pays amount to the
// address and returns a transaction id, or fails without moving funds.
type Transferer interface {
	Transfer(ctx context.Context, to string, amount uint64) (string, error)
}

// Params are the fixed rules of a ledger.
type Params struct {
	EntryFee uint64 // satoshis per ticket
	Admin    string // address allowed to request randomness and pick winners
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used for state transitions.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithVerifier checks every oracle delivery with v.
func WithVerifier(v Verifier) Option {
	return func(l *Ledger) { l.verifier = v }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithAddressCheck replaces the entrant address check. The default accepts
// base58 P2PKH addresses.
func WithAddressCheck(check func(string) error) Option {
	return func(l *Ledger) { l.checkAddr = check }
}

// WithRequestID replaces the generator of randomness request ids.
func WithRequestID(gen func() string) Option {
	return func(l *Ledger) { l.newRequestID = gen }
}

// Ledger is the lottery state machine. Mutations are serialized by a single
// write lock and persisted before they become visible; queries run under the
// read lock.
type Ledger struct {
	mu    sync.RWMutex
	state *State

	params   Params
	store    Store
	oracle   Oracle
	transfer Transferer
	verifier Verifier

	log          logrus.FieldLogger
	tracer       trace.Tracer
	now          func() time.Time
	checkAddr    func(string) error
	newRequestID func() string
}

// New loads the ledger from store, creating round 1 when the store is empty.
func New(params Params, store Store, oracle Oracle, transfer Transferer, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store", ErrNilParam)
	}
	if oracle == nil {
		return nil, fmt.Errorf("%w: oracle", ErrNilParam)
	}
	if transfer == nil {
		return nil, fmt.Errorf("%w: transferer", ErrNilParam)
	}
	if params.EntryFee == 0 {
		return nil, fmt.Errorf("%w: entry fee must be positive", ErrInsufficientStake)
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	l := &Ledger{
		params:       params,
		store:        store,
		oracle:       oracle,
		transfer:     transfer,
		log:          discard,
		tracer:       otel.Tracer(tracerName),
		now:          time.Now,
		checkAddr:    ValidateAddress,
		newRequestID: newRequestID,
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.checkAddr(params.Admin); err != nil {
		return nil, fmt.Errorf("admin: %w", err)
	}

	st, err := store.LoadState()
	switch {
	case errors.Is(err, ErrStateNotFound):
		st = newState()
		if err := store.SaveState(st); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPersist, err)
		}
		l.log.WithField("round", st.Round.ID).Info("lottery initialized")
	case err != nil:
		return nil, fmt.Errorf("lottery: load state: %w", err)
	default:
		l.log.WithFields(logrus.Fields{
			"round":    st.Round.ID,
			"phase":    st.Round.Phase.String(),
			"entrants": len(st.Round.Entrants),
			"request":  st.Round.RequestID,
		}).Info("lottery state restored")
	}
	l.state = st

	// A payout that was sent but not recorded is finished now, never resent.
	if p := st.Round.Payout; st.Round.Phase == PhasePaying && p != nil && p.PayoutTxID != "" {
		if _, err := l.finish(); err != nil {
			l.log.WithFields(logrus.Fields{
				"round": p.RoundID,
				"txid":  p.PayoutTxID,
			}).WithError(err).Warn("paid round still not recorded")
		}
	}
	return l, nil
}

// ValidateAddress accepts base58check P2PKH addresses.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if _, err := script.NewAddressFromString(addr); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidAddress, addr, err)
	}
	return nil
}

// Params returns the ledger's fixed rules.
func (l *Ledger) Params() Params { return l.params }

// LotteryID returns the id of the round currently accepting entries or
// awaiting resolution.
func (l *Ledger) LotteryID() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Round.ID
}

// Lottery returns the history record of a resolved round.
// Returns ErrNotFound for id 0 and for rounds not yet resolved.
func (l *Ledger) Lottery(id uint64) (*Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id < 1 || id >= l.state.Round.ID {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return l.store.GetRecord(id)
}

// History returns every resolved round in ascending id order.
func (l *Ledger) History() ([]*Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.ListRecords()
}

// Status returns an operator snapshot of the current round.
func (l *Ledger) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r := l.state.Round
	st := Status{
		RoundID:     r.ID,
		Phase:       r.Phase,
		Entrants:    len(r.Entrants),
		Pot:         r.Pot,
		Balance:     l.state.Balance,
		RequestID:   r.RequestID,
		RequestedAt: r.RequestedAt,
		Fulfilled:   r.Seed != nil,
	}
	if r.Payout != nil {
		st.Winner = r.Payout.Winner
		st.PayoutTxID = r.Payout.PayoutTxID
	}
	return st
}

// Pending returns the outstanding randomness request, if any.
func (l *Ledger) Pending() (RandomnessRequest, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r := l.state.Round
	if r.Phase != PhaseRandomnessRequested {
		return RandomnessRequest{}, false
	}
	return RandomnessRequest{ID: r.RequestID, RoundID: r.ID, RequestedAt: r.RequestedAt}, true
}

// commit persists next and makes it the current state. Callers hold l.mu.
func (l *Ledger) commit(next *State) error {
	if err := l.store.SaveState(next); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	l.state = next
	return nil
}

func (l *Ledger) requireAdmin(caller string) error {
	if caller != l.params.Admin {
		return fmt.Errorf("%w: %q", ErrUnauthorized, caller)
	}
	return nil
}
