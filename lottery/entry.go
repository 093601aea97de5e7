package lottery

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Enter adds one ticket for caller to the open round. The stake must equal
// the entry fee exactly; it is taken into custody and added to the pot.
func (l *Ledger) Enter(caller string, stake uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := &l.state.Round
	if r.Phase != PhaseOpen {
		return fmt.Errorf("%w: round %d is %s", ErrInvalidState, r.ID, r.Phase)
	}
	if stake != l.params.EntryFee {
		return fmt.Errorf("%w: got %d, want %d", ErrInsufficientStake, stake, l.params.EntryFee)
	}
	if err := l.checkAddr(caller); err != nil {
		return err
	}
	if r.Pot > math.MaxUint64-stake || l.state.Balance > math.MaxUint64-stake {
		return ErrOverflow
	}

	next := l.state.clone()
	next.Round.Entrants = append(next.Round.Entrants, caller)
	next.Round.Pot += stake
	next.Balance += stake
	if err := l.commit(next); err != nil {
		return err
	}

	l.log.WithFields(logrus.Fields{
		"round":    next.Round.ID,
		"caller":   caller,
		"entrants": len(next.Round.Entrants),
		"pot":      next.Round.Pot,
	}).Info("entry accepted")
	return nil
}

// Balance returns the custodial funds currently held.
func (l *Ledger) Balance() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Balance
}

// Players returns a copy of the current round's entrants in entry order.
func (l *Ledger) Players() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.state.Round.Entrants...)
}
