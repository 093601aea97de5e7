package lottery

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// WinnerIndex reduces seed modulo n. The seed is never used as an index
// directly, so any length or magnitude is safe. n must be positive.
func WinnerIndex(seed []byte, n int) int {
	v := new(big.Int).SetBytes(seed)
	return int(v.Mod(v, big.NewInt(int64(n))).Int64())
}

// PickWinner resolves the round: it selects the winner from the delivered
// seed, pays the whole pot, appends the history record and opens the next
// round.
//
// The chosen winner is persisted before any funds move. If the transfer
// fails the round returns to its previous state and the call may be retried.
// If the transfer succeeds but the record cannot be stored, the round stays
// paying with its txid and the next PickWinner, or the next New, stores the
// record without paying again.
func (l *Ledger) PickWinner(ctx context.Context, caller string) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return nil, err
	}
	r := &l.state.Round
	switch r.Phase {
	case PhaseRandomnessRequested:
	case PhasePaying:
		if r.Payout.PayoutTxID == "" {
			return nil, fmt.Errorf("%w: round %d payout of %d to %s", ErrPayoutUnknown, r.ID, r.Payout.Payout, r.Payout.Winner)
		}
		return l.finish()
	default:
		return nil, fmt.Errorf("%w: round %d is %s", ErrInvalidState, r.ID, r.Phase)
	}
	if r.Seed == nil {
		return nil, fmt.Errorf("%w: round %d awaiting randomness %s", ErrInvalidState, r.ID, r.RequestID)
	}
	if len(r.Entrants) == 0 {
		// Unreachable: requests are refused for empty rounds.
		return nil, fmt.Errorf("%w: round %d", ErrNoEntrants, r.ID)
	}

	idx := WinnerIndex(r.Seed, len(r.Entrants))
	prev := l.state
	paying := prev.clone()
	paying.Round.Phase = PhasePaying
	paying.Round.Payout = &Record{
		RoundID:     r.ID,
		Winner:      r.Entrants[idx],
		Payout:      r.Pot,
		Entrants:    len(r.Entrants),
		WinnerIndex: idx,
	}
	if err := l.commit(paying); err != nil {
		return nil, err
	}
	return l.pay(ctx, prev)
}

// SettlePayout resolves a paying round whose transfer outcome was never
// recorded, typically after a crash during the transfer. A non-empty txid
// records the payment the administrator found on chain. An empty txid
// declares that nothing was paid and transfers the pot again.
func (l *Ledger) SettlePayout(ctx context.Context, caller, txid string) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return nil, err
	}
	r := &l.state.Round
	if r.Phase != PhasePaying {
		return nil, fmt.Errorf("%w: round %d is %s", ErrInvalidState, r.ID, r.Phase)
	}
	if r.Payout.PayoutTxID != "" {
		return l.finish()
	}
	l.log.WithFields(logrus.Fields{
		"round":  r.ID,
		"caller": caller,
		"txid":   txid,
	}).Warn("settling payout by hand")
	if txid == "" {
		return l.pay(ctx, nil)
	}
	l.markPaid(txid)
	return l.finish()
}

// pay transfers the paying round's pot. On failure the ledger returns to
// revert, or stays paying when revert is nil. Callers hold l.mu.
func (l *Ledger) pay(ctx context.Context, revert *State) (*Record, error) {
	p := l.state.Round.Payout

	ctx, span := l.tracer.Start(ctx, "lottery.PickWinner")
	span.SetAttributes(
		attribute.Int64("lottery.round", int64(p.RoundID)),
		attribute.Int("lottery.entrants", p.Entrants),
		attribute.Int64("lottery.pot", int64(p.Payout)),
	)
	defer span.End()

	txid, err := l.transfer.Transfer(ctx, p.Winner, p.Payout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payout")
		log := l.log.WithFields(logrus.Fields{
			"round":  p.RoundID,
			"winner": p.Winner,
			"payout": p.Payout,
		})
		log.WithError(err).Error("payout failed, round left unresolved")
		if revert != nil {
			if serr := l.store.SaveState(revert); serr != nil {
				log.WithError(serr).Warn("payout intent not cleared in store")
			}
			l.state = revert
		}
		return nil, fmt.Errorf("%w: %w", ErrTransferFailure, err)
	}

	l.markPaid(txid)
	rec, err := l.finish()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record")
	}
	return rec, err
}

// markPaid records a successful transfer on the paying round. The txid is
// persisted before the history record so a restart never pays twice.
func (l *Ledger) markPaid(txid string) {
	paid := l.state.clone()
	paid.Round.Payout.PayoutTxID = txid
	paid.Round.Payout.ResolvedAt = l.now()
	if err := l.store.SaveState(paid); err != nil {
		l.log.WithFields(logrus.Fields{
			"round": paid.Round.ID,
			"txid":  txid,
		}).WithError(err).Error("payout sent but txid not persisted")
	}
	l.state = paid
}

// finish appends the paid round's record and opens the next round. On
// failure the round stays paying. Callers hold l.mu.
func (l *Ledger) finish() (*Record, error) {
	r := l.state.Round
	rec := *r.Payout
	next := &State{
		Round:   Round{ID: r.ID + 1, Phase: PhaseOpen},
		Balance: l.state.Balance - rec.Payout,
	}

	err := l.store.AppendRecord(&rec, next)
	if errors.Is(err, ErrDuplicateRoundID) {
		// An earlier attempt stored the record and then reported failure.
		if stored, gerr := l.store.GetRecord(rec.RoundID); gerr == nil && stored.PayoutTxID == rec.PayoutTxID {
			err = l.store.SaveState(next)
		}
	}
	if err != nil {
		l.log.WithFields(logrus.Fields{
			"round": rec.RoundID,
			"txid":  rec.PayoutTxID,
		}).WithError(err).Error("payout sent but history not persisted")
		return &rec, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	l.state = next

	l.log.WithFields(logrus.Fields{
		"round":  rec.RoundID,
		"winner": rec.Winner,
		"index":  rec.WinnerIndex,
		"payout": rec.Payout,
		"txid":   rec.PayoutTxID,
	}).Info("round resolved")
	return &rec, nil
}
