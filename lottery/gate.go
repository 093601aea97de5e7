package lottery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func newRequestID() string {
	return uuid.NewString()
}

// RequestRandomness closes the open round and asks the oracle for its random
// value. Only the administrator may call it. If the oracle refuses the
// request the round stays open.
func (l *Ledger) RequestRandomness(ctx context.Context, caller string) (RandomnessRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return RandomnessRequest{}, err
	}
	r := &l.state.Round
	switch r.Phase {
	case PhaseOpen:
	case PhaseRandomnessRequested:
		return RandomnessRequest{}, fmt.Errorf("%w: round %d request %s", ErrRequestAlreadyPending, r.ID, r.RequestID)
	default:
		return RandomnessRequest{}, fmt.Errorf("%w: round %d is %s", ErrInvalidState, r.ID, r.Phase)
	}
	if len(r.Entrants) == 0 {
		return RandomnessRequest{}, fmt.Errorf("%w: round %d", ErrNoEntrants, r.ID)
	}

	req := RandomnessRequest{
		ID:          l.newRequestID(),
		RoundID:     r.ID,
		RequestedAt: l.now(),
	}

	ctx, span := l.tracer.Start(ctx, "lottery.RequestRandomness")
	span.SetAttributes(
		attribute.Int64("lottery.round", int64(req.RoundID)),
		attribute.String("lottery.request", req.ID),
	)
	defer span.End()

	if err := l.oracle.Request(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "oracle request")
		return RandomnessRequest{}, fmt.Errorf("lottery: oracle request: %w", err)
	}

	next := l.state.clone()
	next.Round.Phase = PhaseRandomnessRequested
	next.Round.RequestID = req.ID
	next.Round.RequestedAt = req.RequestedAt
	if err := l.commit(next); err != nil {
		return RandomnessRequest{}, err
	}

	l.log.WithFields(logrus.Fields{
		"round":    req.RoundID,
		"request":  req.ID,
		"entrants": len(next.Round.Entrants),
	}).Info("randomness requested")
	return req, nil
}

// FulfillRandomness caches the oracle's value for the pending request. The
// value is an untrusted big-endian integer; it is reduced modulo the number
// of entrants when the winner is picked.
func (l *Ledger) FulfillRandomness(requestID string, value, proof []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := &l.state.Round
	if r.Phase != PhaseRandomnessRequested {
		return fmt.Errorf("%w: round %d is %s", ErrInvalidState, r.ID, r.Phase)
	}
	if requestID != r.RequestID {
		return fmt.Errorf("%w: %q", ErrUnknownRequest, requestID)
	}
	if r.Seed != nil {
		return fmt.Errorf("%w: request %s", ErrAlreadyFulfilled, requestID)
	}
	if len(value) == 0 {
		return fmt.Errorf("%w: empty value", ErrInvalidRandomness)
	}
	if l.verifier != nil {
		req := RandomnessRequest{ID: r.RequestID, RoundID: r.ID, RequestedAt: r.RequestedAt}
		if err := l.verifier.Verify(req, value, proof); err != nil {
			l.log.WithFields(logrus.Fields{
				"round":   r.ID,
				"request": requestID,
			}).WithError(err).Warn("randomness rejected")
			return fmt.Errorf("%w: %w", ErrInvalidRandomness, err)
		}
	}

	next := l.state.clone()
	next.Round.Seed = append([]byte(nil), value...)
	next.Round.FulfilledAt = l.now()
	if err := l.commit(next); err != nil {
		return err
	}

	l.log.WithFields(logrus.Fields{
		"round":   next.Round.ID,
		"request": requestID,
		"waited":  next.Round.FulfilledAt.Sub(next.Round.RequestedAt).String(),
	}).Info("randomness delivered")
	return nil
}
