package lottery

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Stalled reports whether the current round has waited on the oracle for
// longer than after. There is no timeout on the request itself; this only
// makes the condition observable.
func (l *Ledger) Stalled(after time.Duration) bool {
	return l.Status().Stalled(l.now(), after)
}

// WatchStalled checks the round every interval until ctx is done. Each time
// the oracle has been silent longer than after, the condition is logged and
// fn (if non-nil) is called with the current status. A non-positive
// interval returns at once.
func (l *Ledger) WatchStalled(ctx context.Context, interval, after time.Duration, fn func(Status)) {
	if interval <= 0 {
		l.log.WithField("interval", interval.String()).Error("stall watch not started: interval must be positive")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := l.Status()
			if !st.Stalled(l.now(), after) {
				continue
			}
			l.log.WithFields(logrus.Fields{
				"round":   st.RoundID,
				"request": st.RequestID,
				"waiting": l.now().Sub(st.RequestedAt).String(),
			}).Warn("oracle has not delivered; round cannot be resolved")
			if fn != nil {
				fn(st)
			}
		}
	}
}
