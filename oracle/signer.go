package oracle

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/potlottery-go/lottery"
)

// Fulfiller receives oracle deliveries. *lottery.Ledger satisfies it.
type Fulfiller interface {
	FulfillRandomness(requestID string, value, proof []byte) error
}

// Signer is a lottery.Oracle that answers each request with a value derived
// from its own deterministic signature. Deliveries happen on a separate
// goroutine, never from inside Request.
type Signer struct {
	key *ec.PrivateKey
	log logrus.FieldLogger

	mu     sync.Mutex
	target Fulfiller
	wg     sync.WaitGroup
}

var _ lottery.Oracle = (*Signer)(nil)

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithSignerLogger sets the logger for deliveries.
func WithSignerLogger(log logrus.FieldLogger) SignerOption {
	return func(s *Signer) { s.log = log }
}

// NewSigner creates a signing oracle for key.
func NewSigner(key *ec.PrivateKey, opts ...SignerOption) (*Signer, error) {
	if key == nil {
		return nil, ErrNilKey
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Signer{key: key, log: discard}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Bind sets the ledger that receives deliveries. The ledger is usually built
// with the signer as its oracle, so binding happens after construction.
func (s *Signer) Bind(f Fulfiller) {
	s.mu.Lock()
	s.target = f
	s.mu.Unlock()
}

// PublicKey returns the key deliveries are verified against.
func (s *Signer) PublicKey() *ec.PublicKey {
	return s.key.PubKey()
}

// Respond computes the value and proof for req without delivering them.
func (s *Signer) Respond(req lottery.RandomnessRequest) (value, proof []byte, err error) {
	digest := RequestDigest(req.ID, req.RoundID)
	sig, err := s.key.Sign(digest)
	if err != nil {
		return nil, nil, fmt.Errorf("oracle: sign: %w", err)
	}
	proof = sig.Serialize()
	value, err = DeriveValue(proof, digest)
	if err != nil {
		return nil, nil, err
	}
	return value, proof, nil
}

// Request schedules delivery of the response to req and returns at once.
func (s *Signer) Request(_ context.Context, req lottery.RandomnessRequest) error {
	s.mu.Lock()
	target := s.target
	s.mu.Unlock()
	if target == nil {
		return ErrNotBound
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliver(target, req)
	}()
	return nil
}

// Deliver computes and delivers the response to req synchronously. It must
// not be called while the ledger's lock is held.
func (s *Signer) Deliver(req lottery.RandomnessRequest) error {
	s.mu.Lock()
	target := s.target
	s.mu.Unlock()
	if target == nil {
		return ErrNotBound
	}
	return s.deliver(target, req)
}

func (s *Signer) deliver(target Fulfiller, req lottery.RandomnessRequest) error {
	log := s.log.WithFields(logrus.Fields{
		"round":   req.RoundID,
		"request": req.ID,
	})
	value, proof, err := s.Respond(req)
	if err != nil {
		log.WithError(err).Error("oracle response failed")
		return err
	}
	if err := target.FulfillRandomness(req.ID, value, proof); err != nil {
		log.WithError(err).Warn("oracle delivery refused")
		return err
	}
	log.WithField("value", hex.EncodeToString(value)).Debug("oracle delivered")
	return nil
}

// Wait blocks until every scheduled delivery has finished.
func (s *Signer) Wait() {
	s.wg.Wait()
}
