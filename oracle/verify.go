package oracle

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"

	"github.com/bitfsorg/potlottery-go/lottery"
)

// Verifier checks that a delivery was produced by the holder of a given key.
type Verifier struct {
	pub *ec.PublicKey
}

var _ lottery.Verifier = (*Verifier)(nil)

// NewVerifier returns a verifier for deliveries signed by pub.
func NewVerifier(pub *ec.PublicKey) (*Verifier, error) {
	if pub == nil {
		return nil, ErrNilKey
	}
	return &Verifier{pub: pub}, nil
}

// Verify checks that proof is a canonical signature over the request digest
// and that value was derived from it.
func (v *Verifier) Verify(req lottery.RandomnessRequest, value, proof []byte) error {
	sig, err := ec.ParseDERSignature(proof)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	// A high-S twin verifies too but would derive a second value.
	halfOrder := new(big.Int).Rsh(ec.S256().N, 1)
	if sig.S.Cmp(halfOrder) > 0 {
		return fmt.Errorf("%w: non-canonical S", ErrBadSignature)
	}
	digest := RequestDigest(req.ID, req.RoundID)
	if !sig.Verify(digest, v.pub) {
		return ErrBadSignature
	}
	want, err := DeriveValue(proof, digest)
	if err != nil {
		return err
	}
	if !bytes.Equal(want, value) {
		return ErrValueMismatch
	}
	return nil
}

// PrivateKeyFromHex decodes a 32-byte hex private key.
func PrivateKeyFromHex(s string) (*ec.PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: want 32 bytes, got %d", ErrInvalidKey, len(b))
	}
	priv, _ := ec.PrivateKeyFromBytes(b)
	return priv, nil
}

// PublicKeyFromHex decodes a hex SEC1 public key.
func PublicKeyFromHex(s string) (*ec.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	pub, err := ec.PublicKeyFromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return pub, nil
}
