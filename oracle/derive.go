// Package oracle implements a signing randomness oracle for the lottery ledger.
//
// For each randomness request the oracle signs a digest binding the request
// to its round, and derives the random value from that signature:
//
//	digest = SHA256("potlottery-randomness" || request_id || BE64(round_id))
//	proof  = ECDSA_RFC6979(oracle_key, digest)   (DER, low-S)
//	value  = HKDF-SHA256(proof, digest, "potlottery-value")
//
// RFC 6979 makes the signature, and therefore the value, a pure function of
// the key and the request. Anyone holding the oracle's public key can check a
// delivery with Verifier without trusting the party that relayed it.
package oracle

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// DigestDomain prefixes every signed digest.
	DigestDomain = "potlottery-randomness"

	// HKDFInfo is the info string used to derive the value from the proof.
	HKDFInfo = "potlottery-value"

	// ValueLen is the length of a derived random value in bytes.
	ValueLen = 32
)

// RequestDigest returns the 32-byte digest signed for a request.
func RequestDigest(requestID string, roundID uint64) []byte {
	h := sha256.New()
	h.Write([]byte(DigestDomain))
	h.Write([]byte(requestID))
	var round [8]byte
	binary.BigEndian.PutUint64(round[:], roundID)
	h.Write(round[:])
	return h.Sum(nil)
}

// DeriveValue expands a proof into the random value delivered to the ledger.
func DeriveValue(proof, digest []byte) ([]byte, error) {
	if len(proof) == 0 {
		return nil, fmt.Errorf("%w: empty proof", ErrBadSignature)
	}
	r := hkdf.New(sha256.New, proof, digest, []byte(HKDFInfo))
	value := make([]byte, ValueLen)
	if _, err := io.ReadFull(r, value); err != nil {
		return nil, fmt.Errorf("oracle: derive value: %w", err)
	}
	return value, nil
}
