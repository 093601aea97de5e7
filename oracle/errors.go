package oracle

import "errors"

var (
	// ErrNilKey indicates a signer or verifier was built without a key.
	ErrNilKey = errors.New("oracle: key is nil")

	// ErrNotBound indicates a request arrived before Bind was called.
	ErrNotBound = errors.New("oracle: no ledger bound")

	// ErrInvalidKey indicates a hex key could not be decoded.
	ErrInvalidKey = errors.New("oracle: invalid key")

	// ErrBadSignature indicates the proof is not a valid signature by the oracle key.
	ErrBadSignature = errors.New("oracle: signature does not verify")

	// ErrValueMismatch indicates the value was not derived from the proof.
	ErrValueMismatch = errors.New("oracle: value not derived from proof")
)
