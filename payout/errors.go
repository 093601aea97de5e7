package payout

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("payout: required parameter is nil")

	// ErrZeroAmount indicates a transfer of nothing was requested.
	ErrZeroAmount = errors.New("payout: amount is zero")

	// ErrInvalidAddress indicates the recipient is not a P2PKH address.
	ErrInvalidAddress = errors.New("payout: invalid recipient address")

	// ErrInsufficientFunds indicates custody cannot cover the amount and fee.
	ErrInsufficientFunds = errors.New("payout: insufficient custody funds")

	// ErrInvalidUTXO indicates the node reported an unusable output.
	ErrInvalidUTXO = errors.New("payout: invalid utxo")

	// ErrSigningFailed indicates the payout transaction could not be signed.
	ErrSigningFailed = errors.New("payout: signing failed")

	// ErrBroadcastFailed indicates the node did not accept the transaction.
	ErrBroadcastFailed = errors.New("payout: broadcast failed")

	// ErrRecipientRejected indicates the recipient refuses transfers.
	ErrRecipientRejected = errors.New("payout: recipient rejected transfer")
)
