package lottery

import "errors"

var (
	// ErrInvalidState indicates the operation is not valid in the current round phase.
	ErrInvalidState = errors.New("lottery: operation not valid in current round state")

	// ErrUnauthorized indicates a non-administrator attempted a privileged operation.
	ErrUnauthorized = errors.New("lottery: caller is not the administrator")

	// ErrInsufficientStake indicates the stake does not equal the fixed entry fee.
	ErrInsufficientStake = errors.New("lottery: stake must equal the entry fee")

	// ErrNoEntrants indicates randomness was requested for a round without players.
	ErrNoEntrants = errors.New("lottery: round has no entrants")

	// ErrRequestAlreadyPending indicates a randomness request is already outstanding.
	ErrRequestAlreadyPending = errors.New("lottery: randomness request already pending")

	// ErrDuplicateRoundID indicates a history record for the round already exists.
	ErrDuplicateRoundID = errors.New("lottery: duplicate round id")

	// ErrNotFound indicates the round has not been resolved or does not exist.
	ErrNotFound = errors.New("lottery: round not found")

	// ErrTransferFailure indicates the pot could not be paid to the winner.
	ErrTransferFailure = errors.New("lottery: payout transfer failed")

	// ErrInvalidAddress indicates the caller is not a valid address.
	ErrInvalidAddress = errors.New("lottery: invalid address")

	// ErrUnknownRequest indicates a delivery for a request that is not pending.
	ErrUnknownRequest = errors.New("lottery: unknown randomness request")

	// ErrAlreadyFulfilled indicates the pending request already received its value.
	ErrAlreadyFulfilled = errors.New("lottery: randomness already delivered")

	// ErrInvalidRandomness indicates the delivered value is empty or failed verification.
	ErrInvalidRandomness = errors.New("lottery: invalid randomness")

	// ErrOverflow indicates the pot would exceed the representable amount.
	ErrOverflow = errors.New("lottery: pot overflow")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("lottery: required parameter is nil")

	// ErrStateNotFound indicates the store holds no ledger state yet.
	ErrStateNotFound = errors.New("lottery: no persisted state")

	// ErrPersist indicates the store failed to persist a state transition.
	ErrPersist = errors.New("lottery: persist state")

	// ErrPayoutUnknown indicates a payout was started but its outcome was
	// never recorded. It must be settled by the administrator.
	ErrPayoutUnknown = errors.New("lottery: payout outcome unknown")
)
