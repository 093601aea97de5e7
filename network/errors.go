package network

import "errors"

var (
	// ErrConnectionFailed means the node could not be reached or answered
	// with a non-JSON-RPC HTTP error.
	ErrConnectionFailed = errors.New("network: connection failed")

	// ErrAuthFailed means the node refused the RPC credentials.
	ErrAuthFailed = errors.New("network: authentication failed")

	// ErrTxNotFound means the node knows no transaction with the given id.
	ErrTxNotFound = errors.New("network: transaction not found")

	// ErrBroadcastRejected wraps the node's reason for refusing a payout.
	ErrBroadcastRejected = errors.New("network: broadcast rejected")

	// ErrInvalidResponse means the reply could not be decoded or did not
	// match the request.
	ErrInvalidResponse = errors.New("network: invalid response")
)

// rpcCodeNoSuchTx is the node's RPC_INVALID_ADDRESS_OR_KEY, returned by
// getrawtransaction for unknown ids.
const rpcCodeNoSuchTx = -5
