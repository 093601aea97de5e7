package network

import "context"

// BlockchainService is the subset of node functionality the payout path
// needs: finding custody coins, broadcasting, and checking confirmations.
type BlockchainService interface {
	// ListUnspent returns the unspent outputs paying to address.
	ListUnspent(ctx context.Context, address string) ([]*UTXO, error)

	// BroadcastTx submits a raw transaction hex and returns its txid.
	BroadcastTx(ctx context.Context, rawTxHex string) (string, error)

	// GetTxStatus returns the confirmation status of txid.
	GetTxStatus(ctx context.Context, txid string) (*TxStatus, error)

	// GetBestBlockHeight returns the height of the chain tip.
	GetBestBlockHeight(ctx context.Context) (uint64, error)

	// ImportAddress adds a watch-only address to the node wallet so that
	// ListUnspent can see its outputs. Importing twice is harmless.
	ImportAddress(ctx context.Context, address string) error
}

// UTXO is an unspent output. Amount is in satoshis.
type UTXO struct {
	TxID          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Amount        uint64 `json:"amount"`
	ScriptPubKey  string `json:"script_pubkey"`
	Address       string `json:"address"`
	Confirmations int64  `json:"confirmations"`
}

// TxStatus is the confirmation status of a transaction.
type TxStatus struct {
	Confirmed     bool   `json:"confirmed"`
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"block_hash"`
	BlockHeight   uint64 `json:"block_height"`
}
