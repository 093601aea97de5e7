package network

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var _ BlockchainService = (*RPCClient)(nil)

// btcToSat converts a node-reported BSV amount to satoshis, rounding to
// the nearest satoshi.
func btcToSat(btc float64) uint64 {
	return uint64(math.Round(btc * 1e8))
}

type listUnspentResult struct {
	TxID          string  `json:"txid"`
	Vout          uint32  `json:"vout"`
	Amount        float64 `json:"amount"`
	ScriptPubKey  string  `json:"scriptPubKey"`
	Address       string  `json:"address"`
	Confirmations int64   `json:"confirmations"`
}

// ListUnspent calls `listunspent 0 9999999 ["address"]`. Unconfirmed
// outputs are included.
func (c *RPCClient) ListUnspent(ctx context.Context, address string) ([]*UTXO, error) {
	var results []listUnspentResult
	if err := c.Call(ctx, "listunspent", []interface{}{0, 9999999, []string{address}}, &results); err != nil {
		return nil, err
	}
	utxos := make([]*UTXO, 0, len(results))
	for _, r := range results {
		utxos = append(utxos, &UTXO{
			TxID:          r.TxID,
			Vout:          r.Vout,
			Amount:        btcToSat(r.Amount),
			ScriptPubKey:  r.ScriptPubKey,
			Address:       r.Address,
			Confirmations: r.Confirmations,
		})
	}
	return utxos, nil
}

// BroadcastTx calls `sendrawtransaction "hex"`. Node rejections are wrapped
// with ErrBroadcastRejected.
func (c *RPCClient) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	var txid string
	if err := c.Call(ctx, "sendrawtransaction", []interface{}{rawTxHex}, &txid); err != nil {
		return "", fmt.Errorf("%w: %w", ErrBroadcastRejected, err)
	}
	return txid, nil
}

type verboseTxResult struct {
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"blockhash"`
	BlockHeight   uint64 `json:"blockheight"`
}

// GetTxStatus calls `getrawtransaction "txid" true`. Unknown ids return
// ErrTxNotFound.
func (c *RPCClient) GetTxStatus(ctx context.Context, txid string) (*TxStatus, error) {
	var result verboseTxResult
	if err := c.Call(ctx, "getrawtransaction", []interface{}{txid, true}, &result); err != nil {
		var rerr *rpcError
		if errors.As(err, &rerr) && rerr.Code == rpcCodeNoSuchTx {
			return nil, fmt.Errorf("%w: %s", ErrTxNotFound, txid)
		}
		return nil, err
	}
	return &TxStatus{
		Confirmed:     result.Confirmations > 0,
		Confirmations: result.Confirmations,
		BlockHash:     result.BlockHash,
		BlockHeight:   result.BlockHeight,
	}, nil
}

// GetBestBlockHeight calls `getblockcount`.
func (c *RPCClient) GetBestBlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	if err := c.Call(ctx, "getblockcount", nil, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// ImportAddress calls `importaddress "address" "" true`, which rescans the
// chain for existing outputs.
func (c *RPCClient) ImportAddress(ctx context.Context, address string) error {
	if err := c.Call(ctx, "importaddress", []interface{}{address, "", true}, nil); err != nil {
		return fmt.Errorf("network: import %s: %w", address, err)
	}
	return nil
}
