package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcHandler func(params []interface{}) (interface{}, *rpcError)

// rpcTestServer serves the given methods and fails the test on any other.
func rpcTestServer(t *testing.T, handlers map[string]rpcHandler) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler, ok := handlers[req.Method]
		if !ok {
			t.Errorf("unexpected RPC method: %s", req.Method)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		result, rpcErr := handler(req.Params)
		resp := rpcResponse{ID: req.ID}
		if rpcErr != nil {
			resp.Error = rpcErr
			w.WriteHeader(http.StatusInternalServerError)
		} else {
			resp.Result, _ = json.Marshal(result)
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

const custodyAddr = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"

func TestListUnspent(t *testing.T) {
	server := rpcTestServer(t, map[string]rpcHandler{
		"listunspent": func(params []interface{}) (interface{}, *rpcError) {
			require.Len(t, params, 3)
			assert.Equal(t, float64(0), params[0])
			assert.Equal(t, float64(9999999), params[1])
			addrs, ok := params[2].([]interface{})
			require.True(t, ok)
			assert.Equal(t, custodyAddr, addrs[0])

			return []map[string]interface{}{
				{"txid": "aa01", "vout": 0, "amount": 0.001, "scriptPubKey": "76a914deadbeef88ac", "address": custodyAddr, "confirmations": 6},
				{"txid": "bb02", "vout": 1, "amount": 1.5, "scriptPubKey": "76a914cafebabe88ac", "address": custodyAddr, "confirmations": 0},
				{"txid": "cc03", "vout": 2, "amount": 0.00000001, "scriptPubKey": "76a914cafebabe88ac", "address": custodyAddr, "confirmations": 1},
			}, nil
		},
	})
	defer server.Close()

	client := NewRPCClient(RPCConfig{URL: server.URL})
	utxos, err := client.ListUnspent(context.Background(), custodyAddr)
	require.NoError(t, err)
	require.Len(t, utxos, 3)

	assert.Equal(t, "aa01", utxos[0].TxID)
	assert.Equal(t, uint64(100000), utxos[0].Amount)
	assert.Equal(t, "76a914deadbeef88ac", utxos[0].ScriptPubKey)
	assert.Equal(t, int64(6), utxos[0].Confirmations)
	assert.Equal(t, uint32(1), utxos[1].Vout)
	assert.Equal(t, uint64(150000000), utxos[1].Amount)
	assert.Equal(t, uint64(1), utxos[2].Amount)
}

func TestListUnspentEmpty(t *testing.T) {
	server := rpcTestServer(t, map[string]rpcHandler{
		"listunspent": func([]interface{}) (interface{}, *rpcError) {
			return []interface{}{}, nil
		},
	})
	defer server.Close()

	utxos, err := NewRPCClient(RPCConfig{URL: server.URL}).ListUnspent(context.Background(), custodyAddr)
	require.NoError(t, err)
	assert.Empty(t, utxos)
}

func TestBroadcastTx(t *testing.T) {
	server := rpcTestServer(t, map[string]rpcHandler{
		"sendrawtransaction": func(params []interface{}) (interface{}, *rpcError) {
			require.Len(t, params, 1)
			assert.Equal(t, "0100000001abcdef", params[0])
			return "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", nil
		},
	})
	defer server.Close()

	txid, err := NewRPCClient(RPCConfig{URL: server.URL}).BroadcastTx(context.Background(), "0100000001abcdef")
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", txid)
}

func TestBroadcastTxRejected(t *testing.T) {
	server := rpcTestServer(t, map[string]rpcHandler{
		"sendrawtransaction": func([]interface{}) (interface{}, *rpcError) {
			return nil, &rpcError{Code: -26, Message: "mandatory-script-verify-flag-failed"}
		},
	})
	defer server.Close()

	txid, err := NewRPCClient(RPCConfig{URL: server.URL}).BroadcastTx(context.Background(), "bad-hex")
	assert.Empty(t, txid)
	assert.ErrorIs(t, err, ErrBroadcastRejected)
	assert.Contains(t, err.Error(), "mandatory-script-verify-flag-failed")
}

func TestGetTxStatus(t *testing.T) {
	server := rpcTestServer(t, map[string]rpcHandler{
		"getrawtransaction": func(params []interface{}) (interface{}, *rpcError) {
			require.Len(t, params, 2)
			assert.Equal(t, "txid456", params[0])
			assert.Equal(t, true, params[1])
			return map[string]interface{}{
				"confirmations": 10,
				"blockhash":     "00000000000000000abcdef",
				"blockheight":   800000,
			}, nil
		},
	})
	defer server.Close()

	status, err := NewRPCClient(RPCConfig{URL: server.URL}).GetTxStatus(context.Background(), "txid456")
	require.NoError(t, err)
	assert.True(t, status.Confirmed)
	assert.Equal(t, int64(10), status.Confirmations)
	assert.Equal(t, "00000000000000000abcdef", status.BlockHash)
	assert.Equal(t, uint64(800000), status.BlockHeight)
}

func TestGetTxStatusUnconfirmed(t *testing.T) {
	server := rpcTestServer(t, map[string]rpcHandler{
		"getrawtransaction": func([]interface{}) (interface{}, *rpcError) {
			return map[string]interface{}{"confirmations": 0}, nil
		},
	})
	defer server.Close()

	status, err := NewRPCClient(RPCConfig{URL: server.URL}).GetTxStatus(context.Background(), "txid789")
	require.NoError(t, err)
	assert.False(t, status.Confirmed)
	assert.Empty(t, status.BlockHash)
}

func TestGetTxStatusNotFound(t *testing.T) {
	server := rpcTestServer(t, map[string]rpcHandler{
		"getrawtransaction": func([]interface{}) (interface{}, *rpcError) {
			return nil, &rpcError{Code: -5, Message: "No such mempool or blockchain transaction"}
		},
	})
	defer server.Close()

	_, err := NewRPCClient(RPCConfig{URL: server.URL}).GetTxStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTxNotFound)
}

func TestGetBestBlockHeight(t *testing.T) {
	server := rpcTestServer(t, map[string]rpcHandler{
		"getblockcount": func([]interface{}) (interface{}, *rpcError) {
			return 850000, nil
		},
	})
	defer server.Close()

	height, err := NewRPCClient(RPCConfig{URL: server.URL}).GetBestBlockHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(850000), height)
}

func TestImportAddress(t *testing.T) {
	var called bool
	server := rpcTestServer(t, map[string]rpcHandler{
		"importaddress": func(params []interface{}) (interface{}, *rpcError) {
			called = true
			require.Len(t, params, 3)
			assert.Equal(t, custodyAddr, params[0])
			assert.Equal(t, "", params[1])
			assert.Equal(t, true, params[2])
			return nil, nil
		},
	})
	defer server.Close()

	require.NoError(t, NewRPCClient(RPCConfig{URL: server.URL}).ImportAddress(context.Background(), custodyAddr))
	assert.True(t, called)
}

func TestImportAddressError(t *testing.T) {
	server := rpcTestServer(t, map[string]rpcHandler{
		"importaddress": func([]interface{}) (interface{}, *rpcError) {
			return nil, &rpcError{Code: -4, Message: "wallet disabled"}
		},
	})
	defer server.Close()

	err := NewRPCClient(RPCConfig{URL: server.URL}).ImportAddress(context.Background(), custodyAddr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet disabled")
}

func TestBtcToSat(t *testing.T) {
	tests := []struct {
		btc  float64
		want uint64
	}{
		{0, 0},
		{0.00000001, 1},
		{0.1, 10000000},
		{0.29, 29000000},
		{21, 2100000000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, btcToSat(tt.btc), "%v", tt.btc)
	}
}
