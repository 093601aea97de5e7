package payout

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/potlottery-go/network"
)

// Chain pays winners on chain from a single custody key. Transfers are
// serialized so two payouts never select the same coins.
type Chain struct {
	svc     network.BlockchainService
	key     *ec.PrivateKey
	addr    *script.Address
	feeRate uint64
	mainnet bool
	log     logrus.FieldLogger

	mu       sync.Mutex
	imported bool
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithFeeRate sets the fee rate in sat/KB.
func WithFeeRate(rate uint64) ChainOption {
	return func(c *Chain) { c.feeRate = rate }
}

// WithMainnet selects mainnet (true, the default) or testnet/regtest
// (false) addresses for custody and payout destinations.
func WithMainnet(mainnet bool) ChainOption {
	return func(c *Chain) { c.mainnet = mainnet }
}

// WithChainLogger sets the logger for payouts.
func WithChainLogger(log logrus.FieldLogger) ChainOption {
	return func(c *Chain) { c.log = log }
}

// NewChain returns a transferer spending outputs locked to custody's P2PKH
// address on the selected network.
func NewChain(svc network.BlockchainService, custody *ec.PrivateKey, opts ...ChainOption) (*Chain, error) {
	if svc == nil {
		return nil, fmt.Errorf("%w: blockchain service", ErrNilParam)
	}
	if custody == nil {
		return nil, fmt.Errorf("%w: custody key", ErrNilParam)
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Chain{
		svc:     svc,
		key:     custody,
		feeRate: DefaultFeeRate,
		mainnet: true,
		log:     discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	addr, err := script.NewAddressFromPublicKey(custody.PubKey(), c.mainnet)
	if err != nil {
		return nil, fmt.Errorf("payout: custody address: %w", err)
	}
	c.addr = addr
	return c, nil
}

// Address returns the custody address entry stakes should be paid to.
func (c *Chain) Address() string {
	return c.addr.AddressString
}

// Transfer pays amount to the P2PKH address to, with the fee and change
// covered by custody. It returns the broadcast txid. Any error means no
// transaction was accepted by the node.
func (c *Chain) Transfer(ctx context.Context, to string, amount uint64) (string, error) {
	if amount == 0 {
		return "", ErrZeroAmount
	}
	dest, err := script.NewAddressFromString(to)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidAddress, to, err)
	}
	if !OnNetwork(dest, c.mainnet) {
		return "", fmt.Errorf("%w: %q is for another network", ErrInvalidAddress, to)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	coins, err := c.unspent(ctx)
	if err != nil {
		return "", err
	}
	selected, total, fee, err := selectCoins(coins, amount, c.feeRate)
	if err != nil {
		return "", err
	}

	rawHex, err := c.build(selected, dest, amount, total-amount-fee)
	if err != nil {
		return "", err
	}

	txid, err := c.svc.BroadcastTx(ctx, rawHex)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBroadcastFailed, err)
	}

	c.log.WithFields(logrus.Fields{
		"to":     to,
		"amount": amount,
		"fee":    fee,
		"inputs": len(selected),
		"txid":   txid,
	}).Info("payout broadcast")
	return txid, nil
}

// TipHeight returns the node's best block height.
func (c *Chain) TipHeight(ctx context.Context) (uint64, error) {
	return c.svc.GetBestBlockHeight(ctx)
}

// OnNetwork reports whether addr is encoded for mainnet (true) or
// testnet/regtest (false).
func OnNetwork(addr *script.Address, mainnet bool) bool {
	same, err := script.NewAddressFromPublicKeyHash(addr.PublicKeyHash, mainnet)
	return err == nil && same.AddressString == addr.AddressString
}

func (c *Chain) unspent(ctx context.Context) ([]*network.UTXO, error) {
	if !c.imported {
		if err := c.svc.ImportAddress(ctx, c.addr.AddressString); err != nil {
			return nil, fmt.Errorf("payout: import custody address: %w", err)
		}
		c.imported = true
	}
	coins, err := c.svc.ListUnspent(ctx, c.addr.AddressString)
	if err != nil {
		return nil, fmt.Errorf("payout: list custody coins: %w", err)
	}
	return coins, nil
}

// selectCoins picks the largest coins first until they cover amount plus
// the fee of a two-output transaction.
func selectCoins(coins []*network.UTXO, amount, feeRate uint64) (selected []*network.UTXO, total, fee uint64, err error) {
	sorted := make([]*network.UTXO, 0, len(coins))
	for _, u := range coins {
		if u != nil && u.Amount > 0 {
			sorted = append(sorted, u)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Amount > sorted[j].Amount })

	for _, u := range sorted {
		selected = append(selected, u)
		total += u.Amount
		fee = EstimateFee(EstimateSize(len(selected), 2), feeRate)
		if total >= amount+fee {
			return selected, total, fee, nil
		}
	}
	fee = EstimateFee(EstimateSize(max(len(selected), 1), 2), feeRate)
	return nil, 0, 0, fmt.Errorf("%w: have %d satoshis, need %d (amount=%d + fee~%d)",
		ErrInsufficientFunds, total, amount+fee, amount, fee)
}

// build returns the signed transaction hex paying amount to dest and change
// back to custody when it is above dust.
func (c *Chain) build(coins []*network.UTXO, dest *script.Address, amount, change uint64) (string, error) {
	tx := transaction.NewTransaction()

	for i, u := range coins {
		hash, err := chainhash.NewHashFromHex(u.TxID)
		if err != nil {
			return "", fmt.Errorf("%w: input %d txid: %w", ErrInvalidUTXO, i, err)
		}
		lock, err := script.NewFromHex(u.ScriptPubKey)
		if err != nil {
			return "", fmt.Errorf("%w: input %d script: %w", ErrInvalidUTXO, i, err)
		}
		unlocker, err := p2pkh.Unlock(c.key, nil)
		if err != nil {
			return "", fmt.Errorf("%w: input %d unlocker: %w", ErrSigningFailed, i, err)
		}
		tx.AddInput(&transaction.TransactionInput{
			SourceTXID:       hash,
			SourceTxOutIndex: u.Vout,
			SequenceNumber:   transaction.DefaultSequenceNumber,
		})
		tx.Inputs[i].SetSourceTxOutput(&transaction.TransactionOutput{
			Satoshis:      u.Amount,
			LockingScript: lock,
		})
		tx.Inputs[i].UnlockingScriptTemplate = unlocker
	}

	payLock, err := p2pkh.Lock(dest)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	tx.AddOutput(&transaction.TransactionOutput{Satoshis: amount, LockingScript: payLock})

	if change > DustLimit {
		changeLock, err := p2pkh.Lock(c.addr)
		if err != nil {
			return "", fmt.Errorf("payout: change script: %w", err)
		}
		tx.AddOutput(&transaction.TransactionOutput{Satoshis: change, LockingScript: changeLock})
	}

	if err := tx.Sign(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	return tx.Hex(), nil
}

// Status reports the confirmation status of a payout transaction.
func (c *Chain) Status(ctx context.Context, txid string) (*network.TxStatus, error) {
	return c.svc.GetTxStatus(ctx, txid)
}
