package lottery_test

import (
	"context"
	"path/filepath"
	"testing"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/potlottery-go/lottery"
	"github.com/bitfsorg/potlottery-go/oracle"
	"github.com/bitfsorg/potlottery-go/payout"
)

func address(t *testing.T) string {
	t.Helper()
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)
	addr, err := script.NewAddressFromPublicKey(priv.PubKey(), true)
	require.NoError(t, err)
	return addr.AddressString
}

// TestSignedRounds drives several rounds through a bolt-backed ledger, the
// signing oracle and the in-memory payout, reopening the store between
// steps the way the CLI does.
func TestSignedRounds(t *testing.T) {
	const fee = 1000
	path := filepath.Join(t.TempDir(), "lottery.db")
	admin := address(t)
	players := []string{address(t), address(t), address(t)}

	key, err := ec.NewPrivateKey()
	require.NoError(t, err)
	wallet := payout.NewMemory()

	open := func(t *testing.T) (*lottery.Ledger, *oracle.Signer, func()) {
		t.Helper()
		store, err := lottery.OpenBoltStore(path)
		require.NoError(t, err)
		signer, err := oracle.NewSigner(key)
		require.NoError(t, err)
		verifier, err := oracle.NewVerifier(key.PubKey())
		require.NoError(t, err)
		l, err := lottery.New(lottery.Params{EntryFee: fee, Admin: admin}, store, signer, wallet,
			lottery.WithVerifier(verifier))
		require.NoError(t, err)
		signer.Bind(l)
		return l, signer, func() {
			signer.Wait()
			require.NoError(t, store.Close())
		}
	}

	ctx := context.Background()
	var paid uint64
	for round := uint64(1); round <= 3; round++ {
		l, _, closeFn := open(t)
		assert.Equal(t, round, l.LotteryID())
		for i := 0; i < int(round)+1; i++ {
			require.NoError(t, l.Enter(players[i%len(players)], fee))
		}
		entrants := l.Players()
		closeFn()

		l, signer, closeFn := open(t)
		req, err := l.RequestRandomness(ctx, admin)
		require.NoError(t, err)
		signer.Wait()
		value, _, err := signer.Respond(req)
		require.NoError(t, err)
		closeFn()

		l, _, closeFn = open(t)
		rec, err := l.PickWinner(ctx, admin)
		require.NoError(t, err)
		closeFn()

		want := entrants[lottery.WinnerIndex(value, len(entrants))]
		assert.Equal(t, want, rec.Winner)
		assert.Equal(t, uint64(len(entrants))*fee, rec.Payout)
		paid += rec.Payout
	}

	l, _, closeFn := open(t)
	defer closeFn()
	recs, err := l.History()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, rec := range recs {
		assert.Equal(t, uint64(i+1), rec.RoundID)
	}
	assert.Zero(t, l.Balance())

	var total uint64
	for _, p := range players {
		total += wallet.Total(p)
	}
	assert.Equal(t, paid, total)
	assert.Len(t, wallet.Payments(), 3)
}

// TestForgedRandomnessRejected checks that a value not signed by the
// configured oracle key never reaches the round.
func TestForgedRandomnessRejected(t *testing.T) {
	admin := address(t)
	trusted, err := ec.NewPrivateKey()
	require.NoError(t, err)
	forger, err := ec.NewPrivateKey()
	require.NoError(t, err)

	signer, err := oracle.NewSigner(forger)
	require.NoError(t, err)
	verifier, err := oracle.NewVerifier(trusted.PubKey())
	require.NoError(t, err)

	l, err := lottery.New(lottery.Params{EntryFee: 10, Admin: admin}, lottery.NewMemStore(), signer,
		payout.NewMemory(), lottery.WithVerifier(verifier))
	require.NoError(t, err)
	signer.Bind(l)

	require.NoError(t, l.Enter(address(t), 10))
	req, err := l.RequestRandomness(context.Background(), admin)
	require.NoError(t, err)
	signer.Wait()

	assert.False(t, l.Status().Fulfilled)
	assert.ErrorIs(t, signer.Deliver(req), lottery.ErrInvalidRandomness)

	_, err = l.PickWinner(context.Background(), admin)
	assert.ErrorIs(t, err, lottery.ErrInvalidState)
}
