package lottery

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/stretchr/testify/require"
)

// fakeOracle records requests; tests deliver values by hand.
type fakeOracle struct {
	mu       sync.Mutex
	requests []RandomnessRequest
	err      error
}

func (o *fakeOracle) Request(_ context.Context, req RandomnessRequest) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.requests = append(o.requests, req)
	return nil
}

func (o *fakeOracle) last() RandomnessRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.requests[len(o.requests)-1]
}

type payment struct {
	To     string
	Amount uint64
}

// fakeTransferer records payouts and fails for rejected addresses.
type fakeTransferer struct {
	mu       sync.Mutex
	paid     []payment
	rejected map[string]bool
}

func (t *fakeTransferer) Transfer(_ context.Context, to string, amount uint64) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rejected[to] {
		return "", errors.New("recipient cannot accept funds")
	}
	t.paid = append(t.paid, payment{To: to, Amount: amount})
	return fmt.Sprintf("tx-%d", len(t.paid)), nil
}

// failingStore wraps a Store and fails writes on demand.
type failingStore struct {
	Store
	failSave   bool
	failAppend bool
	// lostAck stores the record, then reports failure.
	lostAck bool
}

func (s *failingStore) SaveState(st *State) error {
	if s.failSave {
		return errors.New("disk full")
	}
	return s.Store.SaveState(st)
}

func (s *failingStore) AppendRecord(rec *Record, next *State) error {
	if s.failAppend {
		return errors.New("disk full")
	}
	if s.lostAck {
		if err := s.Store.AppendRecord(rec, next); err != nil {
			return err
		}
		return errors.New("connection reset")
	}
	return s.Store.AppendRecord(rec, next)
}

// testAddr returns a fresh mainnet P2PKH address.
func testAddr(t *testing.T) string {
	t.Helper()
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)
	addr, err := script.NewAddressFromPublicKey(priv.PubKey(), true)
	require.NoError(t, err)
	return addr.AddressString
}

func seedOf(n int64) []byte {
	return big.NewInt(n).Bytes()
}

type fixture struct {
	ledger   *Ledger
	store    Store
	oracle   *fakeOracle
	transfer *fakeTransferer
	admin    string
	now      time.Time
}

const testFee = 100

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newFixtureWithStore(t, NewMemStore(), opts...)
}

func newFixtureWithStore(t *testing.T, store Store, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:    store,
		oracle:   &fakeOracle{},
		transfer: &fakeTransferer{rejected: map[string]bool{}},
		admin:    testAddr(t),
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	opts = append([]Option{WithClock(func() time.Time { return f.now })}, opts...)
	l, err := New(Params{EntryFee: testFee, Admin: f.admin}, store, f.oracle, f.transfer, opts...)
	require.NoError(t, err)
	f.ledger = l
	return f
}

// restart rebuilds the ledger over the same store and collaborators, as a
// new process would.
func (f *fixture) restart(t *testing.T) {
	t.Helper()
	l, err := New(Params{EntryFee: testFee, Admin: f.admin}, f.store, f.oracle, f.transfer,
		WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.ledger = l
}

// requestAndDeliver moves the open round to a fulfilled request.
func (f *fixture) requestAndDeliver(t *testing.T, seed []byte) RandomnessRequest {
	t.Helper()
	req, err := f.ledger.RequestRandomness(context.Background(), f.admin)
	require.NoError(t, err)
	require.NoError(t, f.ledger.FulfillRandomness(req.ID, seed, nil))
	return req
}
