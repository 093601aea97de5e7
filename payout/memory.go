package payout

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
)

// Payment is one transfer made by Memory.
type Payment struct {
	TxID   string
	To     string
	Amount uint64
}

// Memory is an in-process transferer for dry runs and tests. It records
// every payment and fails for rejected recipients.
type Memory struct {
	mu       sync.Mutex
	payments []Payment
	rejected map[string]bool
}

// NewMemory returns an empty Memory transferer.
func NewMemory() *Memory {
	return &Memory{rejected: make(map[string]bool)}
}

// Reject makes transfers to addr fail until Accept is called.
func (m *Memory) Reject(addr string) {
	m.mu.Lock()
	m.rejected[addr] = true
	m.mu.Unlock()
}

// Accept undoes Reject.
func (m *Memory) Accept(addr string) {
	m.mu.Lock()
	delete(m.rejected, addr)
	m.mu.Unlock()
}

// Transfer records the payment and returns a synthetic txid.
func (m *Memory) Transfer(_ context.Context, to string, amount uint64) (string, error) {
	if amount == 0 {
		return "", ErrZeroAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejected[to] {
		return "", fmt.Errorf("%w: %s", ErrRecipientRejected, to)
	}
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(len(m.payments)))
	binary.BigEndian.PutUint64(buf[8:], amount)
	sum := sha256.Sum256(append(buf[:], to...))
	p := Payment{TxID: hex.EncodeToString(sum[:]), To: to, Amount: amount}
	m.payments = append(m.payments, p)
	return p.TxID, nil
}

// Payments returns a copy of all recorded payments in order.
func (m *Memory) Payments() []Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Payment(nil), m.payments...)
}

// Total returns the sum paid to addr.
func (m *Memory) Total(addr string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum uint64
	for _, p := range m.payments {
		if p.To == addr {
			sum += p.Amount
		}
	}
	return sum
}
