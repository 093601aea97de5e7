package lottery

import (
	"fmt"
	"sort"
	"sync"
)

// Store persists the ledger state and the append-only round history.
type Store interface {
	// LoadState returns the persisted state, or ErrStateNotFound for a fresh store.
	LoadState() (*State, error)

	// SaveState replaces the persisted state.
	SaveState(st *State) error

	// AppendRecord writes a history record and the next state in one atomic step.
	// Returns ErrDuplicateRoundID if a record for rec.RoundID exists.
	AppendRecord(rec *Record, next *State) error

	// GetRecord returns the record for a round id, or ErrNotFound.
	GetRecord(roundID uint64) (*Record, error)

	// ListRecords returns all records in ascending round order.
	ListRecords() ([]*Record, error)
}

// MemStore is an in-memory implementation of Store for testing.
type MemStore struct {
	mu      sync.RWMutex
	state   *State
	records map[uint64]*Record
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[uint64]*Record)}
}

// LoadState returns a copy of the stored state.
func (s *MemStore) LoadState() (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, ErrStateNotFound
	}
	return s.state.clone(), nil
}

// SaveState stores a copy of st.
func (s *MemStore) SaveState(st *State) error {
	if st == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st.clone()
	return nil
}

// AppendRecord stores rec and next together.
func (s *MemStore) AppendRecord(rec *Record, next *State) error {
	if rec == nil {
		return fmt.Errorf("%w: record", ErrNilParam)
	}
	if next == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.RoundID]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateRoundID, rec.RoundID)
	}
	r := *rec
	s.records[rec.RoundID] = &r
	s.state = next.clone()
	return nil
}

// GetRecord returns a copy of the record for roundID.
func (s *MemStore) GetRecord(roundID uint64) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[roundID]
	if !ok {
		return nil, ErrNotFound
	}
	r := *rec
	return &r, nil
}

// ListRecords returns copies of all records ordered by round id.
func (s *MemStore) ListRecords() ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		r := *rec
		result = append(result, &r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RoundID < result[j].RoundID })
	return result, nil
}
