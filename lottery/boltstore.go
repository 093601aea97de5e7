package lottery

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketState  = []byte("state")
	bucketRounds = []byte("rounds")

	keyCurrent = []byte("current")
)

// BoltStore persists ledger state and round history in a bbolt database.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist. Opening fails after
// a second if another process holds the database.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("lottery: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("lottery: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketState, bucketRounds} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("lottery: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("lottery: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// roundKey encodes a round id as an 8-byte big-endian key so cursors walk in round order.
func roundKey(id uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, id)
	return k
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// LoadState returns the persisted state.
func (s *BoltStore) LoadState() (*State, error) {
	var st State
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketState).Get(keyCurrent)
		if data == nil {
			return ErrStateNotFound
		}
		if err := decodeGob(data, &st); err != nil {
			return fmt.Errorf("boltstore: decode state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// SaveState replaces the persisted state.
func (s *BoltStore) SaveState(st *State) error {
	if st == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}
	data, err := encodeGob(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketState).Put(keyCurrent, data); err != nil {
			return fmt.Errorf("boltstore: put state: %w", err)
		}
		return nil
	})
}

// AppendRecord writes rec and next in a single bbolt transaction.
func (s *BoltStore) AppendRecord(rec *Record, next *State) error {
	if rec == nil {
		return fmt.Errorf("%w: record", ErrNilParam)
	}
	if next == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}
	recData, err := encodeGob(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	stateData, err := encodeGob(next)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		rb := tx.Bucket(bucketRounds)
		key := roundKey(rec.RoundID)
		if rb.Get(key) != nil {
			return fmt.Errorf("%w: %d", ErrDuplicateRoundID, rec.RoundID)
		}
		if err := rb.Put(key, recData); err != nil {
			return fmt.Errorf("boltstore: put record: %w", err)
		}
		if err := tx.Bucket(bucketState).Put(keyCurrent, stateData); err != nil {
			return fmt.Errorf("boltstore: put state: %w", err)
		}
		return nil
	})
}

// GetRecord retrieves the record for roundID.
func (s *BoltStore) GetRecord(roundID uint64) (*Record, error) {
	var rec Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRounds).Get(roundKey(roundID))
		if data == nil {
			return ErrNotFound
		}
		if err := decodeGob(data, &rec); err != nil {
			return fmt.Errorf("boltstore: decode record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecords returns all records in ascending round order.
func (s *BoltStore) ListRecords() ([]*Record, error) {
	var recs []*Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRounds).ForEach(func(k, v []byte) error {
			var rec Record
			if err := decodeGob(v, &rec); err != nil {
				return fmt.Errorf("boltstore: decode record in list: %w", err)
			}
			recs = append(recs, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: list records: %w", err)
	}
	return recs, nil
}
