package lottery

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v7"
)

// DefaultRedisPrefix namespaces all keys written by RedisStore.
const DefaultRedisPrefix = "potlottery"

// RedisStore persists ledger state and round history in Redis.
//
// Keys: <prefix>:state holds the JSON state, <prefix>:round:<id> holds one
// JSON record, and <prefix>:rounds is a list of resolved ids in order.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// Compile-time interface check.
var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis at addr and verifies the connection.
func NewRedisStore(addr, password string, db int, prefix string) (*RedisStore, error) {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := client.Ping().Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("lottery: ping redis: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

// Close closes the Redis client.
func (r *RedisStore) Close() error { return r.client.Close() }

func (r *RedisStore) stateKey() string { return r.prefix + ":state" }
func (r *RedisStore) indexKey() string { return r.prefix + ":rounds" }
func (r *RedisStore) roundKey(id uint64) string {
	return r.prefix + ":round:" + strconv.FormatUint(id, 10)
}

// LoadState returns the persisted state.
func (r *RedisStore) LoadState() (*State, error) {
	bs, err := r.client.Get(r.stateKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get state: %w", err)
	}
	var st State
	if err := json.Unmarshal(bs, &st); err != nil {
		return nil, fmt.Errorf("redisstore: decode state: %w", err)
	}
	return &st, nil
}

// SaveState replaces the persisted state.
func (r *RedisStore) SaveState(st *State) error {
	if st == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}
	bs, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("redisstore: encode state: %w", err)
	}
	if err := r.client.Set(r.stateKey(), bs, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: set state: %w", err)
	}
	return nil
}

// AppendRecord writes rec, its index entry and next inside one MULTI/EXEC,
// guarded by WATCH on the record key.
func (r *RedisStore) AppendRecord(rec *Record, next *State) error {
	if rec == nil {
		return fmt.Errorf("%w: record", ErrNilParam)
	}
	if next == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}
	recData, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redisstore: encode record: %w", err)
	}
	stateData, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("redisstore: encode state: %w", err)
	}

	key := r.roundKey(rec.RoundID)
	return r.client.Watch(func(tx *redis.Tx) error {
		n, err := tx.Exists(key).Result()
		if err != nil {
			return fmt.Errorf("redisstore: check record: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: %d", ErrDuplicateRoundID, rec.RoundID)
		}
		_, err = tx.TxPipelined(func(pipe redis.Pipeliner) error {
			pipe.Set(key, recData, 0)
			pipe.RPush(r.indexKey(), rec.RoundID)
			pipe.Set(r.stateKey(), stateData, 0)
			return nil
		})
		if err != nil {
			return fmt.Errorf("redisstore: append record: %w", err)
		}
		return nil
	}, key, r.stateKey())
}

// GetRecord retrieves the record for roundID.
func (r *RedisStore) GetRecord(roundID uint64) (*Record, error) {
	bs, err := r.client.Get(r.roundKey(roundID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(bs, &rec); err != nil {
		return nil, fmt.Errorf("redisstore: decode record: %w", err)
	}
	return &rec, nil
}

// ListRecords returns all records in the order they were appended.
func (r *RedisStore) ListRecords() ([]*Record, error) {
	ids, err := r.client.LRange(r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list ids: %w", err)
	}
	recs := make([]*Record, 0, len(ids))
	for _, s := range ids {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("redisstore: bad index entry %q: %w", s, err)
		}
		rec, err := r.GetRecord(id)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
