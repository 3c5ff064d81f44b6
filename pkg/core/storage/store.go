package storage

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nspcc-dev/oracle-bridge/pkg/core/storage/dbconfig"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// KeyPrefix constants.
const (
	// STPending is used for pending queries identified by their ID.
	STPending KeyPrefix = 0x70
	// STResult is used for query results delivered to the mailbox requester.
	STResult KeyPrefix = 0x71
	// STNotification is used for persisted events keyed by big-endian index.
	STNotification KeyPrefix = 0x72
	// STNonce holds the highest signed invocation nonce accepted per caller.
	STNonce KeyPrefix = 0x73
	// SYSOracle holds the oracle identity fixed at the first start.
	SYSOracle KeyPrefix = 0xc0
	// SYSRequestCounter holds the nonce used for ID generation.
	SYSRequestCounter KeyPrefix = 0xc1
	// SYSEventCounter holds the index of the next persisted event.
	SYSEventCounter KeyPrefix = 0xc2
	// SYSTxCounter holds the sequence number of the next committed transaction.
	SYSTxCounter KeyPrefix = 0xc3
	// SYSVersion holds the DB schema version.
	SYSVersion KeyPrefix = 0xf0
)

// SeekRange selects keys for Store.Seek: those with Prefix whose remainder
// is not less than Start (not greater for Backwards). Empty Prefix and Start
// match everything.
type SeekRange struct {
	Prefix    []byte
	Start     []byte
	Backwards bool
}

// ErrKeyNotFound is returned by Get for missing keys.
var ErrKeyNotFound = errors.New("key not found")

type (
	// Store is a KV backend. The bridge wraps it into MemCachedStore and
	// persists changes in batches.
	Store interface {
		Get([]byte) ([]byte, error)
		// PutChangeSet applies puts atomically, nil values are deletions.
		PutChangeSet(puts map[string][]byte) error
		// Seek calls f for every matching item in key order until it
		// returns false. k and v are only valid during the call and must
		// not be modified.
		Seek(rng SeekRange, f func(k, v []byte) bool)
		Close() error
	}

	// KeyPrefix is the first byte of every key, it separates record types.
	KeyPrefix uint8
)

// Bytes returns the bytes representation of KeyPrefix.
func (k KeyPrefix) Bytes() []byte {
	return []byte{byte(k)}
}

// seekRangeToPrefixes converts rng into a goleveldb range, it's also used
// by other ordered backends.
func seekRangeToPrefixes(rng SeekRange) *util.Range {
	full := slices.Concat(rng.Prefix, rng.Start)
	if rng.Backwards {
		r := util.BytesPrefix(full)
		r.Start = rng.Prefix
		return r
	}
	r := util.BytesPrefix(rng.Prefix)
	r.Start = full
	return r
}

// NewStore opens the database of the configured type.
func NewStore(cfg dbconfig.DBConfiguration) (Store, error) {
	switch cfg.Type {
	case dbconfig.LevelDB:
		return NewLevelDBStore(cfg.LevelDBOptions)
	case dbconfig.InMemoryDB:
		return NewMemoryStore(), nil
	case dbconfig.BoltDB:
		return NewBoltDBStore(cfg.BoltDBOptions)
	case dbconfig.BadgerDB:
		return NewBadgerDBStore(cfg.BadgerDBOptions)
	case dbconfig.RedisDB:
		return NewRedisStore(cfg.RedisDBOptions)
	default:
		return nil, fmt.Errorf("unknown storage: %s", cfg.Type)
	}
}
