/*
Package dao provides a data access object for the bridge state stored in
a storage.Store.
*/
package dao

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/storage"
	"github.com/nspcc-dev/oracle-bridge/pkg/io"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
)

// Simple is memCached wrapper around DB, simple DAO implementation.
type Simple struct {
	Store *storage.MemCachedStore
}

// NewSimple creates a new simple dao using the provided backend store.
func NewSimple(backend storage.Store) *Simple {
	return &Simple{Store: storage.NewMemCachedStore(backend)}
}

// GetPrivate returns a new DAO instance with another layer of private
// MemCachedStore around the current DAO Store. Changes made to it are only
// visible to the lower layer after Persist.
func (dao *Simple) GetPrivate() *Simple {
	return NewSimple(dao.Store)
}

// Persist flushes all the changes made into the (supposedly) persistent
// underlying store. It returns the number of keys flushed.
func (dao *Simple) Persist() (int, error) {
	return dao.Store.Persist()
}

// GetAndDecode performs get operation and decoding with serializable structures.
func (dao *Simple) GetAndDecode(entity io.Serializable, key []byte) error {
	entityBytes, err := dao.Store.Get(key)
	if err != nil {
		return err
	}
	reader := io.NewBinReaderFromBuf(entityBytes)
	entity.DecodeBinary(reader)
	return reader.Err
}

// putWithBuffer performs put operation using buf as a pre-allocated buffer
// for serialization.
func (dao *Simple) putWithBuffer(entity io.Serializable, key []byte, buf *io.BufBinWriter) error {
	entity.EncodeBinary(buf.BinWriter)
	if buf.Err != nil {
		return buf.Err
	}
	dao.Store.Put(key, buf.Bytes())
	return nil
}

func makeKey(prefix storage.KeyPrefix, body []byte) []byte {
	key := make([]byte, 1+len(body))
	key[0] = byte(prefix)
	copy(key[1:], body)
	return key
}

// -- start counters.

// GetCounter returns the value of a uint64 system counter, missing counters
// are zero.
func (dao *Simple) GetCounter(prefix storage.KeyPrefix) (uint64, error) {
	b, err := dao.Store.Get(prefix.Bytes())
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("bad counter %x length: %d", byte(prefix), len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

// PutCounter stores the value of a uint64 system counter.
func (dao *Simple) PutCounter(prefix storage.KeyPrefix, v uint64) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	dao.Store.Put(prefix.Bytes(), b)
}

// -- end counters.

// -- start oracle.

// GetOracle returns the oracle identity stored at the first start.
func (dao *Simple) GetOracle() (util.Uint160, error) {
	b, err := dao.Store.Get(storage.SYSOracle.Bytes())
	if err != nil {
		return util.Uint160{}, err
	}
	return util.Uint160DecodeBytesBE(b)
}

// PutOracle stores the oracle identity.
func (dao *Simple) PutOracle(h util.Uint160) {
	dao.Store.Put(storage.SYSOracle.Bytes(), h.BytesBE())
}

// -- end oracle.

// -- start nonces.

// GetNonce returns the highest invocation nonce accepted from h, zero if
// there was none.
func (dao *Simple) GetNonce(h util.Uint160) (uint64, error) {
	b, err := dao.Store.Get(makeKey(storage.STNonce, h.BytesBE()))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("bad nonce length: %d", len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

// PutNonce stores the highest invocation nonce accepted from h.
func (dao *Simple) PutNonce(h util.Uint160, nonce uint64) {
	dao.Store.Put(makeKey(storage.STNonce, h.BytesBE()), binary.LittleEndian.AppendUint64(nil, nonce))
}

// -- end nonces.

// -- start pending queries.

// GetPendingQuery returns the pending query with the given ID or
// storage.ErrKeyNotFound.
func (dao *Simple) GetPendingQuery(id util.Uint256) (*state.PendingQuery, error) {
	pq := new(state.PendingQuery)
	err := dao.GetAndDecode(pq, makeKey(storage.STPending, id.BytesBE()))
	if err != nil {
		return nil, err
	}
	return pq, nil
}

// HasPendingQuery tells whether a query with the given ID is pending.
func (dao *Simple) HasPendingQuery(id util.Uint256) (bool, error) {
	_, err := dao.Store.Get(makeKey(storage.STPending, id.BytesBE()))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PutPendingQuery stores the given pending query.
func (dao *Simple) PutPendingQuery(pq *state.PendingQuery) error {
	return dao.putWithBuffer(pq, makeKey(storage.STPending, pq.ID.BytesBE()), io.NewBufBinWriter())
}

// DeletePendingQuery drops the pending query with the given ID.
func (dao *Simple) DeletePendingQuery(id util.Uint256) {
	dao.Store.Delete(makeKey(storage.STPending, id.BytesBE()))
}

// SeekPendingQueries iterates over all pending queries ordered by ID bytes
// until f returns false.
func (dao *Simple) SeekPendingQueries(f func(*state.PendingQuery) bool) error {
	var err error

	dao.Store.Seek(storage.SeekRange{Prefix: storage.STPending.Bytes()}, func(k, v []byte) bool {
		pq := new(state.PendingQuery)
		r := io.NewBinReaderFromBuf(v)
		pq.DecodeBinary(r)
		if r.Err != nil {
			err = fmt.Errorf("pending query %x: %w", k[1:], r.Err)
			return false
		}
		return f(pq)
	})
	return err
}

// -- end pending queries.

// -- start results.

// GetQueryResult returns the stored mailbox result for the given ID or
// storage.ErrKeyNotFound.
func (dao *Simple) GetQueryResult(id util.Uint256) (*state.QueryResult, error) {
	res := new(state.QueryResult)
	err := dao.GetAndDecode(res, makeKey(storage.STResult, id.BytesBE()))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// PutQueryResult stores the given mailbox result.
func (dao *Simple) PutQueryResult(res *state.QueryResult) error {
	return dao.putWithBuffer(res, makeKey(storage.STResult, res.ID.BytesBE()), io.NewBufBinWriter())
}

// -- end results.

// -- start notifications.

func notificationKey(index uint64) []byte {
	key := make([]byte, 9)
	key[0] = byte(storage.STNotification)
	binary.BigEndian.PutUint64(key[1:], index)
	return key
}

// PutNotification stores the given event under its index.
func (dao *Simple) PutNotification(ev *state.ContainedNotificationEvent) error {
	return dao.putWithBuffer(ev, notificationKey(ev.Index), io.NewBufBinWriter())
}

// GetNotifications returns at most limit persisted events starting from the
// given index in ascending order.
func (dao *Simple) GetNotifications(start uint64, limit int) ([]*state.ContainedNotificationEvent, error) {
	var (
		res []*state.ContainedNotificationEvent
		err error
	)
	if limit <= 0 {
		return res, nil
	}
	dao.Store.Seek(storage.SeekRange{
		Prefix: storage.STNotification.Bytes(),
		Start:  notificationKey(start)[1:],
	}, func(k, v []byte) bool {
		ev := new(state.ContainedNotificationEvent)
		r := io.NewBinReaderFromBuf(v)
		ev.DecodeBinary(r)
		if r.Err != nil {
			err = fmt.Errorf("notification %x: %w", k[1:], r.Err)
			return false
		}
		res = append(res, ev)
		return len(res) < limit
	})
	return res, err
}

// -- end notifications.

// GetVersion returns the stored DB schema version.
func (dao *Simple) GetVersion() (string, error) {
	b, err := dao.Store.Get(storage.SYSVersion.Bytes())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PutVersion stores the DB schema version.
func (dao *Simple) PutVersion(v string) {
	dao.Store.Put(storage.SYSVersion.Bytes(), []byte(v))
}
