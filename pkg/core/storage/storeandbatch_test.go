package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"github.com/nspcc-dev/oracle-bridge/pkg/core/storage/dbconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dbSetup struct {
	name   string
	create func(testing.TB) Store
}

type dbTestFunction func(*testing.T, Store)

func testStoreGetNonExistent(t *testing.T, s Store) {
	key := []byte("sparse")

	_, err := s.Get(key)
	assert.Equal(t, err, ErrKeyNotFound)
}

func testStorePutChangeSet(t *testing.T, s Store) {
	var (
		key   = []byte("key")
		value = []byte("value")
	)
	require.NoError(t, s.PutChangeSet(map[string][]byte{string(key): value, "other": {1}}))

	newVal, err := s.Get(key)
	assert.Nil(t, err)
	assert.Equal(t, value, newVal)

	require.NoError(t, s.PutChangeSet(map[string][]byte{string(key): nil}))
	_, err = s.Get(key)
	assert.Equal(t, ErrKeyNotFound, err)

	other, err := s.Get([]byte("other"))
	require.NoError(t, err)
	require.Equal(t, []byte{1}, other)
}

func testStoreSeek(t *testing.T, s Store) {
	keys := []string{"10", "11", "20", "21", "22", "30", "31"}
	up := make(map[string][]byte, len(keys))
	for _, k := range keys {
		up[k] = []byte("v" + k)
	}
	require.NoError(t, s.PutChangeSet(up))

	for _, tc := range []struct {
		name      string
		prefix    string
		start     string
		backwards bool
		stopAfter string
		expected  []string
	}{
		{name: "prefix", prefix: "2", expected: []string{"20", "21", "22"}},
		{name: "prefix/none", prefix: "0"},
		{name: "prefix/stop", prefix: "2", stopAfter: "21", expected: []string{"20", "21"}},
		{name: "prefix/back", prefix: "2", backwards: true, expected: []string{"22", "21", "20"}},
		{name: "prefix/back/none", prefix: "0", backwards: true},
		{name: "prefix/back/stop", prefix: "2", backwards: true, stopAfter: "21", expected: []string{"22", "21"}},
		{name: "prefix+start", prefix: "2", start: "1", expected: []string{"21", "22"}},
		{name: "prefix+start/none", prefix: "2", start: "3"},
		{name: "prefix+start/back", prefix: "2", start: "1", backwards: true, expected: []string{"21", "20"}},
		{name: "prefix+start/back/none", prefix: "2", start: ".", backwards: true},
		{name: "start", start: "21", expected: []string{"21", "22", "30", "31"}},
		{name: "start/back", start: "21", backwards: true, expected: []string{"21", "20", "11", "10"}},
		{name: "all", expected: keys},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rng := SeekRange{Prefix: []byte(tc.prefix), Start: []byte(tc.start), Backwards: tc.backwards}
			var actual []string
			s.Seek(rng, func(k, v []byte) bool {
				actual = append(actual, string(k))
				require.Equal(t, "v"+string(k), string(v))
				return string(k) != tc.stopAfter
			})
			require.Equal(t, tc.expected, actual)
		})
	}
}

func newLevelDBForTesting(t testing.TB) Store {
	ldbDir := t.TempDir()
	opts := dbconfig.LevelDBOptions{
		DataDirectoryPath: ldbDir,
	}
	newLevelStore, err := NewLevelDBStore(opts)
	require.Nil(t, err, "NewLevelDBStore error")
	return newLevelStore
}

func newBoltStoreForTesting(t testing.TB) Store {
	d := t.TempDir()
	testFileName := filepath.Join(d, "test_bolt_db")
	boltDBStore, err := NewBoltDBStore(dbconfig.BoltDBOptions{FilePath: testFileName})
	require.NoError(t, err)
	return boltDBStore
}

func newBadgerStoreForTesting(t testing.TB) Store {
	s, err := NewBadgerDBStore(dbconfig.BadgerDBOptions{InMemory: true})
	require.NoError(t, err)
	return s
}

func newMemCachedStoreForTesting(t testing.TB) Store {
	return NewMemCachedStore(NewMemoryStore())
}

func TestAllDBs(t *testing.T) {
	var DBs = []dbSetup{
		{"BoltDB", newBoltStoreForTesting},
		{"LevelDB", newLevelDBForTesting},
		{"BadgerDB", newBadgerStoreForTesting},
		{"MemCached", newMemCachedStoreForTesting},
		{"Memory", func(testing.TB) Store { return NewMemoryStore() }},
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		DBs = append(DBs, dbSetup{"Redis", func(t testing.TB) Store {
			return newRedisStoreForTesting(t, addr)
		}})
	}
	var tests = []dbTestFunction{testStoreGetNonExistent, testStorePutChangeSet, testStoreSeek}
	for _, db := range DBs {
		for _, test := range tests {
			s := db.create(t)
			twrapper := func(t *testing.T) {
				test(t, s)
			}
			fname := runtime.FuncForPC(reflect.ValueOf(test).Pointer()).Name()
			t.Run(db.name+"/"+fname, twrapper)
			require.NoError(t, s.Close())
		}
	}
}
