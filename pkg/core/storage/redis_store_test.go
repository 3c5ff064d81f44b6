package storage

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/nspcc-dev/oracle-bridge/pkg/core/storage/dbconfig"
	"github.com/stretchr/testify/require"
)

// Redis tests need a live server, set REDIS_ADDR to run them.
func newRedisStoreForTesting(t testing.TB, addr string) Store {
	s, err := NewRedisStore(dbconfig.RedisDBOptions{
		Addr:   addr,
		DB:     15,
		Prefix: fmt.Sprintf("test-%d-", time.Now().UnixNano()),
	})
	require.NoError(t, err)
	return s
}

func TestRedisStoreUnreachable(t *testing.T) {
	if os.Getenv("REDIS_ADDR") != "" {
		t.Skip("live Redis is configured")
	}
	_, err := NewRedisStore(dbconfig.RedisDBOptions{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}

func TestLexRange(t *testing.T) {
	by := lexRange(seekRangeToPrefixes(SeekRange{Prefix: []byte{1}}))
	require.Equal(t, "[\x01", by.Min)
	require.Equal(t, "(\x02", by.Max)

	by = lexRange(seekRangeToPrefixes(SeekRange{}))
	require.Equal(t, "-", by.Min)
	require.Equal(t, "+", by.Max)
}
