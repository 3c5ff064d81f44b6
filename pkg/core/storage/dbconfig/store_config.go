/*
Package dbconfig is a micropackage that contains storage DB configuration options.
*/
package dbconfig

type (
	// DBConfiguration describes configuration for DB. Supported types:
	// [LevelDB], [BoltDB], [BadgerDB], [RedisDB] or [InMemoryDB] (not
	// recommended for production usage).
	DBConfiguration struct {
		Type            string          `yaml:"Type"`
		LevelDBOptions  LevelDBOptions  `yaml:"LevelDBOptions"`
		BoltDBOptions   BoltDBOptions   `yaml:"BoltDBOptions"`
		BadgerDBOptions BadgerDBOptions `yaml:"BadgerDBOptions"`
		RedisDBOptions  RedisDBOptions  `yaml:"RedisDBOptions"`
	}
	// LevelDBOptions configuration for LevelDB.
	LevelDBOptions struct {
		DataDirectoryPath      string `yaml:"DataDirectoryPath"`
		ReadOnly               bool   `yaml:"ReadOnly"`
		WriteBufferSize        int    `yaml:"WriteBufferSize"`
		BlockCacheCapacity     int    `yaml:"BlockCacheCapacity"`
		OpenFilesCacheCapacity int    `yaml:"OpenFilesCacheCapacity"`
	}
	// BoltDBOptions configuration for BoltDB.
	BoltDBOptions struct {
		FilePath string `yaml:"FilePath"`
		ReadOnly bool   `yaml:"ReadOnly"`
	}
	// BadgerDBOptions configuration for BadgerDB.
	BadgerDBOptions struct {
		Dir        string `yaml:"Dir"`
		SyncWrites bool   `yaml:"SyncWrites"`
		// InMemory runs Badger without touching the disk, mostly for tests.
		InMemory bool `yaml:"InMemory"`
	}
	// RedisDBOptions configuration for Redis.
	RedisDBOptions struct {
		Addr     string `yaml:"Addr"`
		Password string `yaml:"Password"`
		DB       int    `yaml:"DB"`
		// Prefix is prepended to every key, so that several nodes can share
		// one Redis database.
		Prefix string `yaml:"Prefix"`
	}
)
