package dbconfig

// Available storage types.
const (
	BadgerDB   = "badgerdb"
	BoltDB     = "boltdb"
	LevelDB    = "leveldb"
	RedisDB    = "redis"
	InMemoryDB = "inmemory"
)
