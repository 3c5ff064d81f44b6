package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nspcc-dev/oracle-bridge/pkg/config/netmode"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/storage/dbconfig"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is the default path to the config directory.
	DefaultConfigPath = "./config"

	// DefaultMaxNotificationsLimit is the default maximum number of events
	// returned by a single getnotifications call.
	DefaultMaxNotificationsLimit = 100
	// DefaultMaxWebSocketClients is the default maximum number of WebSocket
	// clients served simultaneously.
	DefaultMaxWebSocketClients = 64
	// DefaultNonceCacheSize is the default number of invocation nonces
	// remembered per RPC server.
	DefaultNonceCacheSize = 4096
	// DefaultMaxRequestBodyBytes is the default maximum RPC request size.
	DefaultMaxRequestBodyBytes = 5 * 1024 * 1024

	// DefaultMaxConcurrentRequests is the default number of parallel fetches
	// performed by the oracle worker.
	DefaultMaxConcurrentRequests = 10
	// DefaultRequestTimeout is the default timeout of a single fetch.
	DefaultRequestTimeout = 5 * time.Second
	// DefaultMaxResponseSize is the default maximum size of a fetched body.
	DefaultMaxResponseSize = 64 * 1024
	// DefaultMaxRetries is the default number of fetch retries.
	DefaultMaxRetries = 3
	// DefaultRetryInterval is the default pause between fetch retries.
	DefaultRetryInterval = time.Second
)

// Version is the version of the node, set at the build time.
var Version string

// Config top level struct representing the config
// for the node.
type Config struct {
	ProtocolConfiguration    ProtocolConfiguration    `yaml:"ProtocolConfiguration"`
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
}

// Load attempts to load the config from the given
// path for the given netMode.
func Load(path string, netMode netmode.Magic) (Config, error) {
	configPath := filepath.Join(path, fmt.Sprintf("protocol.%s.yml", netMode))
	return LoadFile(configPath)
}

// LoadFile loads config from the provided path.
func LoadFile(configPath string) (Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config '%s' doesn't exist", configPath)
	}

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}

	config := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(configData))
	decoder.KnownFields(true)
	err = decoder.Decode(&config)
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return Config{}, err
	}
	return config, nil
}

// Default returns the configuration with all defaults applied.
func Default() Config {
	return Config{
		ProtocolConfiguration: ProtocolConfiguration{
			Magic: netmode.PrivNet,
		},
		ApplicationConfiguration: ApplicationConfiguration{
			LogLevel: "info",
			DBConfiguration: dbconfig.DBConfiguration{
				Type: dbconfig.InMemoryDB,
			},
			RPC: RPC{
				MaxNotificationsLimit: DefaultMaxNotificationsLimit,
				MaxWebSocketClients:   DefaultMaxWebSocketClients,
				MaxRequestBodyBytes:   DefaultMaxRequestBodyBytes,
				NonceCacheSize:        DefaultNonceCacheSize,
			},
			Oracle: OracleConfiguration{
				MaxConcurrentRequests: DefaultMaxConcurrentRequests,
				RequestTimeout:        DefaultRequestTimeout,
				MaxResponseSize:       DefaultMaxResponseSize,
				MaxRetries:            DefaultMaxRetries,
				RetryInterval:         DefaultRetryInterval,
			},
		},
	}
}

// Validate checks the whole configuration for consistency.
func (c Config) Validate() error {
	if err := c.ProtocolConfiguration.Validate(); err != nil {
		return fmt.Errorf("invalid ProtocolConfiguration: %w", err)
	}
	if err := c.ApplicationConfiguration.Validate(); err != nil {
		return fmt.Errorf("invalid ApplicationConfiguration: %w", err)
	}
	return nil
}

// ErrEmptyOracleAddress is returned for configurations without the oracle
// identity.
var ErrEmptyOracleAddress = errors.New("OracleAddress is not set")
