package config

import "errors"

// RPC is an RPC service configuration information.
type RPC struct {
	BasicService `yaml:",inline"`
	// MaxNotificationsLimit is the maximum number of events returned by a
	// single getnotifications call.
	MaxNotificationsLimit int `yaml:"MaxNotificationsLimit"`
	MaxRequestBodyBytes   int `yaml:"MaxRequestBodyBytes"`
	MaxWebSocketClients   int `yaml:"MaxWebSocketClients"`
	// NonceCacheSize is the number of recent signed invocation nonces
	// remembered to allow them to arrive out of order. Nonces evicted from
	// the cache or used before the node start can't be reused, nor can
	// smaller ones from the same caller.
	NonceCacheSize int `yaml:"NonceCacheSize"`
}

// Validate checks RPC for internal consistency. It returns an error if the
// configuration is invalid.
func (cfg *RPC) Validate() error {
	if !cfg.Enabled {
		return nil
	}
	if len(cfg.Addresses) == 0 {
		return errors.New("no RPC addresses")
	}
	if cfg.MaxNotificationsLimit <= 0 {
		return errors.New("MaxNotificationsLimit must be positive")
	}
	if cfg.NonceCacheSize <= 0 {
		return errors.New("NonceCacheSize must be positive")
	}
	return nil
}
