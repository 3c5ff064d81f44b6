package config

import (
	"errors"
	"net/url"
	"time"
)

// OracleConfiguration is a config for the oracle worker.
type OracleConfiguration struct {
	Enabled bool `yaml:"Enabled"`
	// BaseURL is the data provider API endpoint.
	BaseURL string `yaml:"BaseURL"`
	// AllowPrivateHost permits connections to private and loopback
	// addresses.
	AllowPrivateHost      bool          `yaml:"AllowPrivateHost"`
	ClientID              string        `yaml:"ClientID"`
	ClientSecret          string        `yaml:"ClientSecret"`
	MaxConcurrentRequests int           `yaml:"MaxConcurrentRequests"`
	RequestTimeout        time.Duration `yaml:"RequestTimeout"`
	MaxResponseSize       int64         `yaml:"MaxResponseSize"`
	MaxRetries            int           `yaml:"MaxRetries"`
	RetryInterval         time.Duration `yaml:"RetryInterval"`
	UnlockWallet          Wallet        `yaml:"UnlockWallet"`
}

// Wallet is a wallet info.
type Wallet struct {
	Path     string `yaml:"Path"`
	Password string `yaml:"Password"`
}

// Validate checks OracleConfiguration for internal consistency.
func (cfg *OracleConfiguration) Validate() error {
	if !cfg.Enabled {
		return nil
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return errors.New("invalid oracle BaseURL")
	}
	if cfg.UnlockWallet.Path == "" {
		return errors.New("oracle wallet is not set")
	}
	if cfg.MaxConcurrentRequests <= 0 {
		return errors.New("MaxConcurrentRequests must be positive")
	}
	if cfg.MaxRetries < 0 {
		return errors.New("MaxRetries can't be negative")
	}
	return nil
}
