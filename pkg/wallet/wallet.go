package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/nspcc-dev/oracle-bridge/pkg/crypto/keys"
	"github.com/nspcc-dev/oracle-bridge/pkg/io"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
)

const (
	// Version of the wallet format.
	walletVersion = "1.0"
)

// ErrPathIsEmpty appears if wallet was created without linking to file system path,
// for instance with [NewInMemoryWallet] or [NewWalletFromBytes].
// Despite this, such wallets are still able to be saved with [Wallet.SaveTo].
var ErrPathIsEmpty = errors.New("path is empty")

// Wallet represents a set of bridge identities.
type Wallet struct {
	// Version of the wallet, used for later upgrades.
	Version string `json:"version"`

	// A list of accounts which describes the details of each account
	// in the wallet.
	Accounts []*Account `json:"accounts"`

	Scrypt keys.ScryptParams `json:"scrypt"`

	// Path where the wallet file is located.
	path string
}

// NewWallet creates a new wallet at the given path and saves it.
func NewWallet(location string) (*Wallet, error) {
	w := NewInMemoryWallet()
	w.path = location
	return w, w.Save()
}

// NewInMemoryWallet creates a new wallet not linked to any file.
func NewInMemoryWallet() *Wallet {
	return &Wallet{
		Version:  walletVersion,
		Accounts: []*Account{},
		Scrypt:   keys.NEP2ScryptParams(),
	}
}

// NewWalletFromFile creates a Wallet from the given wallet file path.
func NewWalletFromFile(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read wallet file: %w", err)
	}

	wall, err := NewWalletFromBytes(data)
	if err != nil {
		return nil, err
	}
	wall.path = path
	return wall, nil
}

// NewWalletFromBytes creates a Wallet from the given byte slice.
// Parameter wallet contains JSON representation of wallet.
func NewWalletFromBytes(wallet []byte) (*Wallet, error) {
	wall := &Wallet{}
	if err := json.Unmarshal(wallet, wall); err != nil {
		return nil, fmt.Errorf("unmarshal wallet: %w", err)
	}
	return wall, nil
}

// CreateAccount generates a new account for the end user and encrypts
// the private key with the given passphrase.
func (w *Wallet) CreateAccount(name, passphrase string) (*Account, error) {
	acc, err := NewAccount()
	if err != nil {
		return nil, err
	}
	acc.Label = name
	if err := acc.Encrypt(passphrase, w.Scrypt); err != nil {
		return nil, err
	}
	w.AddAccount(acc)
	return acc, w.Save()
}

// AddAccount adds an existing Account to the wallet.
func (w *Wallet) AddAccount(acc *Account) {
	w.Accounts = append(w.Accounts, acc)
}

// RemoveAccount removes an Account with the specified addr
// from the wallet.
func (w *Wallet) RemoveAccount(addr string) error {
	for i, acc := range w.Accounts {
		if acc.Address == addr {
			copy(w.Accounts[i:], w.Accounts[i+1:])
			w.Accounts = w.Accounts[:len(w.Accounts)-1]
			return nil
		}
	}
	return errors.New("account wasn't found")
}

// Path returns a location of the wallet in the file system.
func (w *Wallet) Path() string {
	return w.path
}

// Save saves the wallet data to the location it was created from.
func (w *Wallet) Save() error {
	if w.path == "" {
		return ErrPathIsEmpty
	}
	return w.SaveTo(w.path)
}

// SaveTo saves the wallet data to the given location.
func (w *Wallet) SaveTo(path string) error {
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	if err := io.MakeDirForFile(path, "wallet"); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// GetAccount returns an account corresponding to the provided scripthash.
func (w *Wallet) GetAccount(h util.Uint160) *Account {
	for _, acc := range w.Accounts {
		if acc.ScriptHash().Equals(h) {
			return acc
		}
	}
	return nil
}

// GetDefaultAccount returns the account marked as default or the first one
// if there is none.
func (w *Wallet) GetDefaultAccount() (*Account, error) {
	if len(w.Accounts) == 0 {
		return nil, errors.New("wallet has no accounts")
	}
	for _, acc := range w.Accounts {
		if acc.Default {
			return acc, nil
		}
	}
	return w.Accounts[0], nil
}

// Close closes all Wallet accounts making them incapable of signing anything
// (unless they're decrypted again).
func (w *Wallet) Close() {
	for _, acc := range w.Accounts {
		acc.Close()
	}
}
