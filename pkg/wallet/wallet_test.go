package wallet

import (
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/oracle-bridge/pkg/crypto/keys"
	"github.com/nspcc-dev/oracle-bridge/pkg/encoding/address"
	"github.com/stretchr/testify/require"
)

const (
	oracleAddress = "NQrEVKgpx2qEg6DpVMT5H8kFa7kc2DFgqS"
	oracleWIF     = "L1QqQJnpBwbsPGAuutuzPTac8piqvbR1HRjrY5qHup48TBCBFe4g"
	oraclePass    = "city of zion"
)

var testScrypt = keys.ScryptParams{N: 2, R: 1, P: 1}

func newTestWallet(t *testing.T) *Wallet {
	w, err := NewWallet(filepath.Join(t.TempDir(), "sub", "wallet.json"))
	require.NoError(t, err)
	w.Scrypt = testScrypt
	return w
}

func TestNewWallet(t *testing.T) {
	w := newTestWallet(t)
	require.Equal(t, walletVersion, w.Version)
	require.Len(t, w.Accounts, 0)
	require.FileExists(t, w.Path())

	_, err := NewWalletFromFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	_, err = NewWalletFromBytes([]byte("{"))
	require.Error(t, err)

	require.ErrorIs(t, NewInMemoryWallet().Save(), ErrPathIsEmpty)
}

func TestCreateAccount(t *testing.T) {
	w := newTestWallet(t)
	acc, err := w.CreateAccount("test", "pass")
	require.NoError(t, err)
	require.True(t, acc.CanSign())
	require.Equal(t, "test", acc.Label)

	w2, err := NewWalletFromFile(w.Path())
	require.NoError(t, err)
	require.Len(t, w2.Accounts, 1)
	acc2 := w2.GetAccount(acc.ScriptHash())
	require.NotNil(t, acc2)
	require.False(t, acc2.CanSign())

	require.Error(t, acc2.Decrypt("wrong", w2.Scrypt))
	require.NoError(t, acc2.Decrypt("pass", w2.Scrypt))
	require.Equal(t, acc.PrivateKey().Bytes(), acc2.PrivateKey().Bytes())

	w2.Close()
	require.False(t, acc2.CanSign())
}

func TestAccounts(t *testing.T) {
	w := NewInMemoryWallet()
	_, err := w.GetDefaultAccount()
	require.Error(t, err)

	acc1, err := NewAccount()
	require.NoError(t, err)
	acc2, err := NewAccountFromWIF(oracleWIF)
	require.NoError(t, err)
	require.Equal(t, oracleAddress, acc2.Address)
	w.AddAccount(acc1)
	w.AddAccount(acc2)

	def, err := w.GetDefaultAccount()
	require.NoError(t, err)
	require.Equal(t, acc1, def)
	acc2.Default = true
	def, err = w.GetDefaultAccount()
	require.NoError(t, err)
	require.Equal(t, acc2, def)

	h, err := address.StringToUint160(oracleAddress)
	require.NoError(t, err)
	require.Equal(t, acc2, w.GetAccount(h))

	require.NoError(t, w.RemoveAccount(acc1.Address))
	require.Error(t, w.RemoveAccount(acc1.Address))
	require.Len(t, w.Accounts, 1)

	p := filepath.Join(t.TempDir(), "w.json")
	require.NoError(t, w.SaveTo(p))
	require.FileExists(t, p)
}

func TestAccountEncryption(t *testing.T) {
	acc, err := NewAccountFromWIF(oracleWIF)
	require.NoError(t, err)
	require.Error(t, acc.Decrypt("pass", testScrypt))

	require.NoError(t, acc.Encrypt("pass", testScrypt))
	restored, err := NewAccountFromEncryptedWIF(acc.EncryptedWIF, "pass", testScrypt)
	require.NoError(t, err)
	require.Equal(t, acc.Address, restored.Address)

	acc.Close()
	require.Error(t, acc.Encrypt("pass", testScrypt))
	require.Nil(t, acc.PrivateKey())

	// Foreign key for the address.
	other, err := NewAccount()
	require.NoError(t, err)
	require.NoError(t, other.Encrypt("pass", testScrypt))
	acc.EncryptedWIF = other.EncryptedWIF
	require.Error(t, acc.Decrypt("pass", testScrypt))
	require.False(t, acc.CanSign())
}

func TestOracleWalletFile(t *testing.T) {
	w, err := NewWalletFromFile(filepath.Join("..", "..", "config", "oracle.json"))
	require.NoError(t, err)
	acc, err := w.GetDefaultAccount()
	require.NoError(t, err)
	require.Equal(t, oracleAddress, acc.Address)
	require.NoError(t, acc.Decrypt(oraclePass, w.Scrypt))
	require.Equal(t, oracleWIF, acc.PrivateKey().WIF())
}
