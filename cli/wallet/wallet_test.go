package wallet

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nspcc-dev/oracle-bridge/cli/input"
	"github.com/nspcc-dev/oracle-bridge/pkg/wallet"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"golang.org/x/term"
)

const (
	testWIF     = "L1QqQJnpBwbsPGAuutuzPTac8piqvbR1HRjrY5qHup48TBCBFe4g"
	testAddress = "NQrEVKgpx2qEg6DpVMT5H8kFa7kc2DFgqS"
)

func init() {
	// ExitErrors must not terminate the test binary.
	cli.OsExiter = func(int) {}
}

type readWriter struct {
	io.Reader
	io.Writer
}

func run(t *testing.T, in string, args ...string) (string, error) {
	input.Terminal = term.NewTerminal(readWriter{bytes.NewBufferString(in), io.Discard}, "")
	t.Cleanup(func() { input.Terminal = nil })

	out := bytes.NewBuffer(nil)
	ctl := cli.NewApp()
	ctl.Name = "oracle-bridge"
	ctl.Writer = out
	ctl.ErrWriter = out
	ctl.Commands = NewCommands()
	err := ctl.Run(append([]string{"oracle-bridge", "wallet"}, args...))
	return out.String(), err
}

func TestWallet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "wallet.json")

	_, err := run(t, "", "init")
	require.Error(t, err)

	out, err := run(t, "", "init", "--wallet", path)
	require.NoError(t, err)
	require.Contains(t, out, "wallet successfully created")

	t.Run("import", func(t *testing.T) {
		_, err := run(t, "", "import", "--wallet", path)
		require.Error(t, err, "no WIF")
		_, err = run(t, "", "import", "--wallet", path, "--wif", "bad")
		require.Error(t, err)
		_, err = run(t, "one\rtwo\r", "import", "--wallet", path, "--wif", testWIF)
		require.Error(t, err, "passwords mismatch")

		out, err := run(t, "pass\rpass\r", "import", "--wallet", path, "--wif", testWIF, "--name", "oracle")
		require.NoError(t, err)
		require.Equal(t, testAddress, strings.TrimSpace(out))

		_, err = run(t, "pass\rpass\r", "import", "--wallet", path, "--wif", testWIF)
		require.Error(t, err, "duplicate")
	})

	t.Run("create", func(t *testing.T) {
		out, err := run(t, "requester\rpass\rpass\r", "create", "--wallet", path)
		require.NoError(t, err)

		w, err := wallet.NewWalletFromFile(path)
		require.NoError(t, err)
		require.Len(t, w.Accounts, 2)
		require.Equal(t, "oracle", w.Accounts[0].Label)
		require.Equal(t, "requester", w.Accounts[1].Label)
		require.Equal(t, w.Accounts[1].Address, strings.TrimSpace(out))
	})

	t.Run("dump", func(t *testing.T) {
		out, err := run(t, "", "dump", "--wallet", path)
		require.NoError(t, err)
		require.Contains(t, out, testAddress)

		_, err = run(t, "wrong\r", "dump", "--wallet", path, "--decrypt")
		require.Error(t, err)
		_, err = run(t, "pass\r", "dump", "--wallet", path, "--decrypt")
		require.NoError(t, err)
	})
}
