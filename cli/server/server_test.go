package server

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/oracle-bridge/cli/flags"
	"github.com/nspcc-dev/oracle-bridge/pkg/config"
	"github.com/nspcc-dev/oracle-bridge/pkg/config/netmode"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/native"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"go.uber.org/zap/zaptest"
)

const oracleAddress = "NQrEVKgpx2qEg6DpVMT5H8kFa7kc2DFgqS"

func init() {
	// ExitErrors must not terminate the test binary.
	cli.OsExiter = func(int) {}
}

func newTestApp() (*cli.App, *bytes.Buffer) {
	out := bytes.NewBuffer(nil)
	ctl := cli.NewApp()
	ctl.Name = "oracle-bridge"
	ctl.Writer = out
	ctl.ErrWriter = out
	ctl.Commands = NewCommands()
	return ctl, out
}

func writeBoltConfig(t *testing.T) string {
	d := t.TempDir()
	dbPath := filepath.Join(d, "bridge.bolt")
	cfgPath := filepath.Join(d, "protocol.yml")
	cfg := `ProtocolConfiguration:
  Magic: 42
  OracleAddress: ` + oracleAddress + `
ApplicationConfiguration:
  LogLevel: error
  DBConfiguration:
    Type: boltdb
    BoltDBOptions:
      FilePath: ` + dbPath + `
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

func TestInitBridge(t *testing.T) {
	cfg := config.Default()
	cfg.ProtocolConfiguration = config.ProtocolConfiguration{
		Magic:         netmode.UnitTestNet,
		OracleAddress: oracleAddress,
	}
	oracle, err := cfg.ProtocolConfiguration.Oracle()
	require.NoError(t, err)

	t.Run("bad DB", func(t *testing.T) {
		badCfg := cfg
		badCfg.ApplicationConfiguration.DBConfiguration.Type = "unknown"
		_, err := initBridge(badCfg, nil, zaptest.NewLogger(t))
		require.Error(t, err)
	})

	t.Run("mailbox", func(t *testing.T) {
		b, err := initBridge(cfg, nil, zaptest.NewLogger(t))
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, b.Close()) })

		h := util.Uint160{1, 2, 3}
		id, err := b.RegisterQuery(h, operation.Code(100), nil, nil, "")
		require.NoError(t, err)
		require.NoError(t, b.Fulfill(oracle, id, operation.Code(100), 200, nil))
	})

	t.Run("example", func(t *testing.T) {
		h := util.Uint160{1, 2, 3}
		example := &flags.Address{IsSet: true, Value: h}
		b, err := initBridge(cfg, example, zaptest.NewLogger(t))
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, b.Close()) })

		// Example requester refuses unknown operations, the mailbox doesn't.
		id, err := b.RegisterQuery(h, operation.Code(100), nil, nil, "")
		require.NoError(t, err)
		require.ErrorIs(t, b.Fulfill(oracle, id, operation.Code(100), 200, nil), native.ErrCallbackFailed)

		id, err = b.GetAlerts(h, []any{"closest"}, nil, "")
		require.NoError(t, err)
		require.NoError(t, b.Fulfill(oracle, id, operation.GetAlerts, 200, []byte("{}")))
		res, err := b.GetQueryResult(id)
		require.NoError(t, err)
		require.Equal(t, []byte("{}"), res.Response)
	})
}

func TestDumpDB(t *testing.T) {
	cfgPath := writeBoltConfig(t)
	cfg, err := config.LoadFile(cfgPath)
	require.NoError(t, err)
	oracle, err := cfg.ProtocolConfiguration.Oracle()
	require.NoError(t, err)

	b, err := initBridge(cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	id, err := b.GetForecasts(util.Uint160{1}, []any{"seattle,wa"}, nil, "")
	require.NoError(t, err)
	require.NoError(t, b.Fulfill(oracle, id, operation.GetForecasts, 200, []byte("sunny")))
	require.NoError(t, b.Close())

	t.Run("to file", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "dump.json")
		ctl, _ := newTestApp()
		require.NoError(t, ctl.Run([]string{"oracle-bridge", "db", "dump", "--config-file", cfgPath, "--out", out}))

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		var evs []*state.ContainedNotificationEvent
		require.NoError(t, json.Unmarshal(data, &evs))
		require.Len(t, evs, 2)
		require.Equal(t, state.LogEventName, evs[0].Name)
		require.Equal(t, id, evs[0].Log.ID)
		require.Equal(t, state.LogResultEventName, evs[1].Name)
		require.Equal(t, []byte("sunny"), evs[1].Result.Response)
	})

	t.Run("to stdout", func(t *testing.T) {
		ctl, buf := newTestApp()
		require.NoError(t, ctl.Run([]string{"oracle-bridge", "db", "dump", "--config-file", cfgPath}))
		var evs []*state.ContainedNotificationEvent
		require.NoError(t, json.Unmarshal(buf.Bytes(), &evs))
		require.Len(t, evs, 2)
	})

	t.Run("extra args", func(t *testing.T) {
		ctl, _ := newTestApp()
		require.Error(t, ctl.Run([]string{"oracle-bridge", "db", "dump", "--config-file", cfgPath, "something"}))
	})
}

func TestStartServer_BadConfig(t *testing.T) {
	ctl, _ := newTestApp()
	require.Error(t, ctl.Run([]string{"oracle-bridge", "node", "--config-path", t.TempDir()}))

	ctl, _ = newTestApp()
	require.Error(t, ctl.Run([]string{"oracle-bridge", "node", "--config-file", "../../config/protocol.unit_testnet.yml", "extra"}))

	ctl, _ = newTestApp()
	require.Error(t, ctl.Run([]string{"oracle-bridge", "node", "--config-file", "../../config/protocol.unit_testnet.yml", "--example", "not an address"}))
}
