// Package options holds flags shared by bridge CLI commands and helpers
// turning them into configs, loggers, RPC clients and signers.
package options

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nspcc-dev/oracle-bridge/cli/flags"
	"github.com/nspcc-dev/oracle-bridge/cli/input"
	"github.com/nspcc-dev/oracle-bridge/pkg/config"
	"github.com/nspcc-dev/oracle-bridge/pkg/config/netmode"
	"github.com/nspcc-dev/oracle-bridge/pkg/crypto/keys"
	"github.com/nspcc-dev/oracle-bridge/pkg/encoding/address"
	"github.com/nspcc-dev/oracle-bridge/pkg/io"
	"github.com/nspcc-dev/oracle-bridge/pkg/rpcclient"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
	"github.com/nspcc-dev/oracle-bridge/pkg/wallet"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultTimeout is the default timeout used for RPC requests.
const DefaultTimeout = 10 * time.Second

// RPCEndpointFlag is a long flag name for an RPC endpoint. It can be used to
// check for flag presence in the context.
const RPCEndpointFlag = "rpc-endpoint"

// Wallet is a set of flags used to pick the signing account.
var Wallet = []cli.Flag{
	cli.StringFlag{
		Name:  "wallet, w",
		Usage: "wallet to use to get the key for invocation signing",
	},
	flags.AddressFlag{
		Name:  "address, a",
		Usage: "address of the account to sign with (default account is used if not set)",
	},
}

// Network is a set of flags for choosing the network to operate on
// (privnet/mainnet/testnet).
var Network = []cli.Flag{
	cli.BoolFlag{Name: "privnet, p", Usage: "use private network configuration (if --config-file option is not specified)"},
	cli.BoolFlag{Name: "mainnet, m", Usage: "use mainnet network configuration (if --config-file option is not specified)"},
	cli.BoolFlag{Name: "testnet, t", Usage: "use testnet network configuration (if --config-file option is not specified)"},
	cli.BoolFlag{Name: "unittest", Hidden: true},
}

// RPC is a set of flags used for RPC connections (endpoint and timeout).
var RPC = []cli.Flag{
	cli.StringFlag{
		Name:  RPCEndpointFlag + ", r",
		Usage: "RPC node address",
	},
	cli.DurationFlag{
		Name:  "timeout, s",
		Value: DefaultTimeout,
		Usage: "Timeout for the operation",
	},
}

// Config is a flag for commands that use node configuration.
var Config = cli.StringFlag{
	Name:  "config-path",
	Usage: "path to directory with per-network configuration files (may be overridden by --config-file option for the configuration file)",
}

// ConfigFile is a flag for commands that use node configuration and provide
// path to the specific config file instead of config path.
var ConfigFile = cli.StringFlag{
	Name:  "config-file",
	Usage: "path to the node configuration file (overrides --config-path option)",
}

// Debug is a flag for commands that allow node in debug mode usage.
var Debug = cli.BoolFlag{
	Name:  "debug, d",
	Usage: "enable debug logging (LOTS of output, overrides configuration)",
}

var (
	errNoEndpoint = errors.New("no RPC endpoint specified, use option '--" + RPCEndpointFlag + "' or '-r'")
	errNoWallet   = errors.New("no wallet parameter found, specify it with the '--wallet' or '-w' flag")
)

// GetNetwork returns the network chosen with flags, PrivNet by default.
func GetNetwork(ctx *cli.Context) netmode.Magic {
	switch {
	case ctx.Bool("unittest"):
		return netmode.UnitTestNet
	case ctx.Bool("mainnet"):
		return netmode.MainNet
	case ctx.Bool("testnet"):
		return netmode.TestNet
	default:
		return netmode.PrivNet
	}
}

// GetTimeoutContext returns a context limited by the --timeout flag.
func GetTimeoutContext(ctx *cli.Context) (context.Context, func()) {
	dur := ctx.Duration("timeout")
	if dur <= 0 {
		dur = DefaultTimeout
	}
	return context.WithTimeout(context.Background(), dur)
}

// GetRPCClient returns an RPC client instance for the given Context. The
// network magic is fetched from the node.
func GetRPCClient(gctx context.Context, ctx *cli.Context) (*rpcclient.Client, cli.ExitCoder) {
	endpoint := ctx.String(RPCEndpointFlag)
	if len(endpoint) == 0 {
		return nil, cli.NewExitError(errNoEndpoint, 1)
	}
	c, err := rpcclient.New(gctx, endpoint, rpcclient.Options{})
	if err != nil {
		return nil, cli.NewExitError(fmt.Errorf("bad endpoint %q: %w", endpoint, err), 1)
	}
	if err = c.Init(); err != nil {
		c.Close()
		return nil, cli.NewExitError(err, 1)
	}
	return c, nil
}

// GetConfigFromContext loads the file given with --config-file or the
// network's file from --config-path.
func GetConfigFromContext(ctx *cli.Context) (config.Config, error) {
	if configFile := ctx.String("config-file"); len(configFile) != 0 {
		return config.LoadFile(configFile)
	}
	var configPath = config.DefaultConfigPath
	if argCp := ctx.String("config-path"); argCp != "" {
		configPath = argCp
	}
	return config.Load(configPath, GetNetwork(ctx))
}

// HandleLoggingParams builds the node logger. debug overrides the configured
// level, LogPath redirects output to a file. The returned level can be
// changed at runtime.
func HandleLoggingParams(debug bool, cfg config.ApplicationConfiguration) (*zap.Logger, *zap.AtomicLevel, error) {
	var (
		level = zapcore.InfoLevel
		err   error
	)
	if len(cfg.LogLevel) > 0 {
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("log setting: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil

	if logPath := cfg.LogPath; logPath != "" {
		if err := io.MakeDirForFile(logPath, "logger"); err != nil {
			return nil, nil, err
		}
		cc.OutputPaths = []string{logPath}
	}

	log, err := cc.Build()
	return log, &cc.Level, err
}

// GetSigner opens the wallet given in the context and returns the unlocked
// private key of the chosen account. The password is requested from user.
func GetSigner(ctx *cli.Context) (*keys.PrivateKey, error) {
	wPath := ctx.String("wallet")
	if len(wPath) == 0 {
		return nil, errNoWallet
	}
	wall, err := wallet.NewWalletFromFile(wPath)
	if err != nil {
		return nil, err
	}

	var acc *wallet.Account
	if addr := flags.Get(ctx, "address"); addr != nil && addr.IsSet {
		acc = wall.GetAccount(addr.Uint160())
		if acc == nil {
			return nil, fmt.Errorf("wallet contains no account for '%s'", address.Uint160ToString(addr.Uint160()))
		}
	} else {
		acc, err = wall.GetDefaultAccount()
		if err != nil {
			return nil, err
		}
	}
	if err := UnlockAccount(ctx, wall, acc); err != nil {
		return nil, err
	}
	return acc.PrivateKey(), nil
}

// UnlockAccount asks for the account password and decrypts it.
func UnlockAccount(ctx *cli.Context, wall *wallet.Wallet, acc *wallet.Account) error {
	if acc.CanSign() {
		return nil
	}
	pass, err := input.ReadPassword(ctx.App.Writer, fmt.Sprintf("Enter account %s password > ", acc.Address))
	if err != nil {
		return fmt.Errorf("error reading password: %w", err)
	}
	return acc.Decrypt(pass, wall.Scrypt)
}

// ParseID decodes a query ID given as a hex string, "0x" prefix is allowed.
func ParseID(s string) (util.Uint256, error) {
	return util.Uint256DecodeStringLE(strings.TrimPrefix(s, "0x"))
}
