package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nspcc-dev/oracle-bridge/cli/cmdargs"
	"github.com/nspcc-dev/oracle-bridge/cli/flags"
	"github.com/nspcc-dev/oracle-bridge/cli/options"
	"github.com/nspcc-dev/oracle-bridge/internal/requester"
	"github.com/nspcc-dev/oracle-bridge/pkg/config"
	"github.com/nspcc-dev/oracle-bridge/pkg/core"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/storage"
	"github.com/nspcc-dev/oracle-bridge/pkg/services/metrics"
	"github.com/nspcc-dev/oracle-bridge/pkg/services/oracle"
	"github.com/nspcc-dev/oracle-bridge/pkg/services/rpcsrv"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// dumpPageSize is the number of events read from the DB at once.
const dumpPageSize = 1000

// NewCommands returns 'node' command and 'db' subcommands.
func NewCommands() []cli.Command {
	cfgFlags := []cli.Flag{options.Config, options.ConfigFile, options.Debug}
	cfgFlags = append(cfgFlags, options.Network...)
	nodeFlags := append([]cli.Flag{
		flags.AddressFlag{
			Name:  "example",
			Usage: "address to run the example requester as",
		},
	}, cfgFlags...)
	dumpFlags := append([]cli.Flag{
		cli.StringFlag{
			Name:  "out, o",
			Usage: "Output file (stdout if not given)",
		},
	}, cfgFlags...)
	return []cli.Command{
		{
			Name:      "node",
			Usage:     "Start a bridge node",
			UsageText: "oracle-bridge node [--config-path path] [-d] [-p/-m/-t] [--config-file file] [--example address]",
			Action:    startServer,
			Flags:     nodeFlags,
		},
		{
			Name:  "db",
			Usage: "Database manipulations",
			Subcommands: []cli.Command{
				{
					Name:      "dump",
					Usage:     "Dump bridge events to a JSON file",
					UsageText: "oracle-bridge db dump [-o file] [--config-path path] [-p/-m/-t] [--config-file file]",
					Action:    dumpDB,
					Flags:     dumpFlags,
				},
			},
		},
	}
}

func newGraceContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()
	return ctx
}

// initBridge opens the configured store and creates a bridge over it. The
// example requester is attached if the address is set.
func initBridge(cfg config.Config, example *flags.Address, log *zap.Logger) (*core.Bridge, error) {
	store, err := storage.NewStore(cfg.ApplicationConfiguration.DBConfiguration)
	if err != nil {
		return nil, fmt.Errorf("could not initialize storage: %w", err)
	}
	b, err := core.NewBridge(cfg.ProtocolConfiguration, store, log)
	if err != nil {
		if closeErr := store.Close(); closeErr != nil {
			return nil, fmt.Errorf("could not initialize bridge: %w; failed to close the DB: %w", err, closeErr)
		}
		return nil, fmt.Errorf("could not initialize bridge: %w", err)
	}
	if example != nil && example.IsSet {
		requester.NewExample(b, example.Uint160())
		log.Info("example requester attached", zap.Stringer("address", example))
	}
	return b, nil
}

func startServer(ctx *cli.Context) error {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}

	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, logLevel, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = log.Sync() }()

	grace, cancel := context.WithCancel(newGraceContext())
	defer cancel()

	b, err := initBridge(cfg, flags.Get(ctx, "example"), log)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	b.Run()

	errChan := make(chan error)
	rpcServer := rpcsrv.New(b, cfg.ApplicationConfiguration.RPC, log, errChan)
	promServer := metrics.NewPrometheusService(cfg.ApplicationConfiguration.Prometheus, log)
	pprofServer := metrics.NewPprofService(cfg.ApplicationConfiguration.Pprof, log)

	var orc *oracle.Oracle
	if cfg.ApplicationConfiguration.Oracle.Enabled {
		orc, err = oracle.NewOracle(oracle.Config{
			Log:     log,
			MainCfg: cfg.ApplicationConfiguration.Oracle,
			Chain:   b,
		})
		if err != nil {
			_ = b.Close()
			return cli.NewExitError(fmt.Errorf("can't initialize oracle service: %w", err), 1)
		}
	}

	promServer.Start()
	pprofServer.Start()
	rpcServer.Start()
	if orc != nil {
		orc.Start()
	}

	sighupCh := make(chan os.Signal, 1)
	signal.Notify(sighupCh, sighup)

	var shutdownErr error
Main:
	for {
		select {
		case err := <-errChan:
			shutdownErr = fmt.Errorf("server error: %w", err)
			cancel()
		case sig := <-sighupCh:
			log.Info("signal received", zap.Stringer("name", sig))
			if ctx.Bool("debug") {
				log.Info("debug logging is forced, log level is not changed")
				break
			}
			cfgnew, err := options.GetConfigFromContext(ctx)
			if err != nil {
				log.Warn("can't reread the config file, signal ignored", zap.Error(err))
				break
			}
			lvl, err := zapcore.ParseLevel(cfgnew.ApplicationConfiguration.LogLevel)
			if err != nil {
				log.Warn("wrong LogLevel in the config, signal ignored", zap.Error(err))
				break
			}
			logLevel.SetLevel(lvl)
			log.Info("log level changed", zap.Stringer("level", lvl))
		case <-grace.Done():
			signal.Stop(sighupCh)
			if orc != nil {
				orc.Shutdown()
			}
			rpcServer.Shutdown()
			promServer.ShutDown()
			pprofServer.ShutDown()
			if err := b.Close(); err != nil {
				log.Error("failed to close the DB", zap.Error(err))
			}
			break Main
		}
	}

	if shutdownErr != nil {
		return cli.NewExitError(shutdownErr, 1)
	}
	return nil
}

func dumpDB(ctx *cli.Context) error {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, _, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = log.Sync() }()

	b, err := initBridge(cfg, nil, log)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = b.Close() }()

	evs, err := readEvents(b)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	data, err := json.MarshalIndent(evs, "", "  ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if out := ctx.String("out"); out != "" {
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return cli.NewExitError(err, 1)
		}
		log.Info("events dumped", zap.Int("count", len(evs)), zap.String("file", out))
		return nil
	}
	fmt.Fprintln(ctx.App.Writer, string(data))
	return nil
}

// readEvents reads all persisted events page by page.
func readEvents(b *core.Bridge) ([]*state.ContainedNotificationEvent, error) {
	var res = []*state.ContainedNotificationEvent{}
	for start := uint64(0); ; {
		evs, err := b.GetNotifications(start, dumpPageSize)
		if err != nil {
			return nil, err
		}
		res = append(res, evs...)
		if len(evs) < dumpPageSize {
			return res, nil
		}
		start = evs[len(evs)-1].Index + 1
	}
}
