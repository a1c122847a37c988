package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nspcc-dev/kittychain/cli/options"
	"github.com/nspcc-dev/kittychain/pkg/config"
	"github.com/nspcc-dev/kittychain/pkg/core"
	"github.com/nspcc-dev/kittychain/pkg/core/storage"
	"github.com/nspcc-dev/kittychain/pkg/services/metrics"
	"github.com/nspcc-dev/kittychain/pkg/services/rpcsrv"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewCommands returns 'node' and 'db' commands.
func NewCommands() []cli.Command {
	var cfgFlags = []cli.Flag{options.Config, options.ConfigFile, options.Debug}
	cfgFlags = append(cfgFlags, options.Network...)
	var cfgWithCountFlags = make([]cli.Flag, len(cfgFlags))
	copy(cfgWithCountFlags, cfgFlags)
	cfgWithCountFlags = append(cfgWithCountFlags,
		cli.UintFlag{
			Name:  "start, s",
			Usage: "block number to start from",
		},
		cli.UintFlag{
			Name:  "count, c",
			Usage: "number of blocks to be processed (default or 0: all sealed blocks)",
		},
		cli.StringFlag{
			Name:  "out, o",
			Usage: "output directory (default: current one)",
		},
	)
	return []cli.Command{
		{
			Name:      "node",
			Usage:     "start a kittychain node",
			UsageText: "kittychain node [--config-path path] [-d] [-p/-u] [--config-file file]",
			Action:    startServer,
			Flags:     cfgFlags,
		},
		{
			Name:  "db",
			Usage: "database manipulations",
			Subcommands: []cli.Command{
				{
					Name:      "dump",
					Usage:     "dump blocks with their execution logs into JSON files",
					UsageText: "kittychain db dump [-o dir] [-s start] [-c count] [--config-path path] [-p/-u] [--config-file file]",
					Action:    dumpDB,
					Flags:     cfgWithCountFlags,
				},
				{
					Name:      "compare",
					Usage:     "compare two dumps made by 'db dump'",
					UsageText: "kittychain db compare <dumpA> <dumpB>",
					Description: `Compares two dump files or two dump directories block by block and
   prints the difference for the first mismatching block.`,
					Action: compareDumps,
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

// initBlockChain opens the configured store and creates a chain over it.
func initBlockChain(cfg config.Config, log *zap.Logger) (*core.Blockchain, error) {
	store, err := storage.NewStore(cfg.ApplicationConfiguration.DBConfiguration)
	if err != nil {
		return nil, cli.NewExitError(fmt.Errorf("could not initialize storage: %w", err), 1)
	}

	chain, err := core.NewBlockchain(store, cfg, log)
	if err != nil {
		errText := "could not initialize blockchain: %w"
		errArgs := []any{err}
		closeErr := store.Close()
		if closeErr != nil {
			errText += "; failed to close the DB: %w"
			errArgs = append(errArgs, closeErr)
		}

		return nil, cli.NewExitError(fmt.Errorf(errText, errArgs...), 1)
	}
	return chain, nil
}

func startServer(ctx *cli.Context) error {
	if err := cmdargsEmpty(ctx); err != nil {
		return err
	}

	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, logLevel, logCloser, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if logCloser != nil {
		defer func() { _ = logCloser() }()
	}

	grace := newGraceContext()
	sighupCh := make(chan os.Signal, 1)
	signal.Notify(sighupCh, sighup)
	defer signal.Stop(sighupCh)
	go reloadLogLevel(grace, ctx, sighupCh, logLevel, log)

	if err := runNode(grace, cfg, log); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

// reloadLogLevel rereads the configuration on SIGHUP and applies the new
// log level, other settings require a restart.
func reloadLogLevel(grace context.Context, ctx *cli.Context, sighupCh <-chan os.Signal, level *zap.AtomicLevel, log *zap.Logger) {
	for {
		select {
		case <-grace.Done():
			return
		case <-sighupCh:
			if ctx.Bool("debug") {
				log.Info("SIGHUP received, but log level is fixed by --debug")
				continue
			}
			newCfg, err := options.GetConfigFromContext(ctx)
			if err != nil {
				log.Warn("can't reread the config file, signal ignored", zap.Error(err))
				continue
			}
			newLevel := zapcore.InfoLevel
			if newCfg.ApplicationConfiguration.LogLevel != "" {
				newLevel, err = zapcore.ParseLevel(newCfg.ApplicationConfiguration.LogLevel)
				if err != nil {
					log.Warn("wrong LogLevel in the new config, signal ignored", zap.Error(err))
					continue
				}
			}
			log.Info("SIGHUP received, changing log level", zap.Stringer("level", newLevel))
			level.SetLevel(newLevel)
		}
	}
}

// runNode starts the chain with all configured services and blocks until
// grace is done or any service fails.
func runNode(grace context.Context, cfg config.Config, log *zap.Logger) error {
	chain, err := initBlockChain(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := chain.Close(); err != nil {
			log.Warn("failed to close the chain", zap.Error(err))
		}
	}()

	errChan := make(chan error, 1)
	prometheus := metrics.NewPrometheusService(cfg.ApplicationConfiguration.Prometheus, log)
	pprof := metrics.NewPprofService(cfg.ApplicationConfiguration.Pprof, log)
	rpcServer := rpcsrv.New(chain, cfg.ApplicationConfiguration.RPC, log, errChan)

	for _, srv := range []*metrics.Service{prometheus, pprof} {
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start %s service: %w", srv.Name(), err)
		}
		defer srv.ShutDown()
	}
	rpcServer.Start()
	defer rpcServer.Shutdown()

	runCtx, stopChain := context.WithCancel(grace)
	chainDone := make(chan struct{})
	go func() {
		chain.Run(runCtx)
		close(chainDone)
	}()
	defer func() {
		stopChain()
		<-chainDone
	}()

	log.Info("node started",
		zap.Stringer("network", cfg.ProtocolConfiguration.Magic),
		zap.Uint32("height", chain.BlockHeight()),
		zap.Strings("rpc", rpcServer.Addresses()))

	select {
	case err := <-errChan:
		log.Error("service error, shutting down", zap.String("service", rpcServer.Name()), zap.Error(err))
		return err
	case <-grace.Done():
		log.Info("shutting down")
		return nil
	}
}

func cmdargsEmpty(ctx *cli.Context) error {
	if ctx.NArg() != 0 {
		return cli.NewExitError(errors.New("unexpected arguments: "+ctx.Args().First()), 1)
	}
	return nil
}
