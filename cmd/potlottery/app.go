package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/potlottery-go/config"
	"github.com/bitfsorg/potlottery-go/lottery"
	"github.com/bitfsorg/potlottery-go/network"
	"github.com/bitfsorg/potlottery-go/oracle"
	"github.com/bitfsorg/potlottery-go/payout"
)

// app is everything a command needs, built from configuration.
type app struct {
	cfg    config.Config
	log    *logrus.Logger
	ledger *lottery.Ledger
	signer *oracle.Signer
	chain  *payout.Chain // nil in dry-run mode
	store  lottery.Store
	closer func() error
}

// loadConfig reads the config file (if any), then the environment, then
// the persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	dataDir, _ := cmd.Flags().GetString("datadir")
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.ConfigPath(dataDir)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return cfg, err
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("datadir") {
		cfg.DataDir = dataDir
	}
	if v, _ := cmd.Flags().GetString("loglevel"); cmd.Flags().Changed("loglevel") {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("network"); cmd.Flags().Changed("network") {
		cfg.Network = v
	}
	if v, _ := cmd.Flags().GetString("rpc-url"); cmd.Flags().Changed("rpc-url") {
		cfg.RPCURL = v
	}
	return cfg, config.ValidateConfig(cfg)
}

// newLogger builds the process logger. Logs go to stderr unless a log file
// is configured, leaving stdout for command output.
func newLogger(cfg config.Config) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(f)
	}
	return log, nil
}

func openStore(cfg config.Config) (lottery.Store, func() error, error) {
	switch cfg.Store {
	case "redis":
		s, err := lottery.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := lottery.OpenBoltStore(filepath.Join(cfg.DataDir, "lottery.db"))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
}

// openApp wires the ledger to its store, oracle and transferer.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	fee, err := cfg.EntryFeeSatoshis()
	if err != nil {
		return nil, err
	}
	if cfg.OracleKey == "" {
		return nil, fmt.Errorf("no oracle key configured; run `potlottery init` or set %sORACLE_KEY", config.EnvPrefix)
	}
	oracleKey, err := oracle.PrivateKeyFromHex(cfg.OracleKey)
	if err != nil {
		return nil, err
	}
	signer, err := oracle.NewSigner(oracleKey, oracle.WithSignerLogger(log))
	if err != nil {
		return nil, err
	}

	verifyKey := signer.PublicKey()
	if cfg.OraclePubKey != "" {
		if verifyKey, err = oracle.PublicKeyFromHex(cfg.OraclePubKey); err != nil {
			return nil, err
		}
	}
	verifier, err := oracle.NewVerifier(verifyKey)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, signer: signer}
	var transfer lottery.Transferer
	if cfg.CustodyKey != "" {
		custody, err := oracle.PrivateKeyFromHex(cfg.CustodyKey)
		if err != nil {
			return nil, fmt.Errorf("custody key: %w", err)
		}
		rpcCfg, err := network.ResolveConfig(&network.RPCConfig{
			URL:      cfg.RPCURL,
			User:     cfg.RPCUser,
			Password: cfg.RPCPass,
		}, cfg.Network)
		if err != nil {
			return nil, err
		}
		a.chain, err = payout.NewChain(network.NewRPCClient(*rpcCfg), custody,
			payout.WithFeeRate(cfg.FeeRate), payout.WithMainnet(cfg.Mainnet()), payout.WithChainLogger(log))
		if err != nil {
			return nil, err
		}
		transfer = a.chain
	} else {
		log.Warn("no custody key configured; payouts are recorded in memory only")
		transfer = payout.NewMemory()
	}

	store, closer, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	ledger, err := lottery.New(
		lottery.Params{EntryFee: fee, Admin: cfg.Admin},
		store, signer, transfer,
		lottery.WithLogger(log),
		lottery.WithVerifier(verifier),
		lottery.WithAddressCheck(func(addr string) error {
			if err := lottery.ValidateAddress(addr); err != nil {
				return err
			}
			if err := cfg.CheckAddress(addr); err != nil {
				return fmt.Errorf("%w: %w", lottery.ErrInvalidAddress, err)
			}
			return nil
		}),
	)
	if err != nil {
		_ = closer()
		return nil, err
	}
	signer.Bind(ledger)

	a.ledger = ledger
	a.store = store
	a.closer = closer
	return a, nil
}

// Close waits for in-flight oracle deliveries and releases the store.
func (a *app) Close() error {
	a.signer.Wait()
	return a.closer()
}

// caller returns the --caller flag, defaulting to the configured admin.
func (a *app) caller(cmd *cobra.Command) string {
	if c, _ := cmd.Flags().GetString("caller"); c != "" {
		return c
	}
	return a.cfg.Admin
}
