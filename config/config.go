// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads potlottery settings from a TOML file and LOTTERY_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "LOTTERY_"

// FileName is the configuration file name inside the data directory.
const FileName = "config.toml"

// SatoshisPerBSV converts between BSV amounts and satoshis.
const SatoshisPerBSV = 100_000_000

// Config holds operator settings. Secrets (keys, RPC password) are usually
// supplied through the environment rather than written to the file.
type Config struct {
	DataDir  string `toml:"datadir" env:"DATADIR"`
	Network  string `toml:"network" env:"NETWORK"`
	LogLevel string `toml:"loglevel" env:"LOGLEVEL"`
	LogFile  string `toml:"logfile" env:"LOGFILE"`

	EntryFee string `toml:"entry_fee" env:"ENTRY_FEE"` // BSV, e.g. "0.01"
	Admin    string `toml:"admin" env:"ADMIN"`

	Store         string `toml:"store" env:"STORE"` // bolt or redis
	RedisAddr     string `toml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `toml:"redis_password,omitempty" env:"REDIS_PASSWORD"`
	RedisDB       int    `toml:"redis_db" env:"REDIS_DB"`
	RedisPrefix   string `toml:"redis_prefix" env:"REDIS_PREFIX"`

	OracleKey    string `toml:"oracle_key,omitempty" env:"ORACLE_KEY"`
	OraclePubKey string `toml:"oracle_pubkey,omitempty" env:"ORACLE_PUBKEY"`
	CustodyKey   string `toml:"custody_key,omitempty" env:"CUSTODY_KEY"`

	RPCURL  string `toml:"rpc_url,omitempty" env:"RPC_URL"`
	RPCUser string `toml:"rpc_user,omitempty" env:"RPC_USER"`
	RPCPass string `toml:"rpc_pass,omitempty" env:"RPC_PASS"`
	FeeRate uint64 `toml:"fee_rate" env:"FEE_RATE"` // sat/KB

	StallAfter string `toml:"stall_after" env:"STALL_AFTER"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		DataDir:     DefaultDataDir(),
		Network:     "mainnet",
		LogLevel:    "info",
		EntryFee:    "0.01",
		Store:       "bolt",
		RedisAddr:   "localhost:6379",
		RedisPrefix: "potlottery",
		FeeRate:     100,
		StallAfter:  "1h",
	}
}

// DefaultDataDir returns ~/.potlottery, or .potlottery in the working
// directory when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".potlottery"
	}
	return filepath.Join(home, ".potlottery")
}

// ConfigPath returns the configuration file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// LoadConfig reads path over DefaultConfig. Keys absent from the file keep
// their defaults; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		var perr toml.ParseError
		if errors.As(err, &perr) {
			return cfg, fmt.Errorf("%w: %s", ErrInvalidConfigFile, perr.ErrorWithPosition())
		}
		return cfg, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as TOML, creating parent directories. The
// file is private to the owner since it may hold keys.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("config: create file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, "# potlottery configuration"); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return f.Close()
}

// ApplyEnv overrides cfg with any LOTTERY_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

// Mainnet reports whether addresses use the mainnet encoding. Testnet and
// regtest share the testnet encoding.
func (c Config) Mainnet() bool {
	return c.Network == "mainnet"
}

// CheckAddress rejects addresses that do not parse or are encoded for a
// network other than the configured one.
func (c Config) CheckAddress(addr string) error {
	a, err := script.NewAddressFromString(addr)
	if err != nil {
		return err
	}
	same, err := script.NewAddressFromPublicKeyHash(a.PublicKeyHash, c.Mainnet())
	if err != nil {
		return err
	}
	if same.AddressString != addr {
		return fmt.Errorf("%w: %s is not a %s address", ErrWrongNetwork, addr, c.Network)
	}
	return nil
}

// EntryFeeSatoshis parses EntryFee into satoshis.
func (c Config) EntryFeeSatoshis() (uint64, error) {
	return ParseBSV(c.EntryFee)
}

// StallDuration parses StallAfter. An empty value disables stall reporting.
func (c Config) StallDuration() (time.Duration, error) {
	if c.StallAfter == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.StallAfter)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidStallAfter, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: negative", ErrInvalidStallAfter)
	}
	return d, nil
}

// ParseBSV converts a decimal BSV amount to a positive number of satoshis.
// Amounts with more than eight decimal places are rejected.
func ParseBSV(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidEntryFee, s, err)
	}
	sat := d.Shift(8)
	if !sat.IsInteger() {
		return 0, fmt.Errorf("%w: %q has sub-satoshi precision", ErrInvalidEntryFee, s)
	}
	if !sat.IsPositive() {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidEntryFee, s)
	}
	if !sat.BigInt().IsUint64() {
		return 0, fmt.Errorf("%w: %q too large", ErrInvalidEntryFee, s)
	}
	return sat.BigInt().Uint64(), nil
}

// FormatBSV renders satoshis as a BSV amount without trailing zeros.
func FormatBSV(sat uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(sat), -8).String()
}
