// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid. An empty
// admin or key is accepted here; commands that need one report it.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" && cfg.Network != "regtest" {
		return ErrInvalidNetwork
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if _, err := cfg.EntryFeeSatoshis(); err != nil {
		return err
	}

	if cfg.Admin != "" {
		if err := cfg.CheckAddress(cfg.Admin); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAdmin, err)
		}
	}

	switch cfg.Store {
	case "bolt":
	case "redis":
		if cfg.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is empty", ErrInvalidStore)
		}
		if cfg.RedisDB < 0 {
			return fmt.Errorf("%w: redis_db is negative", ErrInvalidStore)
		}
	default:
		return ErrInvalidStore
	}

	keys := []struct{ name, value string }{
		{"oracle_key", cfg.OracleKey},
		{"oracle_pubkey", cfg.OraclePubKey},
		{"custody_key", cfg.CustodyKey},
	}
	for _, k := range keys {
		if k.value == "" {
			continue
		}
		if _, err := hex.DecodeString(k.value); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidKey, k.name, err)
		}
	}

	if _, err := cfg.StallDuration(); err != nil {
		return err
	}

	return nil
}
