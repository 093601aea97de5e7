// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\", \"testnet\", or \"regtest\")")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigFile indicates the configuration file is not valid TOML.
	ErrInvalidConfigFile = errors.New("config: invalid configuration file")

	// ErrInvalidEntryFee indicates the entry fee is not a positive satoshi amount.
	ErrInvalidEntryFee = errors.New("config: invalid entry fee")

	// ErrInvalidAdmin indicates the admin address cannot be parsed.
	ErrInvalidAdmin = errors.New("config: invalid admin address")

	// ErrInvalidStore indicates an unknown store backend or missing redis address.
	ErrInvalidStore = errors.New("config: invalid store (must be \"bolt\" or \"redis\")")

	// ErrInvalidKey indicates a configured key is not hex.
	ErrInvalidKey = errors.New("config: invalid key")

	// ErrWrongNetwork indicates an address is encoded for a different network.
	ErrWrongNetwork = errors.New("config: address is for another network")

	// ErrInvalidStallAfter indicates stall_after is not a non-negative duration.
	ErrInvalidStallAfter = errors.New("config: invalid stall_after duration")
)
