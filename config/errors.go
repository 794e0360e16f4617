// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\", \"testnet\", or \"regtest\")")

	// ErrInvalidListenAddr indicates the listen address is malformed.
	ErrInvalidListenAddr = errors.New("config: invalid listen address")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrInvalidAPIURL indicates the API URL is not an absolute http(s) URL.
	ErrInvalidAPIURL = errors.New("config: invalid API URL")

	// ErrInvalidTimeout indicates a non-positive invoice timeout.
	ErrInvalidTimeout = errors.New("config: invoice timeout must be positive")

	// ErrInvalidRate indicates a negative or non-finite fee rate.
	ErrInvalidRate = errors.New("config: fee rates must be finite and non-negative")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")
)
