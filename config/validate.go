// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"math"
	"net"
	"net/url"
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
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" && cfg.Network != "regtest" {
		return ErrInvalidNetwork
	}

	if err := validateAddr(cfg.ListenAddr); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidListenAddr, err)
	}

	if cfg.APIURL != "" {
		if err := validateURL(cfg.APIURL); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAPIURL, err)
		}
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.InvoiceTimeout <= 0 {
		return ErrInvalidTimeout
	}

	for _, r := range []float64{cfg.RateStandard, cfg.RateData} {
		if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return ErrInvalidRate
		}
	}

	return nil
}

// validateAddr checks that addr is a valid host:port address.
func validateAddr(addr string) error {
	_, _, err := net.SplitHostPort(addr)
	return err
}

// validateURL checks that raw is an absolute http or https URL.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
