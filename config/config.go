// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the settings of a presto client. The file format is one
// "key = value" pair per line with '#' comments.
type Config struct {
	DataDir        string
	ListenAddr     string
	Network        string
	APIURL         string
	Origin         string
	LogLevel       string
	LogFile        string
	LogJSON        bool
	InvoiceTimeout time.Duration
	RateStandard   float64
	RateData       float64
}

// DefaultConfig returns the configuration used when no file is present.
// APIURL and Origin stay empty so the network preset applies.
func DefaultConfig() Config {
	return Config{
		DataDir:        DefaultDataDir(),
		ListenAddr:     "127.0.0.1:8080",
		Network:        "mainnet",
		LogLevel:       "info",
		InvoiceTimeout: 30 * time.Second,
		RateStandard:   0.5,
		RateData:       0.5,
	}
}

// DefaultDataDir returns ~/.presto, or ./.presto when the home directory
// cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".presto"
	}
	return filepath.Join(home, ".presto")
}

// ConfigPath returns the config file location inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// LoadConfig reads the file at path over DefaultConfig. Unknown keys are
// ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseKeyValue(line)
		if err != nil {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		if err := applyKey(&cfg, key, value); err != nil {
			return cfg, fmt.Errorf("%w: line %d: %w", ErrInvalidConfigLine, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Presto Configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "listen = %s\n", cfg.ListenAddr)
	fmt.Fprintf(&b, "network = %s\n", cfg.Network)
	fmt.Fprintf(&b, "apiurl = %s\n", cfg.APIURL)
	fmt.Fprintf(&b, "origin = %s\n", cfg.Origin)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)
	fmt.Fprintf(&b, "logjson = %t\n", cfg.LogJSON)
	fmt.Fprintf(&b, "invoicetimeout = %s\n", cfg.InvoiceTimeout)
	fmt.Fprintf(&b, "rate.standard = %s\n", strconv.FormatFloat(cfg.RateStandard, 'g', -1, 64))
	fmt.Fprintf(&b, "rate.data = %s\n", strconv.FormatFloat(cfg.RateData, 'g', -1, 64))

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// parseKeyValue splits a line on its first '='.
func parseKeyValue(line string) (string, string, error) {
	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return "", "", ErrInvalidConfigLine
	}
	key := strings.TrimSpace(line[:idx])
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return strings.ToLower(key), strings.TrimSpace(line[idx+1:]), nil
}

func applyKey(cfg *Config, key, value string) error {
	switch key {
	case "datadir":
		cfg.DataDir = value
	case "listen":
		cfg.ListenAddr = value
	case "network":
		cfg.Network = value
	case "apiurl":
		cfg.APIURL = value
	case "origin":
		cfg.Origin = value
	case "loglevel":
		cfg.LogLevel = value
	case "logfile":
		cfg.LogFile = value
	case "logjson":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("logjson: %w", err)
		}
		cfg.LogJSON = v
	case "invoicetimeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invoicetimeout: %w", err)
		}
		cfg.InvoiceTimeout = d
	case "rate.standard":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("rate.standard: %w", err)
		}
		cfg.RateStandard = v
	case "rate.data":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("rate.data: %w", err)
		}
		cfg.RateData = v
	}
	return nil
}
