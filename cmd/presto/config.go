package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/bitfsorg/presto-go/config"
)

// cliOptions are the command line flags. Flags left empty fall back to the
// configuration file, then to config.DefaultConfig.
type cliOptions struct {
	ConfigFile  string `short:"C" long:"config" description:"Path to configuration file"`
	DataDir     string `long:"datadir" description:"Directory holding the configuration file"`
	Key         string `short:"k" long:"key" description:"WIF private key; enables proxypay mode"`
	Inputs      string `long:"inputs" description:"JSON file with an array of input descriptors"`
	Outputs     string `long:"outputs" description:"JSON file with an array of output descriptors"`
	Change      string `long:"change" description:"Change address (proxypay mode)"`
	APIURL      string `long:"api-url" description:"Invoice service base URL"`
	Origin      string `long:"origin" description:"Origin of the payment UI"`
	Network     string `long:"network" description:"mainnet, testnet or regtest"`
	Invoice     string `long:"invoice" description:"Load this invoice instead of creating one"`
	Description string `long:"description" description:"Invoice description"`
	Listen      string `long:"listen" description:"Serve the embed channel and metrics on this address"`
	LogLevel    string `long:"loglevel" description:"debug, info, warn or error"`
	Debug       bool   `long:"debug" description:"Debug logging for the payment session"`
}

// loadConfig parses args and layers them over the configuration file.
func loadConfig(args []string) (*cliOptions, config.Config, error) {
	opts := &cliOptions{}
	if _, err := flags.NewParser(opts, flags.Default).ParseArgs(args); err != nil {
		return nil, config.Config{}, err
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	path := opts.ConfigFile
	explicit := path != ""
	if !explicit {
		path = config.ConfigPath(dataDir)
	}

	cfg, err := config.LoadConfig(path)
	switch {
	case err == nil:
	case errors.Is(err, config.ErrConfigNotFound) && !explicit:
		cfg = config.DefaultConfig()
	default:
		return nil, config.Config{}, err
	}
	cfg.DataDir = dataDir

	if opts.Network != "" {
		cfg.Network = opts.Network
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}
	if opts.Origin != "" {
		cfg.Origin = opts.Origin
	}
	if opts.Listen != "" {
		cfg.ListenAddr = opts.Listen
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, config.Config{}, err
	}
	return opts, cfg, nil
}

// readDescriptors decodes a JSON array of descriptor literals. An empty
// path yields no descriptors.
func readDescriptors(path string) ([]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return items, nil
}
