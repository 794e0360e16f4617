package network

import "fmt"

const (
	// DefaultAPIURL is the base URL of the hosted invoice service.
	DefaultAPIURL = "https://www.paypresto.co/api"

	// DefaultOrigin is the origin the hosted payment UI posts messages from.
	DefaultOrigin = "https://www.paypresto.co"
)

// APIConfig holds the connection parameters for the invoice service.
type APIConfig struct {
	URL     string `json:"url"`
	Origin  string `json:"origin"`
	Network string `json:"network"`
}

// NetworkPresets contains default API configurations for known networks.
var NetworkPresets = map[string]APIConfig{
	"mainnet": {URL: DefaultAPIURL, Origin: DefaultOrigin},
	"regtest": {URL: "http://localhost:4000/api", Origin: "http://localhost:4000"},
}

// ResolveConfig merges API configuration from three sources with decreasing priority:
//  1. CLI flags (highest priority)
//  2. Environment variables (PRESTO_API_URL, PRESTO_ORIGIN)
//  3. Network presets (lowest priority)
//
// Networks without a preset, such as testnet, require explicit configuration.
func ResolveConfig(flags *APIConfig, env map[string]string, network string) (*APIConfig, error) {
	result := APIConfig{Network: network}

	// Layer 1: start with preset defaults if available.
	if preset, ok := NetworkPresets[network]; ok {
		result = preset
		result.Network = network
	}

	// Layer 2: environment variables override preset defaults.
	if env != nil {
		if v, ok := env["PRESTO_API_URL"]; ok && v != "" {
			result.URL = v
		}
		if v, ok := env["PRESTO_ORIGIN"]; ok && v != "" {
			result.Origin = v
		}
	}

	// Layer 3: CLI flags have highest priority.
	if flags != nil {
		if flags.URL != "" {
			result.URL = flags.URL
		}
		if flags.Origin != "" {
			result.Origin = flags.Origin
		}
	}

	if result.URL == "" {
		return nil, fmt.Errorf("network: %s requires explicit API configuration (set --api-url, PRESTO_API_URL, or config file)", network)
	}

	return &result, nil
}
