package wallet

import (
	"fmt"
)

// NetworkConfig defines the address parameters of a BSV network.
type NetworkConfig struct {
	Name           string `json:"name"`
	AddressVersion byte   `json:"address_version"`
	P2SHVersion    byte   `json:"p2sh_version"`
}

// Predefined network configurations.
var (
	MainNet = NetworkConfig{
		Name:           "mainnet",
		AddressVersion: 0x00,
		P2SHVersion:    0x05,
	}

	TestNet = NetworkConfig{
		Name:           "testnet",
		AddressVersion: 0x6f,
		P2SHVersion:    0xc4,
	}

	RegTest = NetworkConfig{
		Name:           "regtest",
		AddressVersion: 0x6f,
		P2SHVersion:    0xc4,
	}
)

// predefined maps network names to their configs.
var predefined = map[string]*NetworkConfig{
	"mainnet": &MainNet,
	"testnet": &TestNet,
	"regtest": &RegTest,
}

// GetNetwork returns a predefined network by name. An empty name selects
// mainnet. Unknown names return ErrInvalidNetwork.
func GetNetwork(name string) (*NetworkConfig, error) {
	if name == "" {
		return &MainNet, nil
	}
	if net, ok := predefined[name]; ok {
		return net, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidNetwork, name)
}

// IsMainnet reports whether addresses use the mainnet version byte.
func (n *NetworkConfig) IsMainnet() bool {
	return n.AddressVersion == MainNet.AddressVersion
}
