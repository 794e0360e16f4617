package wallet

import (
	"fmt"
	"strings"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
)

// ParseKey decodes a WIF-encoded private key.
func ParseKey(wif string) (*ec.PrivateKey, error) {
	wif = strings.TrimSpace(wif)
	if wif == "" {
		return nil, fmt.Errorf("%w: empty WIF", ErrInvalidKey)
	}
	key, err := ec.PrivateKeyFromWif(wif)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return key, nil
}

// ResolveKey picks the signing key from an explicit key or a WIF string.
// The explicit key wins. It returns (nil, nil) when neither is given.
func ResolveKey(key *ec.PrivateKey, wif string) (*ec.PrivateKey, error) {
	if key != nil {
		return key, nil
	}
	if wif == "" {
		return nil, nil
	}
	return ParseKey(wif)
}

// Address returns the P2PKH address of key on the given network.
func Address(key *ec.PrivateKey, net *NetworkConfig) (*script.Address, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil key", ErrInvalidKey)
	}
	if net == nil {
		net = &MainNet
	}
	addr, err := script.NewAddressFromPublicKey(key.PubKey(), net.IsMainnet())
	if err != nil {
		return nil, fmt.Errorf("wallet: address from pubkey: %w", err)
	}
	return addr, nil
}
