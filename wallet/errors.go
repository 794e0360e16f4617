package wallet

import "errors"

var (
	// ErrInvalidKey indicates a missing or malformed private key.
	ErrInvalidKey = errors.New("wallet: invalid private key")

	// ErrInvalidNetwork indicates an unknown network name.
	ErrInvalidNetwork = errors.New("wallet: invalid network name")
)
