package tx

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("tx: required parameter is nil")

	// ErrInsufficientFunds indicates the inputs cannot cover the outputs and fee.
	ErrInsufficientFunds = errors.New("tx: insufficient funds")

	// ErrInvalidInput indicates an input descriptor is missing required fields
	// or carries malformed values.
	ErrInvalidInput = errors.New("tx: invalid input params")

	// ErrInvalidOutput indicates an output descriptor matches no known shape
	// or carries malformed values.
	ErrInvalidOutput = errors.New("tx: invalid output params")

	// ErrDuplicateInput indicates the outpoint is already spent by this forge.
	ErrDuplicateInput = errors.New("tx: duplicate input outpoint")

	// ErrInvalidRates indicates a negative or non-finite byte rate.
	ErrInvalidRates = errors.New("tx: invalid fee rates")

	// ErrInputIndex indicates an input index outside the built transaction.
	ErrInputIndex = errors.New("tx: input index out of range")

	// ErrUnsupportedScript flags an input whose unlocking size is unknown to
	// the fee estimator. It is logged, never returned.
	ErrUnsupportedScript = errors.New("tx: unable to estimate fee for custom input script")

	// ErrScriptBuild indicates script construction failed.
	ErrScriptBuild = errors.New("tx: script build failed")

	// ErrSigningFailed indicates a signing template returned an error.
	ErrSigningFailed = errors.New("tx: signing failed")
)
