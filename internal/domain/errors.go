package domain

import "errors"

// Validation errors: surfaced to the caller verbatim, never retried.
var (
	ErrInvalidBasisPoints = errors.New("payout + buyback basis points exceed 10000")
	ErrAssetNotAccepted   = errors.New("payment asset not accepted by merchant")
	ErrInvalidAddress     = errors.New("malformed address")

	// ErrMissingMinOut rejects a prebuilt swap transaction supplied without
	// a slippage floor; the settle instruction would otherwise accept any
	// swap output.
	ErrMissingMinOut = errors.New("minOut required with a prebuilt swap transaction")
)

// State errors: distinct typed results the caller maps to a 4xx outcome.
var (
	ErrMerchantNotFound       = errors.New("merchant not found")
	ErrProtocolNotInitialized = errors.New("protocol config not initialized")
	ErrMerchantFrozen         = errors.New("merchant is frozen")
	ErrProtocolPaused         = errors.New("protocol is paused")
)

// External-dependency errors: the caller may retry the whole compose with a
// fresh quote. This core never auto-retries quoting.
var (
	// ErrNotTradable means the aggregator found no route (or degraded into
	// one after exhausting the attempt budget). Not a hard fault.
	ErrNotTradable = errors.New("no tradable route for pair")

	ErrNetworkUnavailable = errors.New("network unavailable")
)

// Integrity errors: always fatal to the current request and logged as
// anomalies. Never downgraded to a no-op.
var (
	ErrMalformedSwapTransaction   = errors.New("malformed swap transaction")
	ErrAmountOverflow             = errors.New("amount arithmetic overflow")
	ErrAddressDerivationExhausted = errors.New("address derivation exhausted")
)
