// Package apperr defines the sentinel error kinds the core raises.
package apperr

import "errors"

var (
	// ErrInvalidInput covers malformed txid, bad address, unsupported extension.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidKey means a WIF string failed to decode.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidAddress means a Base58Check address payload was malformed.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidTxid means a string was not 64 hex characters.
	ErrInvalidTxid = errors.New("invalid txid")

	// ErrInsufficientFunds means total funding fell short of the required amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrScriptDecode means no output script yielded a recognizable container.
	ErrScriptDecode = errors.New("no recognizable payload")

	// ErrNetworkTransient covers any Chain Gateway failure that may succeed on retry.
	ErrNetworkTransient = errors.New("transient network error")

	// ErrInternalInvariant covers unexpected codec or state-machine conditions.
	ErrInternalInvariant = errors.New("internal invariant violated")
)

// IsFatal reports whether err should move a job straight to Failed
// without a retry, per the propagation rules in the error design.
func IsFatal(err error) bool {
	return !errors.Is(err, ErrNetworkTransient)
}
