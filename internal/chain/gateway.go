// Package chain abstracts UTXO listing, raw-tx fetch, and broadcast
// over a primary/fallback pair of network backends (C3). Every
// operation fails with a transient error kind; the gateway itself is
// stateless and safe for concurrent use.
package chain

import (
	"context"
	"regexp"
)

// UTXO is one unspent output as reported by an indexer.
type UTXO struct {
	Txid  string
	Vout  uint32
	Value int64
}

// Gateway is the Chain Gateway contract consumed by the orchestrators.
type Gateway interface {
	ListUnspent(ctx context.Context, address string) ([]UTXO, error)
	GetRawTx(ctx context.Context, txid string) (string, error)
	Broadcast(ctx context.Context, rawHex string) (string, error)
	GetBalance(ctx context.Context, address string) (confirmed, unconfirmed int64, err error)
}

var txidPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// isValidTxid validates a 64-hex-character transaction id, used by
// every backend to reject malformed broadcast responses before they
// reach a caller.
func isValidTxid(s string) bool {
	return txidPattern.MatchString(s)
}
