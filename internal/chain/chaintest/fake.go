// Package chaintest provides an in-memory Gateway fake for
// deterministic orchestrator tests, backing scenarios that would
// otherwise require real network I/O (chunk retry, insufficient
// funds, manifest/chunk reconstruction).
package chaintest

import (
	"context"
	"fmt"
	"sync"

	"github.com/BitcoinPay-Labs/flacstore/internal/apperr"
	"github.com/BitcoinPay-Labs/flacstore/internal/chain"
)

// Fake is a programmable Gateway: callers seed raw transactions and
// balances directly, and can inject a fixed number of transient
// broadcast failures before allowing success.
type Fake struct {
	mu sync.Mutex

	RawTxByTxid   map[string]string
	UnspentByAddr map[string][]chain.UTXO
	BalanceByAddr map[string][2]int64

	// FailBroadcastsRemaining, when > 0, makes the next N broadcasts
	// fail with apperr.ErrNetworkTransient before succeeding.
	FailBroadcastsRemaining int

	broadcastCount int
	nextTxid       int
}

// New returns an empty Fake ready for seeding.
func New() *Fake {
	return &Fake{
		RawTxByTxid:   map[string]string{},
		UnspentByAddr: map[string][]chain.UTXO{},
		BalanceByAddr: map[string][2]int64{},
	}
}

func (f *Fake) ListUnspent(ctx context.Context, address string) ([]chain.UTXO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chain.UTXO(nil), f.UnspentByAddr[address]...), nil
}

func (f *Fake) GetBalance(ctx context.Context, address string) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.BalanceByAddr[address]
	return b[0], b[1], nil
}

func (f *Fake) GetRawTx(ctx context.Context, txid string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.RawTxByTxid[txid]
	if !ok {
		return "", fmt.Errorf("%w: unknown txid %s", apperr.ErrNetworkTransient, txid)
	}
	return raw, nil
}

// BroadcastCount returns the total number of Broadcast calls made so far.
func (f *Fake) BroadcastCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.broadcastCount
}

func (f *Fake) Broadcast(ctx context.Context, rawHex string) (string, error) {
	f.mu.Lock()
	f.broadcastCount++
	if f.FailBroadcastsRemaining > 0 {
		f.FailBroadcastsRemaining--
		f.mu.Unlock()
		return "", fmt.Errorf("%w: simulated transient failure", apperr.ErrNetworkTransient)
	}
	f.nextTxid++
	txid := fmt.Sprintf("%064x", f.nextTxid)
	f.RawTxByTxid[txid] = rawHex
	f.mu.Unlock()
	return txid, nil
}

var _ chain.Gateway = (*Fake)(nil)
