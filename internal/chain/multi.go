package chain

import (
	"context"

	"github.com/sirupsen/logrus"
)

// multiGateway tries primary first; on failure (if fallback is set)
// it retries the same operation against fallback exactly once. For
// testnet, fallback is nil and the gateway behaves as a pass-through.
type multiGateway struct {
	primary  Gateway
	fallback Gateway
	log      *logrus.Entry
}

// NewMultiGateway composes primary/fallback per §4.3. fallback may be
// nil (testnet: a single backend is used).
func NewMultiGateway(primary, fallback Gateway, log *logrus.Entry) Gateway {
	return &multiGateway{primary: primary, fallback: fallback, log: log}
}

func (m *multiGateway) ListUnspent(ctx context.Context, address string) ([]UTXO, error) {
	out, err := m.primary.ListUnspent(ctx, address)
	if err == nil || m.fallback == nil {
		return out, err
	}
	m.log.WithError(err).Warn("primary list_unspent failed, trying fallback")
	return m.fallback.ListUnspent(ctx, address)
}

func (m *multiGateway) GetRawTx(ctx context.Context, txid string) (string, error) {
	out, err := m.primary.GetRawTx(ctx, txid)
	if err == nil || m.fallback == nil {
		return out, err
	}
	m.log.WithError(err).Warn("primary get_raw_tx failed, trying fallback")
	return m.fallback.GetRawTx(ctx, txid)
}

func (m *multiGateway) Broadcast(ctx context.Context, rawHex string) (string, error) {
	out, err := m.primary.Broadcast(ctx, rawHex)
	if err == nil || m.fallback == nil {
		return out, err
	}
	m.log.WithError(err).Warn("primary broadcast failed, trying fallback")
	return m.fallback.Broadcast(ctx, rawHex)
}

func (m *multiGateway) GetBalance(ctx context.Context, address string) (int64, int64, error) {
	confirmed, unconfirmed, err := m.primary.GetBalance(ctx, address)
	if err == nil || m.fallback == nil {
		return confirmed, unconfirmed, err
	}
	m.log.WithError(err).Warn("primary get_balance failed, trying fallback")
	return m.fallback.GetBalance(ctx, address)
}

// ForNetwork builds the appropriate Gateway for a job's network tag
// from the configured backend URLs.
func ForNetwork(network, primaryURL, fallbackURL, apiKey string, log *logrus.Entry) Gateway {
	primary := NewBitailsBackend(primaryURL, apiKey)
	if network == "testnet" || fallbackURL == "" {
		return primary
	}
	fallback := NewBitailsBackend(fallbackURL, apiKey)
	return NewMultiGateway(primary, fallback, log)
}
