package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
)

type stubGateway struct {
	utxos []UTXO
	err   error
}

func (s *stubGateway) ListUnspent(ctx context.Context, address string) ([]UTXO, error) {
	return s.utxos, s.err
}
func (s *stubGateway) GetRawTx(ctx context.Context, txid string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "rawhex", nil
}
func (s *stubGateway) Broadcast(ctx context.Context, rawHex string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "txid", nil
}
func (s *stubGateway) GetBalance(ctx context.Context, address string) (int64, int64, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	return 10, 0, nil
}

func TestMultiGatewayFallsBackOnPrimaryError(t *testing.T) {
	primary := &stubGateway{err: errors.New("primary down")}
	fallback := &stubGateway{utxos: []UTXO{{Txid: "a", Vout: 0, Value: 100}}}
	gw := NewMultiGateway(primary, fallback, logrus.NewEntry(logrus.New()))

	out, err := gw.ListUnspent(context.Background(), "addr")
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if len(out) != 1 || out[0].Value != 100 {
		t.Fatalf("unexpected result from fallback: %+v", out)
	}
}

func TestMultiGatewayUsesPrimaryWhenHealthy(t *testing.T) {
	primary := &stubGateway{utxos: []UTXO{{Txid: "primary", Vout: 0, Value: 1}}}
	fallback := &stubGateway{utxos: []UTXO{{Txid: "fallback", Vout: 0, Value: 2}}}
	gw := NewMultiGateway(primary, fallback, logrus.NewEntry(logrus.New()))

	out, err := gw.ListUnspent(context.Background(), "addr")
	if err != nil {
		t.Fatalf("ListUnspent: %v", err)
	}
	if len(out) != 1 || out[0].Txid != "primary" {
		t.Fatalf("expected primary result, got %+v", out)
	}
}

func TestMultiGatewayNoFallbackPropagatesError(t *testing.T) {
	primary := &stubGateway{err: errors.New("primary down")}
	gw := NewMultiGateway(primary, nil, logrus.NewEntry(logrus.New()))

	if _, err := gw.ListUnspent(context.Background(), "addr"); err == nil {
		t.Fatalf("expected error to propagate with no fallback configured")
	}
}

func TestForNetworkTestnetHasNoFallback(t *testing.T) {
	gw := ForNetwork("testnet", "http://primary.invalid", "http://fallback.invalid", "", logrus.NewEntry(logrus.New()))
	if _, ok := gw.(*multiGateway); ok {
		t.Fatalf("expected testnet to resolve to a single backend, not a multiGateway")
	}
}

func TestForNetworkMainnetComposesFallback(t *testing.T) {
	gw := ForNetwork("mainnet", "http://primary.invalid", "http://fallback.invalid", "", logrus.NewEntry(logrus.New()))
	if _, ok := gw.(*multiGateway); !ok {
		t.Fatalf("expected mainnet with a fallback URL to compose a multiGateway")
	}
}
