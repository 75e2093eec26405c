package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BitcoinPay-Labs/flacstore/internal/apperr"
	"github.com/cenkalti/backoff/v4"
)

// bitailsBackend implements Gateway against a Bitails-shaped indexer
// API, grounded on original_source's services/bitails.rs: address
// balance/unspent lookups, raw-tx fetch, and a broadcast endpoint whose
// response shape varies (object-with-txid, object-with-error, or a
// bare quoted 64-hex string) and must be normalized before use.
type bitailsBackend struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewBitailsBackend constructs a Gateway backend against baseURL
// (e.g. "https://api.bitails.io"). apiKey may be empty.
func NewBitailsBackend(baseURL, apiKey string) Gateway {
	return &bitailsBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type addressBalance struct {
	Confirmed   int64 `json:"confirmed"`
	Unconfirmed int64 `json:"unconfirmed"`
}

type unspentEntry struct {
	Txid  string `json:"txid"`
	Vout  uint32 `json:"vout"`
	Value int64  `json:"value"`
}

type unspentResponse struct {
	Address string         `json:"address"`
	Unspent []unspentEntry `json:"unspent"`
}

func (b *bitailsBackend) ListUnspent(ctx context.Context, address string) ([]UTXO, error) {
	var resp unspentResponse
	if err := b.getJSON(ctx, fmt.Sprintf("/address/%s/unspent", address), &resp); err != nil {
		return nil, err
	}
	out := make([]UTXO, 0, len(resp.Unspent))
	for _, u := range resp.Unspent {
		out = append(out, UTXO{Txid: u.Txid, Vout: u.Vout, Value: u.Value})
	}
	return out, nil
}

func (b *bitailsBackend) GetBalance(ctx context.Context, address string) (int64, int64, error) {
	var resp addressBalance
	if err := b.getJSON(ctx, fmt.Sprintf("/address/%s/balance", address), &resp); err != nil {
		return 0, 0, err
	}
	return resp.Confirmed, resp.Unconfirmed, nil
}

func (b *bitailsBackend) GetRawTx(ctx context.Context, txid string) (string, error) {
	if !isValidTxid(txid) {
		return "", fmt.Errorf("%w: %q", apperr.ErrInvalidTxid, txid)
	}
	var resp struct {
		Hex string `json:"hex"`
	}
	if err := b.getJSON(ctx, fmt.Sprintf("/tx/%s", txid), &resp); err != nil {
		return "", err
	}
	if resp.Hex == "" {
		return "", fmt.Errorf("%w: empty raw tx for %s", apperr.ErrNetworkTransient, txid)
	}
	return resp.Hex, nil
}

// Broadcast posts the raw transaction hex and normalizes the
// response: an object carrying "txid", an object carrying
// "error.message", or a bare quoted 64-hex-char string.
func (b *bitailsBackend) Broadcast(ctx context.Context, rawHex string) (string, error) {
	body, _ := json.Marshal(map[string]string{"raw": rawHex})

	var rawResp []byte
	op := func() error {
		resp, err := b.post(ctx, "/tx/broadcast", body)
		if err != nil {
			return err
		}
		rawResp = resp
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrNetworkTransient, err)
	}

	trimmed := strings.Trim(strings.TrimSpace(string(rawResp)), `"`)
	if isValidTxid(trimmed) {
		return trimmed, nil
	}

	var obj struct {
		Txid  string `json:"txid"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rawResp, &obj); err == nil {
		if obj.Error != nil && obj.Error.Message != "" {
			return "", fmt.Errorf("%w: %s", apperr.ErrNetworkTransient, obj.Error.Message)
		}
		if isValidTxid(obj.Txid) {
			return obj.Txid, nil
		}
	}
	return "", fmt.Errorf("%w: unrecognized broadcast response", apperr.ErrNetworkTransient)
}

func (b *bitailsBackend) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrNetworkTransient, err)
	}
	b.applyAuth(req)
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrNetworkTransient, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrNetworkTransient, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", apperr.ErrNetworkTransient, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrNetworkTransient, err)
	}
	return nil
}

func (b *bitailsBackend) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrNetworkTransient, err)
	}
	req.Header.Set("Content-Type", "application/json")
	b.applyAuth(req)
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrNetworkTransient, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrNetworkTransient, err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", apperr.ErrNetworkTransient, resp.StatusCode)
	}
	return respBody, nil
}

func (b *bitailsBackend) applyAuth(req *http.Request) {
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}
}
