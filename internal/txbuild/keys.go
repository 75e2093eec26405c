// Package txbuild assembles and signs raw BSV transactions (C2). It
// performs no network I/O and no clock/random access beyond the
// ECDSA signing nonce, so it can be exercised with deterministic test
// vectors against known keys.
package txbuild

import (
	"fmt"

	"github.com/BitcoinPay-Labs/flacstore/internal/apperr"
	"github.com/BitcoinPay-Labs/flacstore/internal/script"
	"github.com/btcsuite/btcd/btcec/v2"
)

const (
	versionMainnet = 0x00
	versionTestnet = 0x6f
	wifMainnet     = 0x80
	wifTestnet     = 0xef
)

func addressVersion(network string) byte {
	if network == "testnet" {
		return versionTestnet
	}
	return versionMainnet
}

func wifVersion(network string) byte {
	if network == "testnet" {
		return wifTestnet
	}
	return wifMainnet
}

// GenerateKeypair creates a fresh secp256k1 keypair and returns its
// WIF (compressed) and the corresponding P2PKH address for network.
func GenerateKeypair(network string) (wif string, address string, err error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", apperr.ErrInternalInvariant, err)
	}
	compressedPub := priv.PubKey().SerializeCompressed()
	w := PrivKeyToWIF(priv.Serialize(), network)
	addr := script.Base58CheckEncode(append([]byte{addressVersion(network)}, script.Hash160(compressedPub)...))
	return w, addr, nil
}

// PrivKeyToWIF encodes a 32-byte scalar as a compressed WIF string.
func PrivKeyToWIF(scalar []byte, network string) string {
	payload := make([]byte, 0, 34)
	payload = append(payload, wifVersion(network))
	payload = append(payload, scalar...)
	payload = append(payload, 0x01) // compressed flag
	return script.Base58CheckEncode(payload)
}

// WIFToPrivKey decodes a WIF string, accepting the 37-byte
// (uncompressed) or 38-byte (compressed) Base58Check payload forms;
// the 32-byte scalar is always bytes [1:33] of the decoded payload.
func WIFToPrivKey(wif string) (*btcec.PrivateKey, bool, error) {
	decoded, err := script.Base58CheckDecode(wif)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", apperr.ErrInvalidKey, err)
	}
	if len(decoded) != 37 && len(decoded) != 38 {
		return nil, false, fmt.Errorf("%w: unexpected WIF length %d", apperr.ErrInvalidKey, len(decoded))
	}
	compressed := len(decoded) == 38
	scalar := decoded[1:33]
	priv, _ := btcec.PrivKeyFromBytes(scalar)
	return priv, compressed, nil
}

// PubKeyToAddress derives the P2PKH address for a compressed public
// key on network.
func PubKeyToAddress(compressedPub []byte, network string) string {
	payload := append([]byte{addressVersion(network)}, script.Hash160(compressedPub)...)
	return script.Base58CheckEncode(payload)
}
