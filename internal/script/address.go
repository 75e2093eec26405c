package script

import (
	"crypto/sha256"
	"fmt"

	"github.com/BitcoinPay-Labs/flacstore/internal/apperr"
	"golang.org/x/crypto/ripemd160"
)

// Hash160 computes RIPEMD160(SHA256(data)), the standard pubkey-hash
// used by P2PKH addresses.
func Hash160(data []byte) []byte {
	sum := sha256.Sum256(data)
	r := ripemd160.New()
	r.Write(sum[:])
	return r.Sum(nil)
}

// EncodeP2PKH builds a standard P2PKH locking script
// (76 a9 14 <20-byte hash> 88 ac) from a Base58Check address. Fails
// when the decoded payload is not exactly 25 bytes (1 version + 20
// hash + 4 checksum), matching the original source's literal
// byte-length check.
func EncodeP2PKH(address string) ([]byte, error) {
	decoded, err := Base58CheckDecode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidAddress, err)
	}
	if len(decoded) != 25 {
		return nil, fmt.Errorf("%w: invalid address length %d", apperr.ErrInvalidAddress, len(decoded))
	}
	pubKeyHash := decoded[1:21]

	script := make([]byte, 0, 25)
	script = append(script, 0x76, 0xa9, 0x14)
	script = append(script, pubKeyHash...)
	script = append(script, 0x88, 0xac)
	return script, nil
}

// AddressFromP2PKHScript extracts the Base58Check address encoded in a
// P2PKH locking script, for the given version byte (0x00 mainnet,
// 0x6F testnet). Returns ok=false for any non-P2PKH script.
func AddressFromP2PKHScript(scriptPubKey []byte, versionByte byte) (string, bool) {
	if !IsP2PKH(scriptPubKey) {
		return "", false
	}
	payload := append([]byte{versionByte}, scriptPubKey[3:23]...)
	return Base58CheckEncode(payload), true
}

// IsP2PKH reports whether scriptPubKey is a standard P2PKH script.
func IsP2PKH(scriptPubKey []byte) bool {
	return len(scriptPubKey) == 25 &&
		scriptPubKey[0] == 0x76 && scriptPubKey[1] == 0xa9 && scriptPubKey[2] == 0x14 &&
		scriptPubKey[23] == 0x88 && scriptPubKey[24] == 0xac
}
