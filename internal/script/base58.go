package script

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// Base58CheckEncode encodes payload (version byte already prepended by
// the caller) with a trailing 4-byte double-SHA256 checksum.
func Base58CheckEncode(payload []byte) string {
	checksum := DoubleSHA256(payload)[:4]
	return base58.Encode(append(payload, checksum...))
}

// Base58CheckDecode base58-decodes s and verifies the trailing 4-byte
// checksum, returning the full decoded payload including version byte
// (the caller slices off what it needs) — this mirrors the original
// source's raw-offset handling rather than stripping version/checksum
// for the caller, since WIF decoding depends on the exact total length.
func Base58CheckDecode(s string) ([]byte, error) {
	decoded := base58.Decode(s)
	if len(decoded) < 5 {
		return nil, errors.New("base58check: too short")
	}
	payload := decoded[:len(decoded)-4]
	checksum := decoded[len(decoded)-4:]
	want := DoubleSHA256(payload)[:4]
	for i := range checksum {
		if checksum[i] != want[i] {
			return nil, errors.New("base58check: bad checksum")
		}
	}
	return decoded, nil
}
