package script

import "testing"

func TestBase58CheckRoundTrip(t *testing.T) {
	payload := []byte{0x00, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	encoded := Base58CheckEncode(payload)
	decoded, err := Base58CheckDecode(encoded)
	if err != nil {
		t.Fatalf("Base58CheckDecode: %v", err)
	}
	if len(decoded) != len(payload)+4 {
		t.Fatalf("expected decoded length %d, got %d", len(payload)+4, len(decoded))
	}
	for i, b := range payload {
		if decoded[i] != b {
			t.Fatalf("payload byte %d: got %02x want %02x", i, decoded[i], b)
		}
	}
}

func TestBase58CheckDecodeRejectsBadChecksum(t *testing.T) {
	payload := []byte{0x00, 1, 2, 3}
	encoded := Base58CheckEncode(payload)
	tampered := []byte(encoded)
	tampered[0] = tampered[0] + 1
	if _, err := Base58CheckDecode(string(tampered)); err == nil {
		t.Fatalf("expected checksum error on tampered input")
	}
}

func TestEncodeP2PKHAddressFromScriptRoundTrip(t *testing.T) {
	hash := make([]byte, 20)
	for i := range hash {
		hash[i] = byte(i)
	}
	payload := append([]byte{0x00}, hash...)
	address := Base58CheckEncode(payload)

	s, err := EncodeP2PKH(address)
	if err != nil {
		t.Fatalf("EncodeP2PKH: %v", err)
	}
	if !IsP2PKH(s) {
		t.Fatalf("expected generated script to be recognized as P2PKH")
	}

	got, ok := AddressFromP2PKHScript(s, 0x00)
	if !ok {
		t.Fatalf("AddressFromP2PKHScript failed")
	}
	if got != address {
		t.Fatalf("got=%q want=%q", got, address)
	}
}

func TestEncodeP2PKHRejectsBadLength(t *testing.T) {
	payload := []byte{0x00, 1, 2, 3}
	address := Base58CheckEncode(payload)
	if _, err := EncodeP2PKH(address); err == nil {
		t.Fatalf("expected error for short address payload")
	}
}

func TestIsP2PKHRejectsOtherScripts(t *testing.T) {
	if IsP2PKH([]byte{0x6a, 0x01, 0x02}) {
		t.Fatalf("OP_RETURN script should not be recognized as P2PKH")
	}
}
