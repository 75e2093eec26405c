package script

import (
	"bytes"
	"testing"
)

func TestWritePushReadPushRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		bytes.Repeat([]byte{0x01}, 1),
		bytes.Repeat([]byte{0x02}, 75),
		bytes.Repeat([]byte{0x03}, 76),
		bytes.Repeat([]byte{0x04}, 255),
		bytes.Repeat([]byte{0x05}, 256),
		bytes.Repeat([]byte{0x06}, 70000),
	}
	for _, data := range cases {
		var buf bytes.Buffer
		WritePush(&buf, data)
		got, consumed, ok := ReadPush(buf.Bytes(), 0)
		if !ok {
			t.Fatalf("ReadPush failed for len=%d", len(data))
		}
		if consumed != buf.Len() {
			t.Fatalf("len=%d: consumed=%d want=%d", len(data), consumed, buf.Len())
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("len=%d: roundtrip mismatch", len(data))
		}
	}
}

func TestWritePushLengthPrefix(t *testing.T) {
	var buf bytes.Buffer
	WritePush(&buf, bytes.Repeat([]byte{0xAA}, 76))
	if buf.Bytes()[0] != 0x4c {
		t.Fatalf("expected OP_PUSHDATA1 prefix for len 76, got 0x%02x", buf.Bytes()[0])
	}

	buf.Reset()
	WritePush(&buf, bytes.Repeat([]byte{0xAA}, 256))
	if buf.Bytes()[0] != 0x4d {
		t.Fatalf("expected OP_PUSHDATA2 prefix for len 256, got 0x%02x", buf.Bytes()[0])
	}

	buf.Reset()
	WritePush(&buf, bytes.Repeat([]byte{0xAA}, 70000))
	if buf.Bytes()[0] != 0x4e {
		t.Fatalf("expected OP_PUSHDATA4 prefix for len 70000, got 0x%02x", buf.Bytes()[0])
	}
}

func TestReadPushTruncated(t *testing.T) {
	if _, _, ok := ReadPush([]byte{0x4c, 0x05, 0x01}, 0); ok {
		t.Fatalf("expected ok=false for truncated push data")
	}
	if _, _, ok := ReadPush([]byte{0x4d, 0x01}, 0); ok {
		t.Fatalf("expected ok=false for truncated length field")
	}
}

func TestVarIntRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 252, 253, 0xffff, 0x10000, 0xffffffff, 0x100000000}
	for _, v := range values {
		var buf bytes.Buffer
		WriteVarInt(&buf, v)
		got, consumed, ok := ReadVarInt(buf.Bytes(), 0)
		if !ok {
			t.Fatalf("ReadVarInt failed for %d", v)
		}
		if got != v {
			t.Fatalf("got=%d want=%d", got, v)
		}
		if consumed != buf.Len() {
			t.Fatalf("consumed=%d want=%d for %d", consumed, buf.Len(), v)
		}
	}
}

func TestDoubleSHA256(t *testing.T) {
	out := DoubleSHA256([]byte("hello"))
	if len(out) != 32 {
		t.Fatalf("expected 32-byte digest, got %d", len(out))
	}
	again := DoubleSHA256([]byte("hello"))
	if !bytes.Equal(out, again) {
		t.Fatalf("expected deterministic digest")
	}
}

func TestReverseBytes(t *testing.T) {
	got := ReverseBytes([]byte{1, 2, 3})
	want := []byte{3, 2, 1}
	if !bytes.Equal(got, want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
}
