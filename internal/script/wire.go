// Package script implements the custom on-chain container script codec
// (C1): push encoding, the container script shapes, and the raw
// transaction wire format. Decoding never panics or returns an error
// for malformed input — callers get ok=false, matching the "never
// raise" decoder policy.
package script

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// DoubleSHA256 computes double SHA-256, used for txids and sighashes.
// Delegates to chainhash.DoubleHashB rather than hand-rolling the two
// sha256.Sum256 calls, mirroring the teacher's own computeMerkleRoot
// use of chainhash's double-hash helper in pkg/parser/block.go.
func DoubleSHA256(data []byte) []byte {
	return chainhash.DoubleHashB(data)
}

// ReverseBytes returns a reversed copy of b, for the txid display
// convention (wire order is little-endian, display order is reversed).
func ReverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[i] = b[len(b)-1-i]
	}
	return out
}

// ReadVarInt reads a Bitcoin CompactSize integer from buf starting at
// off, returning the value and the number of bytes consumed.
func ReadVarInt(buf []byte, off int) (uint64, int, bool) {
	if off >= len(buf) {
		return 0, 0, false
	}
	b := buf[off]
	switch {
	case b < 0xfd:
		return uint64(b), 1, true
	case b == 0xfd:
		if off+3 > len(buf) {
			return 0, 0, false
		}
		return uint64(binary.LittleEndian.Uint16(buf[off+1 : off+3])), 3, true
	case b == 0xfe:
		if off+5 > len(buf) {
			return 0, 0, false
		}
		return uint64(binary.LittleEndian.Uint32(buf[off+1 : off+5])), 5, true
	default:
		if off+9 > len(buf) {
			return 0, 0, false
		}
		return binary.LittleEndian.Uint64(buf[off+1 : off+9]), 9, true
	}
}

// WriteVarInt appends a Bitcoin CompactSize encoding of val to buf.
func WriteVarInt(buf *bytes.Buffer, val uint64) {
	switch {
	case val < 0xfd:
		buf.WriteByte(byte(val))
	case val <= 0xffff:
		buf.WriteByte(0xfd)
		binary.Write(buf, binary.LittleEndian, uint16(val))
	case val <= 0xffffffff:
		buf.WriteByte(0xfe)
		binary.Write(buf, binary.LittleEndian, uint32(val))
	default:
		buf.WriteByte(0xff)
		binary.Write(buf, binary.LittleEndian, val)
	}
}

// WritePush appends a length-prefixed data push following the rules in
// §4.1: <=75 single byte length; 76-255 OP_PUSHDATA1; 256-65535
// OP_PUSHDATA2 (LE u16); else OP_PUSHDATA4 (LE u32).
func WritePush(buf *bytes.Buffer, data []byte) {
	l := len(data)
	switch {
	case l <= 75:
		buf.WriteByte(byte(l))
	case l <= 255:
		buf.WriteByte(0x4c)
		buf.WriteByte(byte(l))
	case l <= 65535:
		buf.WriteByte(0x4d)
		binary.Write(buf, binary.LittleEndian, uint16(l))
	default:
		buf.WriteByte(0x4e)
		binary.Write(buf, binary.LittleEndian, uint32(l))
	}
	buf.Write(data)
}

// ReadPush reads one push operation starting at off, returning the
// pushed data and the number of bytes consumed (opcode + length field
// + data). ok is false on any length violation or truncation.
func ReadPush(buf []byte, off int) (data []byte, consumed int, ok bool) {
	if off >= len(buf) {
		return nil, 0, false
	}
	op := buf[off]
	var length int
	var headerLen int
	switch {
	case op <= 75:
		length = int(op)
		headerLen = 1
	case op == 0x4c:
		if off+2 > len(buf) {
			return nil, 0, false
		}
		length = int(buf[off+1])
		headerLen = 2
	case op == 0x4d:
		if off+3 > len(buf) {
			return nil, 0, false
		}
		length = int(binary.LittleEndian.Uint16(buf[off+1 : off+3]))
		headerLen = 3
	case op == 0x4e:
		if off+5 > len(buf) {
			return nil, 0, false
		}
		length = int(binary.LittleEndian.Uint32(buf[off+1 : off+5]))
		headerLen = 5
	default:
		return nil, 0, false
	}
	start := off + headerLen
	end := start + length
	if end > len(buf) || end < start {
		return nil, 0, false
	}
	return buf[start:end], end - off, true
}
