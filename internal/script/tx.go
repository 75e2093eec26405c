package script

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// TxIn is one transaction input in wire order.
type TxIn struct {
	PrevTxid  string // display form (reversed from wire bytes)
	Vout      uint32
	ScriptSig []byte
	Sequence  uint32
}

// TxOut is one transaction output.
type TxOut struct {
	Value  int64
	Script []byte
}

// Tx is a raw BSV transaction, matching the wire format in §4.1: u32
// version LE, varint-prefixed input/output lists, u32 locktime LE.
type Tx struct {
	Version  uint32
	Inputs   []TxIn
	Outputs  []TxOut
	Locktime uint32
}

// Serialize writes the transaction in wire format.
func (t *Tx) Serialize() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, t.Version)
	WriteVarInt(&buf, uint64(len(t.Inputs)))
	for _, in := range t.Inputs {
		txidBytes, err := hex.DecodeString(in.PrevTxid)
		if err != nil || len(txidBytes) != 32 {
			txidBytes = make([]byte, 32)
		}
		buf.Write(ReverseBytes(txidBytes))
		binary.Write(&buf, binary.LittleEndian, in.Vout)
		WriteVarInt(&buf, uint64(len(in.ScriptSig)))
		buf.Write(in.ScriptSig)
		binary.Write(&buf, binary.LittleEndian, in.Sequence)
	}
	WriteVarInt(&buf, uint64(len(t.Outputs)))
	for _, out := range t.Outputs {
		binary.Write(&buf, binary.LittleEndian, out.Value)
		WriteVarInt(&buf, uint64(len(out.Script)))
		buf.Write(out.Script)
	}
	binary.Write(&buf, binary.LittleEndian, t.Locktime)
	return buf.Bytes()
}

// Txid returns the double-SHA256 of the serialized transaction,
// reversed to display order, as lowercase hex.
func (t *Tx) Txid() string {
	h := DoubleSHA256(t.Serialize())
	return hex.EncodeToString(ReverseBytes(h))
}

// ParseTx decodes a raw transaction from its wire bytes.
func ParseTx(raw []byte) (*Tx, error) {
	off := 0
	if off+4 > len(raw) {
		return nil, fmt.Errorf("truncated version")
	}
	version := binary.LittleEndian.Uint32(raw[off : off+4])
	off += 4

	inCount, n, ok := ReadVarInt(raw, off)
	if !ok {
		return nil, fmt.Errorf("truncated input count")
	}
	off += n

	inputs := make([]TxIn, 0, inCount)
	for i := uint64(0); i < inCount; i++ {
		if off+36 > len(raw) {
			return nil, fmt.Errorf("truncated input %d", i)
		}
		txidRev := raw[off : off+32]
		off += 32
		vout := binary.LittleEndian.Uint32(raw[off : off+4])
		off += 4
		scriptLen, n, ok := ReadVarInt(raw, off)
		if !ok {
			return nil, fmt.Errorf("truncated script_sig length on input %d", i)
		}
		off += n
		if off+int(scriptLen) > len(raw) {
			return nil, fmt.Errorf("truncated script_sig on input %d", i)
		}
		scriptSig := append([]byte(nil), raw[off:off+int(scriptLen)]...)
		off += int(scriptLen)
		if off+4 > len(raw) {
			return nil, fmt.Errorf("truncated sequence on input %d", i)
		}
		sequence := binary.LittleEndian.Uint32(raw[off : off+4])
		off += 4

		inputs = append(inputs, TxIn{
			PrevTxid:  hex.EncodeToString(ReverseBytes(txidRev)),
			Vout:      vout,
			ScriptSig: scriptSig,
			Sequence:  sequence,
		})
	}

	outCount, n, ok := ReadVarInt(raw, off)
	if !ok {
		return nil, fmt.Errorf("truncated output count")
	}
	off += n

	outputs := make([]TxOut, 0, outCount)
	for i := uint64(0); i < outCount; i++ {
		if off+8 > len(raw) {
			return nil, fmt.Errorf("truncated output %d", i)
		}
		value := int64(binary.LittleEndian.Uint64(raw[off : off+8]))
		off += 8
		scriptLen, n, ok := ReadVarInt(raw, off)
		if !ok {
			return nil, fmt.Errorf("truncated script length on output %d", i)
		}
		off += n
		if off+int(scriptLen) > len(raw) {
			return nil, fmt.Errorf("truncated script on output %d", i)
		}
		scr := append([]byte(nil), raw[off:off+int(scriptLen)]...)
		off += int(scriptLen)
		outputs = append(outputs, TxOut{Value: value, Script: scr})
	}

	if off+4 > len(raw) {
		return nil, fmt.Errorf("truncated locktime")
	}
	locktime := binary.LittleEndian.Uint32(raw[off : off+4])
	off += 4

	return &Tx{Version: version, Inputs: inputs, Outputs: outputs, Locktime: locktime}, nil
}
