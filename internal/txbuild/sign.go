package txbuild

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/BitcoinPay-Labs/flacstore/internal/apperr"
	"github.com/BitcoinPay-Labs/flacstore/internal/script"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// sighashAll is SIGHASH_ALL | SIGHASH_FORKID.
const sighashAll = 0x41

// Input is one spend of a prior output, self-owned by the signing key.
type Input struct {
	PrevTxid string
	Vout     uint32
	Value    int64
	// LockingScript is the prevout's scriptPubKey, used as scriptCode
	// in the sighash preimage (always P2PKH for our own funding chain).
	LockingScript []byte
}

// Output is a transaction output to build.
type Output struct {
	Script []byte
	Value  int64
}

// BuildAndSign assembles a raw transaction spending inputs into
// outputs, signs every input with the key decoded from wif, and
// returns the hex-encoded signed transaction. No network I/O is
// performed.
func BuildAndSign(wif string, network string, inputs []Input, outputs []Output) (string, error) {
	if len(inputs) == 0 {
		return "", fmt.Errorf("%w: no inputs", apperr.ErrInternalInvariant)
	}
	priv, _, err := WIFToPrivKey(wif)
	if err != nil {
		return "", err
	}
	compressedPub := priv.PubKey().SerializeCompressed()

	for _, in := range inputs {
		if len(in.PrevTxid) != 64 {
			return "", fmt.Errorf("%w: prev txid %q", apperr.ErrInvalidTxid, in.PrevTxid)
		}
	}

	tx := &script.Tx{Version: 1, Locktime: 0}
	for _, in := range inputs {
		tx.Inputs = append(tx.Inputs, script.TxIn{
			PrevTxid:  in.PrevTxid,
			Vout:      in.Vout,
			ScriptSig: nil,
			Sequence:  0xFFFFFFFF,
		})
	}
	for _, out := range outputs {
		tx.Outputs = append(tx.Outputs, script.TxOut{Value: out.Value, Script: out.Script})
	}

	prevoutsHash := hashPrevouts(inputs)
	sequencesHash := hashSequences(len(inputs))
	outputsHash := hashOutputs(outputs)

	for i, in := range inputs {
		preimage := sighashPreimage(tx.Version, prevoutsHash, sequencesHash, in, in.LockingScript, outputsHash, tx.Locktime)
		digest := script.DoubleSHA256(preimage)

		sig := ecdsa.Sign(priv, digest)
		der := sig.Serialize()

		var scriptSig bytes.Buffer
		sigWithType := append(append([]byte(nil), der...), sighashAll)
		script.WritePush(&scriptSig, sigWithType)
		script.WritePush(&scriptSig, compressedPub)
		tx.Inputs[i].ScriptSig = scriptSig.Bytes()
	}

	return hex.EncodeToString(tx.Serialize()), nil
}

func hashPrevouts(inputs []Input) []byte {
	var buf bytes.Buffer
	for _, in := range inputs {
		txidBytes, _ := hex.DecodeString(in.PrevTxid)
		buf.Write(script.ReverseBytes(txidBytes))
		binary.Write(&buf, binary.LittleEndian, in.Vout)
	}
	return script.DoubleSHA256(buf.Bytes())
}

func hashSequences(n int) []byte {
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		binary.Write(&buf, binary.LittleEndian, uint32(0xFFFFFFFF))
	}
	return script.DoubleSHA256(buf.Bytes())
}

func hashOutputs(outputs []Output) []byte {
	var buf bytes.Buffer
	for _, out := range outputs {
		binary.Write(&buf, binary.LittleEndian, out.Value)
		script.WriteVarInt(&buf, uint64(len(out.Script)))
		buf.Write(out.Script)
	}
	return script.DoubleSHA256(buf.Bytes())
}

// sighashPreimage builds the BIP143-style preimage described in §4.2:
// version || dsha256(prevouts) || dsha256(sequences) || outpoint_i ||
// varint(len(scriptCode)) || scriptCode || value_i || sequence_i ||
// dsha256(outputs) || locktime || sighash_type_as_u32_le.
func sighashPreimage(version uint32, prevoutsHash, sequencesHash []byte, in Input, scriptCode []byte, outputsHash []byte, locktime uint32) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, version)
	buf.Write(prevoutsHash)
	buf.Write(sequencesHash)

	txidBytes, _ := hex.DecodeString(in.PrevTxid)
	buf.Write(script.ReverseBytes(txidBytes))
	binary.Write(&buf, binary.LittleEndian, in.Vout)

	script.WriteVarInt(&buf, uint64(len(scriptCode)))
	buf.Write(scriptCode)

	binary.Write(&buf, binary.LittleEndian, in.Value)
	binary.Write(&buf, binary.LittleEndian, uint32(0xFFFFFFFF))

	buf.Write(outputsHash)
	binary.Write(&buf, binary.LittleEndian, locktime)
	binary.Write(&buf, binary.LittleEndian, uint32(sighashAll))

	return buf.Bytes()
}
