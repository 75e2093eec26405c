// Package funding implements the cost model and split-transaction
// construction (C4). Constants are transcribed exactly from the
// original source and treated as fixed tuning values, not derived.
package funding

import (
	"fmt"
	"math"

	"github.com/BitcoinPay-Labs/flacstore/internal/apperr"
	"github.com/BitcoinPay-Labs/flacstore/internal/script"
	"github.com/BitcoinPay-Labs/flacstore/internal/txbuild"
)

// DefaultMaxChunkSize is the 1 MiB threshold above which a payload is
// split across chunk transactions instead of one single-container tx.
const DefaultMaxChunkSize = 1024 * 1024

const (
	dustLimit           = 546
	singleTxOverhead    = 150
	splitTxBaseOverhead = 10
	splitInputOverhead  = 148
	splitOutputOverhead = 34
	chunkTxOverhead     = 200
	perOutputBuffer     = 10
	safetyFactor        = 1.2
)

// Plan is the funding quote for one upload.
type Plan struct {
	ChunksNeeded     int
	SplitOutputs     int
	PerOutputFunding int64
	SplitFee         int64
	TotalRequired    int64
}

// CalculateUploadCost quotes the single-container path: one
// transaction holding the whole payload as data outputs.
func CalculateUploadCost(payloadSize int, feeRate float64) int64 {
	txSize := singleTxOverhead + payloadSize
	fee := int64(math.Ceil(float64(txSize) * feeRate))
	if fee+1 > dustLimit {
		return fee + 1
	}
	return dustLimit
}

// PlanMultiChunk computes the full funding plan for a chunked upload,
// per §4.4: chunks_needed, per_output_funding, split_outputs,
// split_fee, and total_required (pre-safety-factor, callers multiply
// by the 1.2 quote-time factor themselves when surfacing a quote).
func PlanMultiChunk(payloadSize int, maxChunkSize int, feeRate float64, hasCover bool) Plan {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	chunksNeeded := int(math.Ceil(float64(payloadSize) / float64(maxChunkSize)))

	perOutputFunding := int64(math.Ceil(feeRate*(chunkTxOverhead+float64(maxChunkSize)))) + perOutputBuffer

	splitOutputs := chunksNeeded + 1 // +1 for the manifest funding output
	if hasCover {
		splitOutputs++
	}

	splitFee := int64(math.Ceil(feeRate * (splitTxBaseOverhead + splitInputOverhead + splitOutputOverhead*float64(splitOutputs))))

	total := perOutputFunding*int64(splitOutputs) + splitFee

	return Plan{
		ChunksNeeded:     chunksNeeded,
		SplitOutputs:     splitOutputs,
		PerOutputFunding: perOutputFunding,
		SplitFee:         splitFee,
		TotalRequired:    total,
	}
}

// Quote applies the 1.2 safety factor at quote time, as §4.4 requires.
func (p Plan) Quote() int64 {
	return int64(math.Ceil(float64(p.TotalRequired) * safetyFactor))
}

// UTXO is a single unspent output, transient to one upload attempt.
type UTXO struct {
	Txid   string
	Vout   uint32
	Value  int64
	Script []byte
}

// BuildSplitTx spends input into splitOutputs equal-value outputs
// of perOutputFunding each, paid back to the signer's own address,
// plus a trailing change output when the remainder exceeds dust.
func BuildSplitTx(wif, network string, input UTXO, splitOutputs int, perOutputFunding int64, feeRate float64) (string, error) {
	selfScript, err := selfLockingScript(wif, network)
	if err != nil {
		return "", err
	}

	txSize := splitTxBaseOverhead + splitInputOverhead + splitOutputOverhead*splitOutputs
	fee := int64(math.Ceil(float64(txSize) * feeRate))
	totalOut := perOutputFunding * int64(splitOutputs)

	if input.Value < totalOut+fee {
		return "", fmt.Errorf("%w: have %d need %d", apperr.ErrInsufficientFunds, input.Value, totalOut+fee)
	}

	outputs := make([]txbuild.Output, 0, splitOutputs+1)
	for i := 0; i < splitOutputs; i++ {
		outputs = append(outputs, txbuild.Output{Script: selfScript, Value: perOutputFunding})
	}
	change := input.Value - totalOut - fee
	if change > dustLimit {
		outputs = append(outputs, txbuild.Output{Script: selfScript, Value: change})
	}

	in := txbuild.Input{
		PrevTxid:      input.Txid,
		Vout:          input.Vout,
		Value:         input.Value,
		LockingScript: input.Script,
	}
	return txbuild.BuildAndSign(wif, network, []txbuild.Input{in}, outputs)
}

// CalculateChunkOutputSatoshis returns the per-chunk-tx funding amount
// for a chunk of chunkSize bytes at feeRate.
func CalculateChunkOutputSatoshis(chunkSize int, feeRate float64) int64 {
	txSize := chunkTxOverhead + chunkSize
	fee := int64(math.Ceil(float64(txSize) * feeRate))
	return fee + perOutputBuffer
}

func selfLockingScript(wif, network string) ([]byte, error) {
	priv, _, err := txbuild.WIFToPrivKey(wif)
	if err != nil {
		return nil, err
	}
	addr := txbuild.PubKeyToAddress(priv.PubKey().SerializeCompressed(), network)
	return script.EncodeP2PKH(addr)
}
