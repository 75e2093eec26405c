// Package upload drives the upload state machine (C5): AwaitingPayment
// (already transitioned to Processing by the watcher) -> Cover? ->
// Split -> Chunk[i] loop with retry -> Manifest -> Complete.
package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/BitcoinPay-Labs/flacstore/internal/apperr"
	"github.com/BitcoinPay-Labs/flacstore/internal/chain"
	"github.com/BitcoinPay-Labs/flacstore/internal/funding"
	"github.com/BitcoinPay-Labs/flacstore/internal/jobstore"
	"github.com/BitcoinPay-Labs/flacstore/internal/script"
	"github.com/BitcoinPay-Labs/flacstore/internal/txbuild"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	interChunkSleep = 500 * time.Millisecond
	coverSleep      = 1 * time.Second
	splitSleep      = 1 * time.Second
	maxChunkRetries = 5
)

// Orchestrator drives a single upload job to completion.
type Orchestrator struct {
	Gateway  chain.Gateway
	Store    *jobstore.Store
	Log      *logrus.Entry
	FeeRate  float64
	MimeType string
}

// Run executes the upload state machine for job. Any failure moves the job to Failed with a diagnostic
// message and returns nil — the watcher's per-job goroutine does not
// propagate an error, it records one onto the job.
func (o *Orchestrator) Run(ctx context.Context, job *jobstore.Job) error {
	log := o.Log.WithField("job_id", job.ID)

	utxos, err := o.Gateway.ListUnspent(ctx, job.PaymentAddress)
	if err != nil {
		return o.fail(job, fmt.Sprintf("fetch funding utxos: %v", err))
	}
	if len(utxos) == 0 {
		return o.fail(job, "no UTXOs")
	}

	o.progress(job, 5, "funded")

	maxChunkSize := funding.DefaultMaxChunkSize
	if job.FileSize <= int64(maxChunkSize) {
		return o.runSingle(ctx, job, utxos)
	}
	return o.runChunked(ctx, job, utxos, maxChunkSize, log)
}

// runSingle handles payloads that fit in one transaction's container
// script, per §4.4's "single-container path ... chosen when
// payload_size <= 1 MiB".
func (o *Orchestrator) runSingle(ctx context.Context, job *jobstore.Job, utxos []chain.UTXO) error {
	selfScript, err := selfLockingScript(job.PaymentWIF, job.Network)
	if err != nil {
		return o.fail(job, err.Error())
	}
	input, err := o.largestUTXOAsInput(utxos, selfScript)
	if err != nil {
		return o.fail(job, err.Error())
	}

	const subPushSize = 100 * 1024
	chunks := splitBytes(job.FileData, subPushSize)
	outScript := script.EncodeSingle(job.Filename, job.FileSize, o.MimeType, chunks)

	rawHex, err := txbuild.BuildAndSign(job.PaymentWIF, job.Network,
		[]txbuild.Input{input},
		[]txbuild.Output{{Script: outScript, Value: 1}})
	if err != nil {
		return o.fail(job, fmt.Sprintf("build single tx: %v", err))
	}

	txid, err := o.Gateway.Broadcast(ctx, rawHex)
	if err != nil {
		return o.fail(job, fmt.Sprintf("broadcast single tx: %v", err))
	}

	if err := o.Store.CompleteUpload(job.ID, txid); err != nil {
		return err
	}
	return nil
}

func (o *Orchestrator) runChunked(ctx context.Context, job *jobstore.Job, utxos []chain.UTXO, maxChunkSize int, log *logrus.Entry) error {
	hasCover := len(job.CoverData) > 0
	coverTxid := ""

	remaining := utxos
	if hasCover {
		covered, newUtxos, txid, err := o.runCoverStep(ctx, job, remaining)
		if err != nil {
			log.WithError(err).Warn("cover step failed, continuing without cover")
		} else if covered {
			coverTxid = txid
			remaining = newUtxos
			sleepCtx(ctx, coverSleep)
		}
	}

	plan := funding.PlanMultiChunk(int(job.FileSize), maxChunkSize, o.FeeRate, hasCover && coverTxid != "")

	selfScript, err := selfLockingScript(job.PaymentWIF, job.Network)
	if err != nil {
		return o.fail(job, err.Error())
	}
	splitInput, err := o.largestUTXOAsInput(remaining, selfScript)
	if err != nil {
		return o.fail(job, err.Error())
	}

	o.progress(job, 10, "splitting funding outputs")

	splitHex, err := funding.BuildSplitTx(job.PaymentWIF, job.Network,
		funding.UTXO{Txid: splitInput.PrevTxid, Vout: splitInput.Vout, Value: splitInput.Value, Script: splitInput.LockingScript},
		plan.SplitOutputs, plan.PerOutputFunding, o.FeeRate)
	if err != nil {
		return o.fail(job, fmt.Sprintf("build split tx: %v", err))
	}
	splitTxid, err := o.Gateway.Broadcast(ctx, splitHex)
	if err != nil {
		return o.fail(job, fmt.Sprintf("broadcast split tx: %v", err))
	}
	sleepCtx(ctx, splitSleep)

	chunkTxids := make([]string, plan.ChunksNeeded)
	for i := 0; i < plan.ChunksNeeded; i++ {
		chunkBytes := sliceChunk(job.FileData, maxChunkSize, i)

		txid, err := o.broadcastChunkWithRetry(ctx, job, splitTxid, uint32(i), plan.PerOutputFunding, selfScript, i, chunkBytes)
		if err != nil {
			return o.fail(job, fmt.Sprintf("chunk %d failed after retries: %v", i, err))
		}
		chunkTxids[i] = txid

		pct := 10 + (70 * float64(i+1) / float64(plan.ChunksNeeded))
		o.progress(job, pct, fmt.Sprintf("broadcast chunk %d/%d", i+1, plan.ChunksNeeded))

		if i < plan.ChunksNeeded-1 {
			sleepCtx(ctx, interChunkSleep)
		}
	}

	o.progress(job, 85, "building manifest")

	manifestInput := txbuild.Input{
		PrevTxid:      splitTxid,
		Vout:          uint32(plan.ChunksNeeded),
		Value:         plan.PerOutputFunding,
		LockingScript: selfScript,
	}
	manifestScript := script.EncodeManifest(job.Filename, job.FileSize, o.MimeType, chunkTxids,
		job.TrackTitle, job.Artist, job.Lyrics, coverTxid)

	manifestHex, err := txbuild.BuildAndSign(job.PaymentWIF, job.Network,
		[]txbuild.Input{manifestInput},
		[]txbuild.Output{{Script: manifestScript, Value: 1}})
	if err != nil {
		return o.fail(job, fmt.Sprintf("build manifest tx: %v", err))
	}

	manifestTxid, err := o.Gateway.Broadcast(ctx, manifestHex)
	if err != nil {
		return o.fail(job, fmt.Sprintf("broadcast manifest tx: %v", err))
	}

	return o.Store.CompleteUpload(job.ID, manifestTxid)
}

// runCoverStep broadcasts the cover-art container as its own
// transaction, returning the refreshed UTXO set (the change output,
// if any, becomes a new UTXO for subsequent steps).
func (o *Orchestrator) runCoverStep(ctx context.Context, job *jobstore.Job, utxos []chain.UTXO) (bool, []chain.UTXO, string, error) {
	selfScript, err := selfLockingScript(job.PaymentWIF, job.Network)
	if err != nil {
		return false, utxos, "", err
	}
	input, err := o.largestUTXOAsInput(utxos, selfScript)
	if err != nil {
		return false, utxos, "", err
	}

	const coverPushSize = 100 * 1024
	coverScript := script.EncodeCover(splitBytes(job.CoverData, coverPushSize))

	const dust = 546
	outputs := []txbuild.Output{{Script: coverScript, Value: 1}}
	residual := input.Value - 1
	if residual > dust {
		outputs = append(outputs, txbuild.Output{Script: selfScript, Value: residual})
	}

	rawHex, err := txbuild.BuildAndSign(job.PaymentWIF, job.Network, []txbuild.Input{input}, outputs)
	if err != nil {
		return false, utxos, "", err
	}
	txid, err := o.Gateway.Broadcast(ctx, rawHex)
	if err != nil {
		return false, utxos, "", err
	}

	newUtxos := removeUTXO(utxos, input.PrevTxid, input.Vout)
	if len(outputs) == 2 {
		newUtxos = append(newUtxos, chain.UTXO{Txid: txid, Vout: 1, Value: outputs[1].Value})
	}
	return true, newUtxos, txid, nil
}

// broadcastChunkWithRetry builds and broadcasts chunk i, retrying
// transient failures with exponential backoff 1/2/4/8s up to 5 total
// attempts, per §4.5 step 4.
func (o *Orchestrator) broadcastChunkWithRetry(ctx context.Context, job *jobstore.Job, splitTxid string, vout uint32, value int64, selfScript []byte, index int, data []byte) (string, error) {
	chunkScript := script.EncodeChunk(index, data)
	in := txbuild.Input{PrevTxid: splitTxid, Vout: vout, Value: value, LockingScript: selfScript}

	rawHex, err := txbuild.BuildAndSign(job.PaymentWIF, job.Network, []txbuild.Input{in},
		[]txbuild.Output{{Script: chunkScript, Value: 1}})
	if err != nil {
		return "", err
	}

	var txid string
	attempt := 0
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0
	bo.RandomizationFactor = 0

	op := func() error {
		attempt++
		t, err := o.Gateway.Broadcast(ctx, rawHex)
		if err != nil {
			if attempt >= maxChunkRetries {
				return backoff.Permanent(err)
			}
			return err
		}
		txid = t
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, maxChunkRetries-1), ctx)); err != nil {
		return "", err
	}
	return txid, nil
}

func (o *Orchestrator) fail(job *jobstore.Job, message string) error {
	o.Log.WithField("job_id", job.ID).Error(message)
	return o.Store.UpdateError(job.ID, message)
}

func (o *Orchestrator) progress(job *jobstore.Job, pct float64, message string) {
	if err := o.Store.UpdateProgress(job.ID, pct, message); err != nil {
		o.Log.WithError(err).Warn("failed to persist progress")
	}
}

// largestUTXOAsInput picks the highest-value UTXO as the next spend.
// Every funding UTXO in this flow pays the job's own address, so the
// caller-supplied lockingScript (derived once from the job's key) is
// the correct scriptCode for every input built this way.
func (o *Orchestrator) largestUTXOAsInput(utxos []chain.UTXO, lockingScript []byte) (txbuild.Input, error) {
	if len(utxos) == 0 {
		return txbuild.Input{}, fmt.Errorf("%w: no utxos available", apperr.ErrInsufficientFunds)
	}
	best := utxos[0]
	for _, u := range utxos[1:] {
		if u.Value > best.Value {
			best = u
		}
	}
	return txbuild.Input{PrevTxid: best.Txid, Vout: best.Vout, Value: best.Value, LockingScript: lockingScript}, nil
}

func selfLockingScript(wif, network string) ([]byte, error) {
	priv, _, err := txbuild.WIFToPrivKey(wif)
	if err != nil {
		return nil, err
	}
	addr := txbuild.PubKeyToAddress(priv.PubKey().SerializeCompressed(), network)
	return script.EncodeP2PKH(addr)
}

func splitBytes(data []byte, chunkSize int) [][]byte {
	if len(data) == 0 {
		return [][]byte{{}}
	}
	var out [][]byte
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		out = append(out, data[i:end])
	}
	return out
}

func sliceChunk(data []byte, chunkSize, index int) []byte {
	start := index * chunkSize
	end := start + chunkSize
	if end > len(data) {
		end = len(data)
	}
	if start > len(data) {
		start = len(data)
	}
	return data[start:end]
}

func removeUTXO(utxos []chain.UTXO, txid string, vout uint32) []chain.UTXO {
	out := make([]chain.UTXO, 0, len(utxos))
	for _, u := range utxos {
		if u.Txid == txid && u.Vout == vout {
			continue
		}
		out = append(out, u)
	}
	return out
}
