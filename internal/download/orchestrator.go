// Package download drives the download state machine (C6): fetch
// manifest -> walk chunk txids -> reassemble -> materialize file.
package download

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BitcoinPay-Labs/flacstore/internal/apperr"
	"github.com/BitcoinPay-Labs/flacstore/internal/chain"
	"github.com/BitcoinPay-Labs/flacstore/internal/jobstore"
	"github.com/BitcoinPay-Labs/flacstore/internal/script"
	"github.com/sirupsen/logrus"
)

const interChunkFetchSleep = 100 * time.Millisecond

// Orchestrator drives a single download job to completion.
type Orchestrator struct {
	Gateway      chain.Gateway
	Store        *jobstore.Store
	Log          *logrus.Entry
	MaterializeDir string
}

// Run fetches the manifest (or legacy) transaction for job.ManifestTxid
// and reconstructs the payload to disk.
func (o *Orchestrator) Run(ctx context.Context, job *jobstore.Job) error {
	rawHex, err := o.Gateway.GetRawTx(ctx, job.ManifestTxid)
	if err != nil {
		return o.fail(job, fmt.Sprintf("fetch manifest tx: %v", err))
	}
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return o.fail(job, fmt.Sprintf("decode manifest tx hex: %v", err))
	}
	tx, err := script.ParseTx(raw)
	if err != nil {
		return o.fail(job, fmt.Sprintf("parse manifest tx: %v", err))
	}

	o.progress(job, 5, "fetched manifest transaction")

	for _, out := range tx.Outputs {
		if manifest, ok := script.DecodeManifest(out.Script); ok {
			return o.reconstructFromManifest(ctx, job, manifest)
		}
	}
	for _, out := range tx.Outputs {
		if filename, data, ok := script.DecodeSingle(out.Script); ok {
			return o.writeAndComplete(job, filename, data, "", "", "", "")
		}
	}
	for _, out := range tx.Outputs {
		if filename, data, ok := script.DecodeOpReturn(out.Script); ok {
			return o.writeAndComplete(job, filename, data, "", "", "", "")
		}
	}

	return o.fail(job, apperr.ErrScriptDecode.Error())
}

func (o *Orchestrator) reconstructFromManifest(ctx context.Context, job *jobstore.Job, manifest *script.Manifest) error {
	var buf bytes.Buffer
	n := len(manifest.ChunkTxids)
	for i, txid := range manifest.ChunkTxids {
		rawHex, err := o.Gateway.GetRawTx(ctx, txid)
		if err != nil {
			return o.fail(job, fmt.Sprintf("fetch chunk %d tx %s: %v", i, txid, err))
		}
		raw, err := hex.DecodeString(rawHex)
		if err != nil {
			return o.fail(job, fmt.Sprintf("decode chunk %d tx hex: %v", i, err))
		}
		chunkTx, err := script.ParseTx(raw)
		if err != nil {
			return o.fail(job, fmt.Sprintf("parse chunk %d tx: %v", i, err))
		}

		found := false
		for _, out := range chunkTx.Outputs {
			if data, ok := script.DecodeChunk(out.Script); ok {
				buf.Write(data)
				found = true
				break
			}
		}
		if !found {
			return o.fail(job, fmt.Sprintf("chunk %d tx %s has no chunk output", i, txid))
		}

		pct := 15 + (75 * float64(i+1) / float64(n))
		o.progress(job, pct, fmt.Sprintf("fetched chunk %d/%d", i+1, n))

		if i < n-1 {
			sleepCtx(ctx, interChunkFetchSleep)
		}
	}

	return o.writeAndComplete(job, manifest.Filename, buf.Bytes(),
		manifest.Title, manifest.Artist, manifest.CoverTxid, manifest.Lyrics)
}

func (o *Orchestrator) writeAndComplete(job *jobstore.Job, filename string, data []byte, title, artist, coverTxid, lyrics string) error {
	o.progress(job, 95, "writing file")

	filename = filepath.Base(filename)
	if filename == "." || filename == ".." || filename == string(filepath.Separator) {
		return o.fail(job, "manifest filename resolves to an empty, root, or parent-directory path")
	}

	dir := filepath.Join(o.MaterializeDir, job.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return o.fail(job, fmt.Sprintf("create materialization dir: %v", err))
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return o.fail(job, fmt.Sprintf("write file: %v", err))
	}

	downloadLink := filepath.Join("/downloads", job.ID, filename)
	return o.Store.CompleteDownload(job.ID, downloadLink, filename, title, artist, coverTxid, lyrics)
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

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
