package download

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/BitcoinPay-Labs/flacstore/internal/chain/chaintest"
	"github.com/BitcoinPay-Labs/flacstore/internal/jobstore"
	"github.com/BitcoinPay-Labs/flacstore/internal/script"
	"github.com/sirupsen/logrus"
)

func seedTx(t *testing.T, fake *chaintest.Fake, outputs []script.TxOut) string {
	t.Helper()
	tx := &script.Tx{Version: 1, Outputs: outputs, Locktime: 0}
	raw := tx.Serialize()
	txid := tx.Txid()
	fake.RawTxByTxid[txid] = hex.EncodeToString(raw)
	return txid
}

func TestDownloadOrchestratorReconstructsFromManifest(t *testing.T) {
	fake := chaintest.New()

	chunk0 := seedTx(t, fake, []script.TxOut{{Value: 1, Script: script.EncodeChunk(0, []byte("hello "))}})
	chunk1 := seedTx(t, fake, []script.TxOut{{Value: 1, Script: script.EncodeChunk(1, []byte("world"))}})
	manifestScript := script.EncodeManifest("out.flac", 11, "audio/flac", []string{chunk0, chunk1}, "Title", "Artist", "lyrics", "")
	manifestTxid := seedTx(t, fake, []script.TxOut{{Value: 1, Script: manifestScript}})

	dir := t.TempDir()
	store, err := jobstore.Open(":memory:")
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	job := jobstore.NewDownload(jobstore.KindFlacDownload, manifestTxid, "mainnet")
	if err := store.Insert(job); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	o := &Orchestrator{Gateway: fake, Store: store, Log: logrus.NewEntry(logrus.New()), MaterializeDir: dir}
	if err := o.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, _, err := store.Get(job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != jobstore.StateComplete {
		t.Fatalf("expected Complete, got %s (message: %s)", got.State, got.Message)
	}
	if got.Filename != "out.flac" || got.TrackTitle != "Title" || got.Artist != "Artist" {
		t.Fatalf("unexpected job metadata: %+v", got)
	}

	written, err := os.ReadFile(filepath.Join(dir, job.ID, "out.flac"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(written) != "hello world" {
		t.Fatalf("got=%q want=%q", written, "hello world")
	}
}

func TestDownloadOrchestratorHandlesLegacyOpReturn(t *testing.T) {
	fake := chaintest.New()
	legacyScript := script.EncodeOpReturn("audio/mpeg", "legacy.mp3", []byte("legacy bytes"))
	txid := seedTx(t, fake, []script.TxOut{{Value: 0, Script: legacyScript}})

	dir := t.TempDir()
	store, err := jobstore.Open(":memory:")
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	job := jobstore.NewDownload(jobstore.KindFlacDownload, txid, "mainnet")
	if err := store.Insert(job); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	o := &Orchestrator{Gateway: fake, Store: store, Log: logrus.NewEntry(logrus.New()), MaterializeDir: dir}
	if err := o.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, _, _ := store.Get(job.ID)
	if got.State != jobstore.StateComplete || got.Filename != "legacy.mp3" {
		t.Fatalf("unexpected job after legacy decode: %+v", got)
	}
}

func TestDownloadOrchestratorSanitizesManifestFilename(t *testing.T) {
	fake := chaintest.New()

	chunk0 := seedTx(t, fake, []script.TxOut{{Value: 1, Script: script.EncodeChunk(0, []byte("payload"))}})
	manifestScript := script.EncodeManifest("../../../etc/passwd", 7, "audio/flac", []string{chunk0}, "", "", "", "")
	manifestTxid := seedTx(t, fake, []script.TxOut{{Value: 1, Script: manifestScript}})

	dir := t.TempDir()
	store, err := jobstore.Open(":memory:")
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	job := jobstore.NewDownload(jobstore.KindFlacDownload, manifestTxid, "mainnet")
	if err := store.Insert(job); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	o := &Orchestrator{Gateway: fake, Store: store, Log: logrus.NewEntry(logrus.New()), MaterializeDir: dir}
	if err := o.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, _, err := store.Get(job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != jobstore.StateComplete {
		t.Fatalf("expected Complete, got %s (message: %s)", got.State, got.Message)
	}
	if got.Filename != "passwd" {
		t.Fatalf("expected sanitized filename %q, got %q", "passwd", got.Filename)
	}

	written, err := os.ReadFile(filepath.Join(dir, job.ID, "passwd"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(written) != "payload" {
		t.Fatalf("got=%q want=%q", written, "payload")
	}

	if _, err := os.Stat(filepath.Join(dir, "..", "..", "..", "etc", "passwd")); err == nil {
		t.Fatalf("manifest filename must not have escaped the materialize directory")
	}
}

func TestDownloadOrchestratorRejectsManifestFilenameThatIsAllTraversal(t *testing.T) {
	fake := chaintest.New()

	chunk0 := seedTx(t, fake, []script.TxOut{{Value: 1, Script: script.EncodeChunk(0, []byte("payload"))}})
	manifestScript := script.EncodeManifest("..", 7, "audio/flac", []string{chunk0}, "", "", "", "")
	manifestTxid := seedTx(t, fake, []script.TxOut{{Value: 1, Script: manifestScript}})

	store, err := jobstore.Open(":memory:")
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	job := jobstore.NewDownload(jobstore.KindFlacDownload, manifestTxid, "mainnet")
	if err := store.Insert(job); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	o := &Orchestrator{Gateway: fake, Store: store, Log: logrus.NewEntry(logrus.New()), MaterializeDir: t.TempDir()}
	if err := o.Run(context.Background(), job); err != nil {
		t.Fatalf("Run should record failure, not return an error: %v", err)
	}
	got, _, _ := store.Get(job.ID)
	if got.State != jobstore.StateFailed {
		t.Fatalf("expected Failed for a filename of \"..\", got %s", got.State)
	}
}

func TestDownloadOrchestratorFailsOnUnrecognizableScript(t *testing.T) {
	fake := chaintest.New()
	txid := seedTx(t, fake, []script.TxOut{{Value: 0, Script: []byte{0x51, 0x52, 0x53}}})

	store, err := jobstore.Open(":memory:")
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	job := jobstore.NewDownload(jobstore.KindFlacDownload, txid, "mainnet")
	if err := store.Insert(job); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	o := &Orchestrator{Gateway: fake, Store: store, Log: logrus.NewEntry(logrus.New()), MaterializeDir: t.TempDir()}
	if err := o.Run(context.Background(), job); err != nil {
		t.Fatalf("Run should record failure, not return an error: %v", err)
	}
	got, _, _ := store.Get(job.ID)
	if got.State != jobstore.StateFailed {
		t.Fatalf("expected Failed for an unrecognizable script, got %s", got.State)
	}
}
