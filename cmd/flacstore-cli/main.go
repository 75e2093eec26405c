// Command flacstore-cli is the fixture-driven CLI ingress (C11):
// encode/decode/cost tooling around the script codec and funding
// planner, for operators who want to inspect or dry-run without
// standing up the HTTP server. Grounded on the teacher's cmd/cli
// argument-dispatch style: a leading flag selects the mode, results
// are written to out/<name>.json, and errors print to both stdout and
// stderr before a non-zero exit.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BitcoinPay-Labs/flacstore/internal/funding"
	"github.com/BitcoinPay-Labs/flacstore/internal/script"
)

const outDir = "out"

type errorOutput struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func printError(name, message string) {
	out := errorOutput{OK: false, Error: message}
	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
	fmt.Fprintln(os.Stderr, message)
	writeOut(name, data)
	os.Exit(1)
}

func writeOut(name string, data []byte) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(outDir, name+".json"), data, 0o644)
}

func printResult(name string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		printError(name, fmt.Sprintf("marshal result: %v", err))
		return
	}
	fmt.Println(string(data))
	writeOut(name, data)
}

func main() {
	if len(os.Args) < 2 {
		printError("usage", "usage: flacstore-cli --decode <script-hex> | --cost <payload-size> <fee-rate> | --encode-single <file>")
		return
	}

	switch os.Args[1] {
	case "--decode":
		handleDecodeMode()
	case "--cost":
		handleCostMode()
	case "--encode-single":
		handleEncodeSingleMode()
	default:
		printError("usage", fmt.Sprintf("unknown mode %q", os.Args[1]))
	}
}

type decodeResult struct {
	OK       bool             `json:"ok"`
	Kind     string           `json:"kind"`
	Filename string           `json:"filename,omitempty"`
	Size     int              `json:"size,omitempty"`
	Manifest *script.Manifest `json:"manifest,omitempty"`
}

// handleDecodeMode decodes a single raw locking-script hex string
// passed as os.Args[2], trying each container shape in turn.
func handleDecodeMode() {
	if len(os.Args) < 3 {
		printError("decode", "usage: flacstore-cli --decode <script-hex>")
		return
	}
	raw, err := hex.DecodeString(os.Args[2])
	if err != nil {
		printError("decode", fmt.Sprintf("invalid hex: %v", err))
		return
	}

	if manifest, ok := script.DecodeManifest(raw); ok {
		printResult("decode", decodeResult{OK: true, Kind: "manifest", Manifest: manifest})
		return
	}
	if filename, data, ok := script.DecodeSingle(raw); ok {
		printResult("decode", decodeResult{OK: true, Kind: "single", Filename: filename, Size: len(data)})
		return
	}
	if data, ok := script.DecodeChunk(raw); ok {
		printResult("decode", decodeResult{OK: true, Kind: "chunk", Size: len(data)})
		return
	}
	if data, ok := script.DecodeCover(raw); ok {
		printResult("decode", decodeResult{OK: true, Kind: "cover", Size: len(data)})
		return
	}
	if filename, data, ok := script.DecodeOpReturn(raw); ok {
		printResult("decode", decodeResult{OK: true, Kind: "legacy", Filename: filename, Size: len(data)})
		return
	}
	printError("decode", "script does not match any known container shape")
}

type costResult struct {
	OK               bool    `json:"ok"`
	PayloadSize      int     `json:"payload_size"`
	FeeRate          float64 `json:"fee_rate"`
	Chunked          bool    `json:"chunked"`
	RequiredSatoshis int64   `json:"required_satoshis"`
}

// handleCostMode quotes the funding required for a given payload size
// and fee rate, per §4.4's single-tx vs. multi-chunk cost model.
func handleCostMode() {
	if len(os.Args) < 4 {
		printError("cost", "usage: flacstore-cli --cost <payload-size> <fee-rate>")
		return
	}
	var size int
	if _, err := fmt.Sscanf(os.Args[2], "%d", &size); err != nil || size < 0 {
		printError("cost", fmt.Sprintf("invalid payload size %q", os.Args[2]))
		return
	}
	var feeRate float64
	if _, err := fmt.Sscanf(os.Args[3], "%f", &feeRate); err != nil || feeRate <= 0 {
		printError("cost", fmt.Sprintf("invalid fee rate %q", os.Args[3]))
		return
	}

	if size <= funding.DefaultMaxChunkSize {
		required := funding.CalculateUploadCost(size, feeRate)
		printResult("cost", costResult{OK: true, PayloadSize: size, FeeRate: feeRate, Chunked: false, RequiredSatoshis: required})
		return
	}

	plan := funding.PlanMultiChunk(size, funding.DefaultMaxChunkSize, feeRate, false)
	printResult("cost", costResult{OK: true, PayloadSize: size, FeeRate: feeRate, Chunked: true, RequiredSatoshis: plan.Quote()})
}

type encodeSingleResult struct {
	OK         bool   `json:"ok"`
	ScriptHex  string `json:"script_hex"`
	ScriptSize int    `json:"script_size"`
}

// handleEncodeSingleMode reads a small fixture file from disk and
// wraps it in the single-tx container script shape, without touching
// the network, mirroring the teacher's fixture-file CLI mode.
func handleEncodeSingleMode() {
	if len(os.Args) < 3 {
		printError("encode-single", "usage: flacstore-cli --encode-single <file>")
		return
	}
	data, err := os.ReadFile(os.Args[2])
	if err != nil {
		printError("encode-single", fmt.Sprintf("read file: %v", err))
		return
	}
	filename := filepath.Base(os.Args[2])
	out := script.EncodeSingle(filename, int64(len(data)), mimeForExt(filename), [][]byte{data})
	printResult("encode-single", encodeSingleResult{OK: true, ScriptHex: hex.EncodeToString(out), ScriptSize: len(out)})
}

func mimeForExt(filename string) string {
	switch filepath.Ext(filename) {
	case ".flac":
		return "audio/flac"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
