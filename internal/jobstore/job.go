// Package jobstore persists Job records and the admin config singleton
// (C7's storage half). Grounded on original_source/src/models/job.rs
// for the field set and kind/status variants.
package jobstore

import "time"

// Kind is a tagged variant, not a subclass — dispatch on it directly.
type Kind string

const (
	KindUpload       Kind = "upload"
	KindDownload     Kind = "download"
	KindFlacUpload   Kind = "flac_upload"
	KindFlacDownload Kind = "flac_download"
)

// State is the job lifecycle state, §3/§4.5/§4.6.
type State string

const (
	StateAwaitingPayment State = "awaiting_payment"
	StateProcessing      State = "processing"
	StateComplete        State = "complete"
	StateFailed          State = "failed"
)

// Job is the persisted unit of work. Terminal states (Complete,
// Failed) are immutable once reached; progress is monotonically
// non-decreasing within a single processing attempt.
type Job struct {
	ID    string
	Kind  Kind
	State State

	Filename string
	FileSize int64
	FileData []byte

	PaymentAddress   string
	PaymentWIF       string
	RequiredSatoshis int64
	AdminPaid        bool

	ManifestTxid string
	DownloadLink string

	Message  string
	Progress float64

	CreatedAt time.Time
	UpdatedAt time.Time

	TrackTitle string
	Artist     string
	CoverData  []byte
	CoverTxid  string
	Lyrics     string

	Network string
}

// IsUpload reports whether kind carries payload bytes, an address,
// and a key until Complete/Failed.
func (k Kind) IsUpload() bool {
	return k == KindUpload || k == KindFlacUpload
}

// IsDownload reports whether kind carries a manifest txid.
func (k Kind) IsDownload() bool {
	return k == KindDownload || k == KindFlacDownload
}

// Terminal reports whether s is Complete or Failed.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}
