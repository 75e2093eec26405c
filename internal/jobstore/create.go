package jobstore

import (
	"time"

	"github.com/google/uuid"
)

func newID() string {
	return uuid.New().String()
}

// NewUpload constructs an AwaitingPayment upload job with a freshly
// generated funding keypair and an estimated required amount.
func NewUpload(kind Kind, filename string, data []byte, network, paymentAddress, paymentWIF string, requiredSatoshis int64, title, artist, lyrics string, cover []byte, adminPaid bool) *Job {
	now := time.Now()
	return &Job{
		ID:               newID(),
		Kind:             kind,
		State:            StateAwaitingPayment,
		Filename:         filename,
		FileSize:         int64(len(data)),
		FileData:         data,
		PaymentAddress:   paymentAddress,
		PaymentWIF:       paymentWIF,
		RequiredSatoshis: requiredSatoshis,
		AdminPaid:        adminPaid,
		Message:          "waiting for payment",
		Progress:         0,
		CreatedAt:        now,
		UpdatedAt:        now,
		TrackTitle:       title,
		Artist:           artist,
		CoverData:        cover,
		Lyrics:           lyrics,
		Network:          network,
	}
}

// NewDownload constructs a Processing download job for the given
// manifest txid. Download jobs never pass through AwaitingPayment.
func NewDownload(kind Kind, manifestTxid, network string) *Job {
	now := time.Now()
	return &Job{
		ID:           newID(),
		Kind:         kind,
		State:        StateProcessing,
		ManifestTxid: manifestTxid,
		Message:      "fetching data from blockchain",
		Progress:     0,
		CreatedAt:    now,
		UpdatedAt:    now,
		Network:      network,
	}
}
