// Package watcher implements the payment watcher half of C7: a
// long-lived loop that polls funding addresses and spawns per-job
// upload/download processing once a job is funded.
package watcher

import (
	"context"
	"time"

	"github.com/BitcoinPay-Labs/flacstore/internal/chain"
	"github.com/BitcoinPay-Labs/flacstore/internal/config"
	"github.com/BitcoinPay-Labs/flacstore/internal/download"
	"github.com/BitcoinPay-Labs/flacstore/internal/jobstore"
	"github.com/BitcoinPay-Labs/flacstore/internal/upload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// pollPeriod is the watcher's loop period; 3-5s is implementer choice
// per §4.7, fixed here at 4s.
const pollPeriod = 4 * time.Second

// GatewayFactory resolves the Chain Gateway to use for a job, keyed by
// its network tag, per §4.7 step 2.
type GatewayFactory func(network string) chain.Gateway

// Watcher is the single long-lived payment-poll task.
type Watcher struct {
	Store          *jobstore.Store
	Cfg            *config.Config
	GatewayFor     GatewayFactory
	Log            *logrus.Entry
	MaterializeDir string
	MimeType       string
}

// Run blocks, polling every pollPeriod until ctx is cancelled. Each
// tick checks its awaiting-payment jobs concurrently, one errgroup
// goroutine per job, and waits for all of them, including any upload
// or download run they start, before the next poll; a job funded in
// the meantime is picked up only after that. A panic in one job's
// processing is recovered in processOne and moves that job to Failed.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	jobs, err := w.Store.ListByState(jobstore.StateAwaitingPayment)
	if err != nil {
		w.Log.WithError(err).Error("list awaiting-payment jobs")
		return
	}

	var g errgroup.Group
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			w.processOne(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
}

// processOne is idempotent: a job already in Processing or terminal by
// the time this runs (e.g. concurrently funded and dispatched by a
// prior tick) is ignored, per §4.7's idempotence requirement.
func (w *Watcher) processOne(ctx context.Context, job *jobstore.Job) {
	defer func() {
		if r := recover(); r != nil {
			w.Log.WithField("job_id", job.ID).Errorf("recovered panic processing job: %v", r)
			_ = w.Store.UpdateError(job.ID, "internal error during processing")
		}
	}()

	fresh, ok, err := w.Store.Get(job.ID)
	if err != nil || !ok || fresh.State != jobstore.StateAwaitingPayment {
		return
	}

	gw := w.GatewayFor(job.Network)

	funded, err := w.isFunded(ctx, gw, job)
	if err != nil {
		w.Log.WithField("job_id", job.ID).WithError(err).Warn("balance check failed")
		return
	}
	if !funded {
		return
	}

	if err := w.Store.UpdateState(job.ID, jobstore.StateProcessing, "payment received, processing"); err != nil {
		w.Log.WithField("job_id", job.ID).WithError(err).Error("transition to processing")
		return
	}
	job.State = jobstore.StateProcessing

	if job.Kind.IsUpload() {
		o := &upload.Orchestrator{
			Gateway:  gw,
			Store:    w.Store,
			Log:      w.Log,
			FeeRate:  w.Cfg.FeeRate(),
			MimeType: w.MimeType,
		}
		if err := o.Run(ctx, job); err != nil {
			w.Log.WithField("job_id", job.ID).WithError(err).Error("upload orchestrator")
		}
		return
	}

	d := &download.Orchestrator{
		Gateway:        gw,
		Store:          w.Store,
		Log:            w.Log,
		MaterializeDir: w.MaterializeDir,
	}
	if err := d.Run(ctx, job); err != nil {
		w.Log.WithField("job_id", job.ID).WithError(err).Error("download orchestrator")
	}
}

// isFunded checks the job's funding address per §4.7 step 3: at least
// one unspent output for upload jobs, or admin_paid bypassing the
// check entirely.
func (w *Watcher) isFunded(ctx context.Context, gw chain.Gateway, job *jobstore.Job) (bool, error) {
	if job.AdminPaid {
		return true, nil
	}
	utxos, err := gw.ListUnspent(ctx, job.PaymentAddress)
	if err != nil {
		return false, err
	}
	return len(utxos) > 0, nil
}
