package upload

import (
	"context"
	"time"
)

// sleepCtx sleeps for d or returns early if ctx is cancelled, so a
// dropped task does not hang past its cancellation per §5's
// cancellation model.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
