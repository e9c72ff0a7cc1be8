/**
 * @description
 * Scheduled cleanup of stuck captures. A transaction that stays `pending`
 * longer than the capture timeout means the processor call never settled
 * (crash, dropped connection); the reaper fails it so the customer sees a
 * clear "timed out" error instead of a spinner that never resolves.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/jamii/payments-service/internal/domain"
)

const pendingReaperBatchSize = 100

// PendingCaptureReaper marks stale pending transactions as failed.
type PendingCaptureReaper struct {
	service        *Service
	captureTimeout time.Duration
}

// NewPendingCaptureReaper creates the reaper. captureTimeout should exceed
// the processor client's HTTP timeout so an in-flight capture is never reaped.
func NewPendingCaptureReaper(service *Service, captureTimeout time.Duration) *PendingCaptureReaper {
	if captureTimeout <= 0 {
		captureTimeout = 30 * time.Second
	}
	return &PendingCaptureReaper{service: service, captureTimeout: captureTimeout}
}

// Run is the cron entry point. Errors are logged, never fatal; the next tick
// retries whatever this one missed.
func (r *PendingCaptureReaper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().UTC().Add(-r.captureTimeout)
	stale, err := r.service.repo.ListStalePendingTransactions(ctx, cutoff, pendingReaperBatchSize)
	if err != nil {
		log.Printf("level=error component=pending_reaper msg=\"stale pending scan failed\" err=%v", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	failed := 0
	for _, tx := range stale {
		if err := r.service.repo.MarkTransactionFailed(ctx, tx.ID, "Payment capture timed out"); err != nil {
			// A concurrent capture may have just settled this row; the SQL
			// guard refuses the update and we move on.
			log.Printf("level=warn component=pending_reaper msg=\"stale transaction not failed\" transaction_id=%s err=%v", tx.ID, err)
			continue
		}
		tx.Status = domain.StatusFailed
		r.service.publishPaymentEvent(ctx, "payment.failed", &tx, "Payment capture timed out")
		failed++
	}

	log.Printf("level=info component=pending_reaper msg=\"reap pass complete\" scanned=%d failed=%d", len(stale), failed)
}
