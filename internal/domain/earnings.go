/**
 * @description
 * Client-independent earnings aggregation. Every payments view used to
 * re-derive these totals with its own reduce; this is the single shared
 * implementation.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// EarningsSummary is the derived aggregate over a helper's transaction list.
// It holds no independent identity; it is recomputed on every read.
type EarningsSummary struct {
	TotalEarnings     Cents      `json:"total_earnings"`
	NetEarnings       Cents      `json:"net_earnings"`
	PendingBalance    Cents      `json:"pending_balance"`
	AvailableBalance  Cents      `json:"available_balance"`
	TotalTransactions int        `json:"total_transactions"`
	LastPayoutAt      *time.Time `json:"last_payout_at,omitempty"`
}

// AggregateEarnings reduces a transaction list into an EarningsSummary for
// one helper. The reduction is pure: calling it twice on the same input
// yields identical output. Transactions whose amount fields failed to parse
// contribute zero (see Cents) rather than poisoning the totals.
func AggregateEarnings(transactions []Transaction, helperID uuid.UUID) EarningsSummary {
	var summary EarningsSummary

	for _, tx := range transactions {
		if tx.HelperID != helperID {
			continue
		}
		summary.TotalTransactions++

		switch tx.Status {
		case StatusCompleted:
			summary.TotalEarnings += tx.Amount
			summary.NetEarnings += tx.HelperPayout
			if tx.RefundedAt == nil {
				summary.AvailableBalance += tx.HelperPayout
			}
			if tx.CompletedAt != nil {
				if summary.LastPayoutAt == nil || tx.CompletedAt.After(*summary.LastPayoutAt) {
					at := *tx.CompletedAt
					summary.LastPayoutAt = &at
				}
			}
		case StatusPending, StatusHeld:
			summary.PendingBalance += tx.HelperPayout
		}
	}

	return summary
}
