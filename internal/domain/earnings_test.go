package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func completedTx(helperID uuid.UUID, amount, payout Cents, completedAt time.Time) Transaction {
	at := completedAt
	return Transaction{
		ID:           uuid.New(),
		HelperID:     helperID,
		Amount:       amount,
		HelperPayout: payout,
		Status:       StatusCompleted,
		CompletedAt:  &at,
	}
}

func TestAggregateEarnings_MixedHistory(t *testing.T) {
	helperID := uuid.New()
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	transactions := []Transaction{
		// Three completed jobs: $90.00, $45.00, $22.50 gross with 10% fee taken.
		completedTx(helperID, 9000, 8100, base),
		completedTx(helperID, 4500, 4050, base.Add(48*time.Hour)),
		completedTx(helperID, 2250, 2025, base.Add(24*time.Hour)),
		// One held job: $30.00 gross, $27.00 payout pending release.
		{ID: uuid.New(), HelperID: helperID, Amount: 3000, HelperPayout: 2700, Status: StatusHeld},
	}

	summary := AggregateEarnings(transactions, helperID)

	if summary.TotalEarnings != 15750 {
		t.Errorf("expected total earnings 15750, got %d", summary.TotalEarnings)
	}
	if summary.NetEarnings != 14175 {
		t.Errorf("expected net earnings 14175, got %d", summary.NetEarnings)
	}
	if summary.AvailableBalance != 14175 {
		t.Errorf("expected available balance 14175, got %d", summary.AvailableBalance)
	}
	if summary.PendingBalance != 2700 {
		t.Errorf("expected pending balance 2700, got %d", summary.PendingBalance)
	}
	if summary.TotalTransactions != 4 {
		t.Errorf("expected 4 transactions, got %d", summary.TotalTransactions)
	}
	want := base.Add(48 * time.Hour)
	if summary.LastPayoutAt == nil || !summary.LastPayoutAt.Equal(want) {
		t.Errorf("expected last payout at %v, got %v", want, summary.LastPayoutAt)
	}
}

func TestAggregateEarnings_IgnoresOtherHelpers(t *testing.T) {
	helperID := uuid.New()
	other := uuid.New()
	transactions := []Transaction{
		completedTx(helperID, 5000, 4500, time.Now()),
		completedTx(other, 99999, 99999, time.Now()),
	}

	summary := AggregateEarnings(transactions, helperID)
	if summary.TotalEarnings != 5000 {
		t.Errorf("expected total 5000, got %d", summary.TotalEarnings)
	}
	if summary.TotalTransactions != 1 {
		t.Errorf("expected 1 transaction, got %d", summary.TotalTransactions)
	}
}

func TestAggregateEarnings_FailedAndRefundedExcludedFromBalances(t *testing.T) {
	helperID := uuid.New()
	transactions := []Transaction{
		{ID: uuid.New(), HelperID: helperID, Amount: 4000, HelperPayout: 3600, Status: StatusFailed},
		{ID: uuid.New(), HelperID: helperID, Amount: 6000, HelperPayout: 5400, Status: StatusRefunded},
	}

	summary := AggregateEarnings(transactions, helperID)
	if summary.TotalEarnings != 0 || summary.NetEarnings != 0 || summary.PendingBalance != 0 || summary.AvailableBalance != 0 {
		t.Errorf("expected zero balances, got %+v", summary)
	}
	if summary.TotalTransactions != 2 {
		t.Errorf("expected both rows counted, got %d", summary.TotalTransactions)
	}
}

func TestAggregateEarnings_IsPure(t *testing.T) {
	helperID := uuid.New()
	transactions := []Transaction{
		completedTx(helperID, 9000, 8100, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)),
		{ID: uuid.New(), HelperID: helperID, Amount: 3000, HelperPayout: 2700, Status: StatusPending},
	}

	first := AggregateEarnings(transactions, helperID)
	second := AggregateEarnings(transactions, helperID)
	if first.TotalEarnings != second.TotalEarnings ||
		first.NetEarnings != second.NetEarnings ||
		first.PendingBalance != second.PendingBalance ||
		first.AvailableBalance != second.AvailableBalance ||
		first.TotalTransactions != second.TotalTransactions {
		t.Errorf("expected identical summaries, got %+v and %+v", first, second)
	}
	if (first.LastPayoutAt == nil) != (second.LastPayoutAt == nil) ||
		(first.LastPayoutAt != nil && !first.LastPayoutAt.Equal(*second.LastPayoutAt)) {
		t.Errorf("expected identical last payout, got %v and %v", first.LastPayoutAt, second.LastPayoutAt)
	}
}

func TestAggregateEarnings_EmptyList(t *testing.T) {
	summary := AggregateEarnings(nil, uuid.New())
	if summary.TotalTransactions != 0 || summary.LastPayoutAt != nil {
		t.Errorf("expected zero summary, got %+v", summary)
	}
}
