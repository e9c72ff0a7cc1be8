package app

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jamii/payments-service/internal/domain"
)

func exportFixture() []domain.Transaction {
	helperName := "Grace M."
	customerName := "Kofi A."
	method := "Visa •••• 4242"
	created := time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC)

	return []domain.Transaction{
		{
			ID:            uuid.New(),
			Amount:        10000,
			PlatformFee:   1000,
			HelperPayout:  9000,
			TotalAmount:   11000,
			Status:        domain.StatusCompleted,
			PaymentMethod: &method,
			HelperName:    &helperName,
			CustomerName:  &customerName,
			CreatedAt:     created,
		},
		{
			ID:           uuid.New(),
			Amount:       4500,
			PlatformFee:  450,
			HelperPayout: 4050,
			TotalAmount:  4950,
			Status:       domain.StatusHeld,
			HelperName:   &helperName,
			CustomerName: &customerName,
			CreatedAt:    created.Add(24 * time.Hour),
		},
	}
}

func TestRenderTransactionsCSV_CustomerView(t *testing.T) {
	csv := RenderTransactionsCSV(exportFixture(), "customer")
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")

	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "Date,Person,Amount,Status,Payment Method" {
		t.Errorf("unexpected header: %q", lines[0])
	}

	first := strings.Split(lines[1], ",")
	if len(first) != 5 {
		t.Fatalf("expected 5 cells, got %d: %q", len(first), lines[1])
	}
	if first[1] != "Grace M." {
		t.Errorf("customer view should show the helper, got %q", first[1])
	}
	// Customer amount is the total charged: price plus fee.
	if first[2] != "$110.00" {
		t.Errorf("expected $110.00, got %q", first[2])
	}
	if first[3] != domain.StatusCompleted {
		t.Errorf("expected completed status, got %q", first[3])
	}
	if first[4] != "Visa •••• 4242" {
		t.Errorf("expected payment method cell, got %q", first[4])
	}

	second := strings.Split(lines[2], ",")
	if second[4] != "N/A" {
		t.Errorf("expected N/A for a missing payment method, got %q", second[4])
	}
}

func TestRenderTransactionsCSV_HelperViewShowsPayout(t *testing.T) {
	csv := RenderTransactionsCSV(exportFixture(), "helper")
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")

	first := strings.Split(lines[1], ",")
	if first[1] != "Kofi A." {
		t.Errorf("helper view should show the customer, got %q", first[1])
	}
	if first[2] != "$90.00" {
		t.Errorf("expected payout $90.00, got %q", first[2])
	}
}

func TestRenderTransactionsCSV_StripsCommasFromCells(t *testing.T) {
	name := "Mensah, Kwame"
	txs := []domain.Transaction{{
		ID:         uuid.New(),
		Amount:     1000,
		Status:     domain.StatusHeld,
		HelperName: &name,
		CreatedAt:  time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}}

	csv := RenderTransactionsCSV(txs, "customer")
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if cells := strings.Split(lines[1], ","); len(cells) != 5 {
		t.Fatalf("comma in a name must not add cells, got %d: %q", len(cells), lines[1])
	}
	if !strings.Contains(lines[1], "Mensah  Kwame") {
		t.Errorf("expected comma replaced with space, got %q", lines[1])
	}
}

func TestRenderTransactionsCSV_EmptyListIsHeaderOnly(t *testing.T) {
	csv := RenderTransactionsCSV(nil, "customer")
	if csv != "Date,Person,Amount,Status,Payment Method\n" {
		t.Errorf("expected header-only export, got %q", csv)
	}
}

func TestRenderTransactionsCSV_MissingNameIsUnknown(t *testing.T) {
	txs := []domain.Transaction{{
		ID:        uuid.New(),
		Amount:    1000,
		Status:    domain.StatusHeld,
		CreatedAt: time.Now(),
	}}

	csv := RenderTransactionsCSV(txs, "customer")
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	if cells := strings.Split(lines[1], ","); cells[1] != "Unknown" {
		t.Errorf("expected Unknown person, got %q", cells[1])
	}
}
