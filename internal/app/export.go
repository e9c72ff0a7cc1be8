/**
 * @description
 * CSV export of payment history. Column layout matches the on-screen table:
 * Date, Person, Amount, Status, Payment Method. Cells are comma-joined with
 * commas stripped from free-text values so the row count stays stable.
 */

package app

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jamii/payments-service/internal/domain"
)

var exportHeader = []string{"Date", "Person", "Amount", "Status", "Payment Method"}

const exportDateLayout = "Jan 2 2006 3:04 PM"

// ExportTransactionsCSV renders the caller's filtered history as CSV. In the
// customer role the amount column shows the total charged (price plus fee);
// in the helper role it shows the payout, matching the on-screen figures.
func (s *Service) ExportTransactionsCSV(ctx context.Context, userID uuid.UUID, role string, opts domain.TransactionListOptions) (string, error) {
	transactions, err := s.ListTransactions(ctx, userID, role, opts)
	if err != nil {
		return "", err
	}
	return RenderTransactionsCSV(transactions, role), nil
}

// RenderTransactionsCSV builds the CSV body for an already-fetched list.
func RenderTransactionsCSV(transactions []domain.Transaction, role string) string {
	lines := make([]string, 0, len(transactions)+1)
	lines = append(lines, strings.Join(exportHeader, ","))

	for _, tx := range transactions {
		var person string
		var amount domain.Cents
		if role == "helper" {
			person = nameOrUnknown(tx.CustomerName)
			amount = tx.HelperPayout
		} else {
			person = nameOrUnknown(tx.HelperName)
			amount = tx.Amount + tx.PlatformFee
		}

		method := "N/A"
		if tx.PaymentMethod != nil && *tx.PaymentMethod != "" {
			method = *tx.PaymentMethod
		}

		cells := []string{
			tx.CreatedAt.Format(exportDateLayout),
			sanitizeCell(person),
			amount.FormatUSD(),
			tx.Status,
			sanitizeCell(method),
		}
		lines = append(lines, strings.Join(cells, ","))
	}

	return strings.Join(lines, "\n") + "\n"
}

func nameOrUnknown(name *string) string {
	if name == nil || strings.TrimSpace(*name) == "" {
		return "Unknown"
	}
	return *name
}

func sanitizeCell(value string) string {
	return strings.ReplaceAll(value, ",", " ")
}
