/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the payments-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jamii/payments-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// User methods
	// Resolve internal UUID from the auth subject (e.g., "user_abc123").
	FindUserIDByAuthSubject(ctx context.Context, authSubject string) (string, error)
	// FindHelperTierID returns the tier id on the helper's profile.
	FindHelperTierID(ctx context.Context, helperID uuid.UUID) (string, error)

	// Transaction methods
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error)
	// MarkTransactionHeld moves pending -> held after a successful capture.
	MarkTransactionHeld(ctx context.Context, transactionID uuid.UUID, processorChargeID string) error
	// MarkTransactionFailed moves pending -> failed with the processor's reason.
	MarkTransactionFailed(ctx context.Context, transactionID uuid.UUID, failureReason string) error
	// MarkTransactionCompleted moves held -> completed (payout becomes available).
	MarkTransactionCompleted(ctx context.Context, transactionID uuid.UUID, completedAt time.Time) error
	// MarkTransactionRefunded moves held -> refunded.
	MarkTransactionRefunded(ctx context.Context, transactionID uuid.UUID, refundedAt time.Time) error
	ListTransactionsByCustomer(ctx context.Context, customerID uuid.UUID, opts domain.TransactionListOptions) ([]domain.Transaction, error)
	ListTransactionsByHelper(ctx context.Context, helperID uuid.UUID, opts domain.TransactionListOptions) ([]domain.Transaction, error)
	// ListStalePendingTransactions returns pending rows created before the cutoff.
	ListStalePendingTransactions(ctx context.Context, cutoff time.Time, limit int) ([]domain.Transaction, error)

	// Payment method methods
	ListPaymentMethodsByUser(ctx context.Context, userID uuid.UUID) ([]domain.PaymentMethod, error)
	FindPaymentMethodByID(ctx context.Context, methodID uuid.UUID, userID uuid.UUID) (*domain.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, method *domain.PaymentMethod) error
	DeletePaymentMethod(ctx context.Context, methodID uuid.UUID, userID uuid.UUID) (bool, error)
	SetDefaultPaymentMethod(ctx context.Context, methodID uuid.UUID, userID uuid.UUID) error
}
