/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * related to transactions, payment methods, and helper profiles.
 *
 * @notes
 * - Status transitions are guarded at the SQL level too: every status UPDATE
 *   carries a WHERE clause that names the only legal prior status, so a
 *   terminal row can never be overwritten by a racing or replayed update.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jamii/payments-service/internal/domain"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrHelperProfileNotFound = errors.New("helper profile not found")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	ErrStatusConflict        = errors.New("transaction status conflict")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindUserIDByAuthSubject resolves the internal UUID from the bearer token subject.
func (r *PostgresRepository) FindUserIDByAuthSubject(ctx context.Context, authSubject string) (string, error) {
	var id string
	err := r.db.QueryRow(ctx, "SELECT id FROM users WHERE auth_subject = $1", authSubject).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return id, nil
}

// FindHelperTierID returns the subscription tier recorded on the helper's profile.
func (r *PostgresRepository) FindHelperTierID(ctx context.Context, helperID uuid.UUID) (string, error) {
	var tierID string
	query := `SELECT tier FROM helper_profiles WHERE user_id = $1`
	err := r.db.QueryRow(ctx, query, helperID).Scan(&tierID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", ErrHelperProfileNotFound
		}
		return "", err
	}
	return strings.TrimSpace(tierID), nil
}

// CreateTransaction inserts a new transaction record in `pending` status.
func (r *PostgresRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, customer_id, helper_id, service_id, booking_id,
			amount, platform_fee, helper_payout, total_amount,
			status, payment_method, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		tx.ID, tx.CustomerID, tx.HelperID, tx.ServiceID, tx.BookingID,
		int64(tx.Amount), int64(tx.PlatformFee), int64(tx.HelperPayout), int64(tx.TotalAmount),
		tx.Status, tx.PaymentMethod,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
}

const transactionColumns = `
	t.id, t.customer_id, t.helper_id, t.service_id, t.booking_id,
	t.amount, t.platform_fee, t.helper_payout, t.total_amount,
	t.status, t.payment_method, t.processor_charge_id, t.failure_reason,
	c.full_name, h.full_name,
	t.created_at, t.completed_at, t.refunded_at, t.updated_at
`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amount, platformFee, helperPayout, totalAmount int64
	err := row.Scan(
		&tx.ID, &tx.CustomerID, &tx.HelperID, &tx.ServiceID, &tx.BookingID,
		&amount, &platformFee, &helperPayout, &totalAmount,
		&tx.Status, &tx.PaymentMethod, &tx.ProcessorChargeID, &tx.FailureReason,
		&tx.CustomerName, &tx.HelperName,
		&tx.CreatedAt, &tx.CompletedAt, &tx.RefundedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.Amount = domain.Cents(amount)
	tx.PlatformFee = domain.Cents(platformFee)
	tx.HelperPayout = domain.Cents(helperPayout)
	tx.TotalAmount = domain.Cents(totalAmount)
	return &tx, nil
}

// FindTransactionByID retrieves a single transaction with party display names.
func (r *PostgresRepository) FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM transactions t
		LEFT JOIN users c ON c.id = t.customer_id
		LEFT JOIN users h ON h.id = t.helper_id
		WHERE t.id = $1
	`, transactionColumns)
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, transactionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// MarkTransactionHeld records a successful capture. Only a pending row qualifies.
func (r *PostgresRepository) MarkTransactionHeld(ctx context.Context, transactionID uuid.UUID, processorChargeID string) error {
	query := `
		UPDATE transactions
		SET status = 'held', processor_charge_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	return r.execStatusUpdate(ctx, query, transactionID, processorChargeID)
}

// MarkTransactionFailed records a capture failure. Only a pending row qualifies.
func (r *PostgresRepository) MarkTransactionFailed(ctx context.Context, transactionID uuid.UUID, failureReason string) error {
	query := `
		UPDATE transactions
		SET status = 'failed', failure_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	return r.execStatusUpdate(ctx, query, transactionID, failureReason)
}

// MarkTransactionCompleted releases escrow. Only a held row qualifies.
func (r *PostgresRepository) MarkTransactionCompleted(ctx context.Context, transactionID uuid.UUID, completedAt time.Time) error {
	query := `
		UPDATE transactions
		SET status = 'completed', completed_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'held'
	`
	return r.execStatusUpdate(ctx, query, transactionID, completedAt)
}

// MarkTransactionRefunded returns escrowed funds. Only a held row qualifies.
func (r *PostgresRepository) MarkTransactionRefunded(ctx context.Context, transactionID uuid.UUID, refundedAt time.Time) error {
	query := `
		UPDATE transactions
		SET status = 'refunded', refunded_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'held'
	`
	return r.execStatusUpdate(ctx, query, transactionID, refundedAt)
}

func (r *PostgresRepository) execStatusUpdate(ctx context.Context, query string, transactionID uuid.UUID, arg interface{}) error {
	tag, err := r.db.Exec(ctx, query, transactionID, arg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the row is missing or it is not in the status the transition
		// requires. Distinguish so callers can log the anomaly precisely.
		var exists bool
		if checkErr := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)", transactionID).Scan(&exists); checkErr != nil {
			return checkErr
		}
		if !exists {
			return ErrTransactionNotFound
		}
		return ErrStatusConflict
	}
	return nil
}

func (r *PostgresRepository) listTransactions(ctx context.Context, partyColumn string, partyID uuid.UUID, searchColumn string, opts domain.TransactionListOptions) ([]domain.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM transactions t
		LEFT JOIN users c ON c.id = t.customer_id
		LEFT JOIN users h ON h.id = t.helper_id
		WHERE t.%s = $1
	`, transactionColumns, partyColumn)

	args := []interface{}{partyID}
	if status := strings.TrimSpace(opts.Status); status != "" && status != "all" {
		args = append(args, status)
		query += fmt.Sprintf(" AND t.status = $%d", len(args))
	}
	if search := strings.TrimSpace(opts.Search); search != "" {
		args = append(args, "%"+search+"%")
		query += fmt.Sprintf(" AND %s.full_name ILIKE $%d", searchColumn, len(args))
	}
	query += " ORDER BY t.created_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}

// ListTransactionsByCustomer returns the customer's charge history, newest first.
func (r *PostgresRepository) ListTransactionsByCustomer(ctx context.Context, customerID uuid.UUID, opts domain.TransactionListOptions) ([]domain.Transaction, error) {
	return r.listTransactions(ctx, "customer_id", customerID, "h", opts)
}

// ListTransactionsByHelper returns the helper's earnings history, newest first.
func (r *PostgresRepository) ListTransactionsByHelper(ctx context.Context, helperID uuid.UUID, opts domain.TransactionListOptions) ([]domain.Transaction, error) {
	return r.listTransactions(ctx, "helper_id", helperID, "c", opts)
}

// ListStalePendingTransactions returns pending transactions created before the cutoff.
func (r *PostgresRepository) ListStalePendingTransactions(ctx context.Context, cutoff time.Time, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM transactions t
		LEFT JOIN users c ON c.id = t.customer_id
		LEFT JOIN users h ON h.id = t.helper_id
		WHERE t.status = 'pending' AND t.created_at < $1
		ORDER BY t.created_at ASC
		LIMIT $2
	`, transactionColumns)

	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}

// ListPaymentMethodsByUser returns a user's saved payment methods, default first.
func (r *PostgresRepository) ListPaymentMethodsByUser(ctx context.Context, userID uuid.UUID) ([]domain.PaymentMethod, error) {
	query := `
		SELECT id, user_id, processor_token, brand, last4, exp_month, exp_year, billing_zip, is_default, created_at
		FROM payment_methods
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []domain.PaymentMethod
	for rows.Next() {
		var m domain.PaymentMethod
		if err := rows.Scan(&m.ID, &m.UserID, &m.ProcessorToken, &m.Brand, &m.Last4, &m.ExpMonth, &m.ExpYear, &m.BillingZip, &m.IsDefault, &m.CreatedAt); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// FindPaymentMethodByID retrieves one saved method, scoped to its owner.
func (r *PostgresRepository) FindPaymentMethodByID(ctx context.Context, methodID uuid.UUID, userID uuid.UUID) (*domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	query := `
		SELECT id, user_id, processor_token, brand, last4, exp_month, exp_year, billing_zip, is_default, created_at
		FROM payment_methods
		WHERE id = $1 AND user_id = $2
	`
	err := r.db.QueryRow(ctx, query, methodID, userID).Scan(
		&m.ID, &m.UserID, &m.ProcessorToken, &m.Brand, &m.Last4, &m.ExpMonth, &m.ExpYear, &m.BillingZip, &m.IsDefault, &m.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}
	return &m, nil
}

// CreatePaymentMethod stores tokenized card metadata. The first method a user
// saves becomes their default.
func (r *PostgresRepository) CreatePaymentMethod(ctx context.Context, method *domain.PaymentMethod) error {
	query := `
		INSERT INTO payment_methods (id, user_id, processor_token, brand, last4, exp_month, exp_year, billing_zip, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
			NOT EXISTS (SELECT 1 FROM payment_methods WHERE user_id = $2), NOW())
		RETURNING is_default, created_at
	`
	return r.db.QueryRow(ctx, query,
		method.ID, method.UserID, method.ProcessorToken, method.Brand, method.Last4,
		method.ExpMonth, method.ExpYear, method.BillingZip,
	).Scan(&method.IsDefault, &method.CreatedAt)
}

// DeletePaymentMethod removes a saved method. Returns false when no row matched.
func (r *PostgresRepository) DeletePaymentMethod(ctx context.Context, methodID uuid.UUID, userID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM payment_methods WHERE id = $1 AND user_id = $2", methodID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetDefaultPaymentMethod flips the default flag to the given method atomically.
func (r *PostgresRepository) SetDefaultPaymentMethod(ctx context.Context, methodID uuid.UUID, userID uuid.UUID) error {
	dbTx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer dbTx.Rollback(ctx)

	if _, err := dbTx.Exec(ctx, "UPDATE payment_methods SET is_default = FALSE WHERE user_id = $1", userID); err != nil {
		return err
	}
	tag, err := dbTx.Exec(ctx, "UPDATE payment_methods SET is_default = TRUE WHERE id = $1 AND user_id = $2", methodID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentMethodNotFound
	}
	return dbTx.Commit(ctx)
}
