/**
 * @description
 * This file defines the core domain models for the payments-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Amounts are carried as `Cents` (int64 US cents) so that escrow and fee
 *   arithmetic stays exact; see money.go.
 * - Transaction status strings are the contract shared with the web views;
 *   the transition rules live here so every reader enforces the same lifecycle.
 */

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Transaction statuses. pending -> held -> completed is the happy path;
// held -> refunded and pending -> failed are the alternate terminal edges.
const (
	StatusPending   = "pending"
	StatusHeld      = "held"
	StatusCompleted = "completed"
	StatusRefunded  = "refunded"
	StatusFailed    = "failed"
)

// ErrInvalidTransition is returned when a status change violates the lifecycle.
var ErrInvalidTransition = errors.New("invalid transaction status transition")

// IsTerminalStatus reports whether a transaction in this status accepts no
// further transitions.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusRefunded, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle permits moving from one status
// to another. Same-status replays are not transitions and return false.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusHeld || to == StatusFailed
	case StatusHeld:
		return to == StatusCompleted || to == StatusRefunded
	}
	return false
}

// Transaction is the record of one paid job booking. It maps directly to the
// `transactions` table.
type Transaction struct {
	ID                uuid.UUID  `json:"id"`
	CustomerID        uuid.UUID  `json:"customer_id"`
	HelperID          uuid.UUID  `json:"helper_id"`
	ServiceID         string     `json:"service_id"`
	BookingID         *uuid.UUID `json:"booking_id,omitempty"`
	Amount            Cents      `json:"amount"`
	PlatformFee       Cents      `json:"platform_fee"`
	HelperPayout      Cents      `json:"helper_payout"`
	TotalAmount       Cents      `json:"total_amount"`
	Status            string     `json:"status"`
	PaymentMethod     *string    `json:"payment_method,omitempty"` // display ref (brand/last4), never raw card data
	ProcessorChargeID *string    `json:"processor_charge_id,omitempty"`
	FailureReason     *string    `json:"failure_reason,omitempty"`
	CustomerName      *string    `json:"customer_name,omitempty"`
	HelperName        *string    `json:"helper_name,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	RefundedAt        *time.Time `json:"refunded_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ApplyStatus mutates the transaction's status after checking the lifecycle.
// Terminal states reject every change; callers treat a returned
// ErrInvalidTransition as an anomaly to log, never to coerce.
func (t *Transaction) ApplyStatus(to string, at time.Time) error {
	if !CanTransition(t.Status, to) {
		return ErrInvalidTransition
	}
	t.Status = to
	switch to {
	case StatusCompleted:
		t.CompletedAt = &at
	case StatusRefunded:
		t.RefundedAt = &at
	}
	t.UpdatedAt = at
	return nil
}

// NewCard carries raw card entry fields from a checkout form. It is forwarded
// to the processor for tokenization and never persisted.
type NewCard struct {
	CardNumber string `json:"cardNumber"`
	ExpMonth   string `json:"expMonth"`
	ExpYear    string `json:"expYear"`
	CVV        string `json:"cvv"`
	ZipCode    string `json:"zipCode"`
}

// JobDetails describes the booked job on a charge request.
type JobDetails struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Urgency     string `json:"urgency"`
}

// ProcessPaymentRequest is the DTO for the charge endpoint. Either
// PaymentMethodID (a saved method) or NewCard must be supplied. The client
// echoes its displayed fee figures; the service recomputes them from the
// helper's tier and treats its own numbers as canonical.
type ProcessPaymentRequest struct {
	HelperID        uuid.UUID  `json:"helperId"`
	ServiceID       string     `json:"serviceId"`
	Amount          Cents      `json:"amount"`
	PlatformFee     Cents      `json:"platformFee"`
	TotalAmount     Cents      `json:"totalAmount"`
	PaymentMethodID *uuid.UUID `json:"paymentMethodId,omitempty"`
	NewCard         *NewCard   `json:"newCard,omitempty"`
	TermsAccepted   bool       `json:"termsAccepted"`
	JobDetails      JobDetails `json:"jobDetails"`
}

// ProcessPaymentResponse is returned to the checkout view after a charge attempt.
type ProcessPaymentResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Amount        Cents  `json:"amount"`
	PlatformFee   Cents  `json:"platformFee"`
	TotalAmount   Cents  `json:"totalAmount"`
	Message       string `json:"message,omitempty"`
}

// PaymentMethod is a saved, tokenized card on file. Only display metadata
// lives in our database; the processor holds the actual card.
type PaymentMethod struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"-"`
	ProcessorToken string    `json:"-"`
	Brand          string    `json:"brand"`
	Last4          string    `json:"last4"`
	ExpMonth       int       `json:"exp_month"`
	ExpYear        int       `json:"exp_year"`
	BillingZip     string    `json:"-"`
	IsDefault      bool      `json:"is_default"`
	CreatedAt      time.Time `json:"created_at"`
}

// TransactionListOptions controls filtering for transaction history reads.
type TransactionListOptions struct {
	Status string
	Search string
	Limit  int
	Offset int
}
