package domain

import "time"

// JobEvent is the message emitted by the jobs surface when both parties
// confirm completion, or when a booking is disputed or cancelled. The
// payments-service consumes these to move escrowed funds.
type JobEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"` // e.g. 'job.completed', 'job.disputed'
	TransactionID string    `json:"transaction_id"`
	BookingID     string    `json:"booking_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PaymentEvent is the payload this service publishes after a capture,
// failure, or refund so messaging and notification surfaces can react.
type PaymentEvent struct {
	TransactionID string    `json:"transaction_id"`
	CustomerID    string    `json:"customer_id"`
	HelperID      string    `json:"helper_id"`
	Status        string    `json:"status"`
	Amount        Cents     `json:"amount"`
	PlatformFee   Cents     `json:"platform_fee"`
	Reason        string    `json:"reason,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
