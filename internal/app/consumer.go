package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jamii/payments-service/internal/domain"
	"github.com/jamii/payments-service/internal/store"
	"github.com/jamii/payments-service/pkg/rabbitmq"
)

// EscrowConsumer reacts to job lifecycle events from the bookings surface.
// A `job.completed` event releases escrowed funds to the helper; a
// `job.disputed` or `job.cancelled` event refunds the customer. Status is
// mutated exclusively here and in the capture flow; transitions that the
// lifecycle forbids are logged as anomalies and acknowledged, never applied.
type EscrowConsumer struct {
	repo      store.Repository
	processor Processor
	publisher rabbitmq.Publisher
}

func NewEscrowConsumer(repo store.Repository, processor Processor, publisher rabbitmq.Publisher) *EscrowConsumer {
	return &EscrowConsumer{repo: repo, processor: processor, publisher: publisher}
}

// HandleMessage is the RabbitMQ binding entry point. Returning true acks the
// delivery; false re-queues it.
func (c *EscrowConsumer) HandleMessage(body []byte) bool {
	var event domain.JobEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=escrow_consumer msg=\"unparseable event payload; dropping\" err=%v", err)
		return true
	}

	if event.TransactionID == "" {
		log.Printf("level=warn component=escrow_consumer msg=\"event missing transaction id; dropping\" event_type=%s", event.EventType)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.processEvent(ctx, event); err != nil {
		log.Printf("level=error component=escrow_consumer msg=\"event processing failed\" transaction_id=%s event_type=%s err=%v", event.TransactionID, event.EventType, err)
		return false
	}
	return true
}

func (c *EscrowConsumer) processEvent(ctx context.Context, event domain.JobEvent) error {
	transactionID, err := uuid.Parse(event.TransactionID)
	if err != nil {
		log.Printf("level=warn component=escrow_consumer msg=\"malformed transaction id; dropping\" transaction_id=%q", event.TransactionID)
		return nil
	}

	tx, err := c.repo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			log.Printf("level=warn component=escrow_consumer msg=\"no transaction for event; acknowledging\" transaction_id=%s", transactionID)
			return nil
		}
		return fmt.Errorf("lookup transaction: %w", err)
	}

	target := targetStatus(event.EventType)
	if target == "" {
		log.Printf("level=warn component=escrow_consumer msg=\"unhandled event type; dropping\" event_type=%s", event.EventType)
		return nil
	}

	if tx.Status == target {
		// Replay of an already-applied event.
		return nil
	}
	if !domain.CanTransition(tx.Status, target) {
		// A terminal row, or an out-of-order event. Display bug territory:
		// log it, never coerce the stored status.
		log.Printf("level=warn component=escrow_consumer msg=\"illegal status transition ignored\" transaction_id=%s from=%s to=%s event_type=%s", tx.ID, tx.Status, target, event.EventType)
		return nil
	}

	switch target {
	case domain.StatusCompleted:
		return c.release(ctx, tx, event)
	case domain.StatusRefunded:
		return c.refund(ctx, tx, event)
	}
	return nil
}

func targetStatus(eventType string) string {
	switch eventType {
	case "job.completed":
		return domain.StatusCompleted
	case "job.disputed", "job.cancelled":
		return domain.StatusRefunded
	}
	return ""
}

// release settles a held transaction as completed; the helper payout becomes
// available.
func (c *EscrowConsumer) release(ctx context.Context, tx *domain.Transaction, event domain.JobEvent) error {
	completedAt := event.OccurredAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	if err := c.repo.MarkTransactionCompleted(ctx, tx.ID, completedAt); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			log.Printf("level=warn component=escrow_consumer msg=\"completion raced a conflicting status; ignored\" transaction_id=%s status=%s", tx.ID, tx.Status)
			return nil
		}
		return fmt.Errorf("mark completed: %w", err)
	}

	tx.Status = domain.StatusCompleted
	c.publish(ctx, "payment.completed", tx, "")
	return nil
}

// refund returns escrowed funds to the customer via the processor, then
// settles the row as refunded.
func (c *EscrowConsumer) refund(ctx context.Context, tx *domain.Transaction, event domain.JobEvent) error {
	if tx.ProcessorChargeID != nil && c.processor != nil {
		if _, err := c.processor.RefundCharge(ctx, *tx.ProcessorChargeID); err != nil {
			return fmt.Errorf("processor refund: %w", err)
		}
	}

	refundedAt := event.OccurredAt
	if refundedAt.IsZero() {
		refundedAt = time.Now().UTC()
	}

	if err := c.repo.MarkTransactionRefunded(ctx, tx.ID, refundedAt); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			log.Printf("level=warn component=escrow_consumer msg=\"refund raced a conflicting status; ignored\" transaction_id=%s status=%s", tx.ID, tx.Status)
			return nil
		}
		return fmt.Errorf("mark refunded: %w", err)
	}

	tx.Status = domain.StatusRefunded
	c.publish(ctx, "payment.refunded", tx, event.Reason)
	return nil
}

func (c *EscrowConsumer) publish(ctx context.Context, routingKey string, tx *domain.Transaction, reason string) {
	if c.publisher == nil {
		return
	}
	event := domain.PaymentEvent{
		TransactionID: tx.ID.String(),
		CustomerID:    tx.CustomerID.String(),
		HelperID:      tx.HelperID.String(),
		Status:        tx.Status,
		Amount:        tx.Amount,
		PlatformFee:   tx.PlatformFee,
		Reason:        reason,
		Timestamp:     time.Now().UTC(),
	}
	if err := c.publisher.Publish(ctx, EventsExchange, routingKey, event); err != nil {
		log.Printf("level=warn component=escrow_consumer msg=\"event publish failed\" routing_key=%s transaction_id=%s err=%v", routingKey, tx.ID, err)
	}
}
