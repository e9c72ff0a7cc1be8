/**
 * @description
 * This file contains the core business logic for the payments-service. The
 * `Service` struct orchestrates the charge capture flow, coordinating between
 * the database repository, the card processor client, and the message broker.
 *
 * Key features:
 * - Implements the checkout capture flow: validate, create a pending
 *   transaction, issue exactly one processor charge, settle into `held`.
 * - All fee figures are recomputed server-side from the helper's tier; the
 *   client's displayed numbers are advisory only.
 * - Publishes payment lifecycle events to RabbitMQ for other surfaces.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For transaction id generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/processorclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jamii/payments-service/internal/domain"
	"github.com/jamii/payments-service/internal/store"
	"github.com/jamii/payments-service/pkg/processorclient"
	"github.com/jamii/payments-service/pkg/rabbitmq"
)

// EventsExchange is the topic exchange all payment events are published to.
const EventsExchange = "jamii.events"

var (
	// ErrChargeDeclined wraps a processor rejection whose message is safe to
	// show to the paying user.
	ErrChargeDeclined = errors.New("charge declined")
	// ErrRateLimited indicates the customer has exceeded the charge rate limit.
	ErrRateLimited = errors.New("too many charge attempts")
)

// Processor is the subset of the card processor client the service needs.
// Tests substitute a stub to assert that invalid submissions never reach it.
type Processor interface {
	TokenizeCard(ctx context.Context, req processorclient.TokenizeRequest) (*processorclient.TokenizeResponse, error)
	ChargeCard(ctx context.Context, req processorclient.ChargeRequest) (*processorclient.ChargeResponse, error)
	RefundCharge(ctx context.Context, chargeID string) (*processorclient.RefundResponse, error)
}

// ChargeRateLimiter bounds how often one customer may attempt a charge.
type ChargeRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for payments.
type Service struct {
	repo      store.Repository
	processor Processor
	publisher rabbitmq.Publisher

	rateLimiter         ChargeRateLimiter
	chargeRatePerMinute int
}

// NewService creates a new payments service instance.
func NewService(repo store.Repository, processor Processor, publisher rabbitmq.Publisher) *Service {
	return &Service{
		repo:      repo,
		processor: processor,
		publisher: publisher,
	}
}

// SetChargeRateLimiter enables per-customer charge rate limiting.
func (s *Service) SetChargeRateLimiter(limiter ChargeRateLimiter, perMinute int) {
	s.rateLimiter = limiter
	s.chargeRatePerMinute = perMinute
}

// ResolveInternalUserID converts a bearer-token subject (e.g., "user_abc123")
// into the internal UUID used by our database.
func (s *Service) ResolveInternalUserID(ctx context.Context, authSubject string) (string, error) {
	return s.repo.FindUserIDByAuthSubject(ctx, authSubject)
}

// helperTier resolves the helper's fee tier, falling back to the starter tier
// (the flat 10% every booking flow used before tiers existed) when the helper
// has no profile row yet.
func (s *Service) helperTier(ctx context.Context, helperID uuid.UUID) domain.Tier {
	tierID, err := s.repo.FindHelperTierID(ctx, helperID)
	if err != nil {
		if !errors.Is(err, store.ErrHelperProfileNotFound) {
			log.Printf("level=warn component=app msg=\"helper tier lookup failed; defaulting to starter\" helper_id=%s err=%v", helperID, err)
		}
		tier, _ := domain.GetTier(domain.TierStarter)
		return tier
	}
	tier, err := domain.GetTier(tierID)
	if err != nil {
		log.Printf("level=warn component=app msg=\"unknown tier on helper profile; defaulting to starter\" helper_id=%s tier=%q", helperID, tierID)
		tier, _ = domain.GetTier(domain.TierStarter)
	}
	return tier
}

// ProcessPayment runs the full capture flow for one explicit checkout submit.
// Validation happens first and synchronously: an invalid submission returns a
// field-level error and produces no processor traffic. A valid one creates a
// `pending` transaction, issues exactly one charge request, and settles the
// row into `held` or `failed`.
func (s *Service) ProcessPayment(ctx context.Context, customerID uuid.UUID, req domain.ProcessPaymentRequest) (*domain.ProcessPaymentResponse, error) {
	if verr := validatePaymentRequest(req); verr != nil {
		return nil, verr
	}

	if s.rateLimiter != nil && s.chargeRatePerMinute > 0 {
		count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, "charge", customerID.String(), s.chargeRatePerMinute, time.Minute)
		if err != nil {
			// Limiter trouble never blocks a legitimate charge.
			log.Printf("level=warn component=app msg=\"charge rate limiter unavailable\" customer_id=%s err=%v", customerID, err)
		} else if count > s.chargeRatePerMinute {
			return nil, fmt.Errorf("%w: retry in %ds", ErrRateLimited, retryAfter)
		}
	}

	tier := s.helperTier(ctx, req.HelperID)
	platformFee, totalCharge := domain.ComputeCharge(req.Amount, tier.PlatformFeeBps)
	payout := domain.HelperPayout(req.Amount, tier.PlatformFeeBps)

	if (req.PlatformFee != 0 && req.PlatformFee != platformFee) || (req.TotalAmount != 0 && req.TotalAmount != totalCharge) {
		log.Printf("level=warn component=app msg=\"client fee figures disagree with tier computation; using canonical\" customer_id=%s helper_id=%s client_fee=%d fee=%d client_total=%d total=%d",
			customerID, req.HelperID, req.PlatformFee, platformFee, req.TotalAmount, totalCharge)
	}

	// Resolve the charge token before creating the transaction row for a
	// saved method (a pure local read); new-card tokenization is a processor
	// call and so happens after the pending row exists.
	var token, methodDisplay string
	if req.PaymentMethodID != nil {
		method, err := s.repo.FindPaymentMethodByID(ctx, *req.PaymentMethodID, customerID)
		if err != nil {
			if errors.Is(err, store.ErrPaymentMethodNotFound) {
				return nil, &ValidationError{Field: "paymentMethod", Message: "Please select a payment method."}
			}
			return nil, fmt.Errorf("find payment method: %w", err)
		}
		token = method.ProcessorToken
		methodDisplay = fmt.Sprintf("%s •••• %s", method.Brand, method.Last4)
	}

	tx := &domain.Transaction{
		ID:           uuid.New(),
		CustomerID:   customerID,
		HelperID:     req.HelperID,
		ServiceID:    req.ServiceID,
		Amount:       req.Amount,
		PlatformFee:  platformFee,
		HelperPayout: payout,
		TotalAmount:  totalCharge,
		Status:       domain.StatusPending,
	}
	if methodDisplay != "" {
		tx.PaymentMethod = &methodDisplay
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	if req.NewCard != nil {
		month, year, _ := parseExpiry(req.NewCard.ExpMonth, req.NewCard.ExpYear)
		tokenized, err := s.processor.TokenizeCard(ctx, processorclient.TokenizeRequest{
			CardNumber: strings.ReplaceAll(req.NewCard.CardNumber, " ", ""),
			ExpMonth:   month,
			ExpYear:    year,
			CVV:        req.NewCard.CVV,
			BillingZip: req.NewCard.ZipCode,
		})
		if err != nil {
			return s.failCapture(ctx, tx, err)
		}
		token = tokenized.Token
		methodDisplay = fmt.Sprintf("%s •••• %s", tokenized.Brand, tokenized.Last4)
		tx.PaymentMethod = &methodDisplay
	}

	charge, err := s.processor.ChargeCard(ctx, processorclient.ChargeRequest{
		Token:       token,
		Amount:      int64(totalCharge),
		Currency:    "usd",
		Description: fmt.Sprintf("Jamii booking: %s", req.JobDetails.Title),
		Reference:   tx.ID.String(),
	})
	if err != nil {
		return s.failCapture(ctx, tx, err)
	}

	if err := s.repo.MarkTransactionHeld(ctx, tx.ID, charge.ChargeID); err != nil {
		// The processor captured but our row did not move; surface loudly,
		// the reaper must not fail this transaction later.
		log.Printf("level=error component=app msg=\"captured charge could not be marked held\" transaction_id=%s charge_id=%s err=%v", tx.ID, charge.ChargeID, err)
		return nil, fmt.Errorf("record capture: %w", err)
	}
	tx.Status = domain.StatusHeld

	s.publishPaymentEvent(ctx, "payment.captured", tx, "")

	return &domain.ProcessPaymentResponse{
		TransactionID: tx.ID.String(),
		Status:        tx.Status,
		Amount:        tx.Amount,
		PlatformFee:   tx.PlatformFee,
		TotalAmount:   tx.TotalAmount,
		Message:       "Payment captured. Funds are held in escrow until the job is completed.",
	}, nil
}

// failCapture settles a pending transaction as failed and maps the processor
// error into a user-facing one. The processor's message is surfaced verbatim
// when present.
func (s *Service) failCapture(ctx context.Context, tx *domain.Transaction, cause error) (*domain.ProcessPaymentResponse, error) {
	reason := "Payment failed"
	var apiErr *processorclient.APIError
	if errors.As(cause, &apiErr) && apiErr.Message != "" {
		reason = apiErr.Message
	}

	if err := s.repo.MarkTransactionFailed(ctx, tx.ID, reason); err != nil {
		log.Printf("level=error component=app msg=\"failed capture could not be recorded\" transaction_id=%s err=%v", tx.ID, err)
	}
	tx.Status = domain.StatusFailed

	s.publishPaymentEvent(ctx, "payment.failed", tx, reason)

	return nil, fmt.Errorf("%w: %s", ErrChargeDeclined, reason)
}

func (s *Service) publishPaymentEvent(ctx context.Context, routingKey string, tx *domain.Transaction, reason string) {
	if s.publisher == nil {
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
	if err := s.publisher.Publish(ctx, EventsExchange, routingKey, event); err != nil {
		log.Printf("level=warn component=app msg=\"payment event publish failed\" routing_key=%s transaction_id=%s err=%v", routingKey, tx.ID, err)
	}
}

// ListTransactions returns the caller's transaction history in the requested
// role ("customer" or "helper").
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, role string, opts domain.TransactionListOptions) ([]domain.Transaction, error) {
	if role == "helper" {
		return s.repo.ListTransactionsByHelper(ctx, userID, opts)
	}
	return s.repo.ListTransactionsByCustomer(ctx, userID, opts)
}

// EarningsSummary aggregates the helper's full transaction list into display
// totals. The read is non-fatal by contract: callers render a zeroed summary
// when it errors.
func (s *Service) EarningsSummary(ctx context.Context, helperID uuid.UUID) (domain.EarningsSummary, error) {
	transactions, err := s.repo.ListTransactionsByHelper(ctx, helperID, domain.TransactionListOptions{})
	if err != nil {
		return domain.EarningsSummary{}, err
	}
	return domain.AggregateEarnings(transactions, helperID), nil
}

// ListPaymentMethods returns the user's saved methods.
func (s *Service) ListPaymentMethods(ctx context.Context, userID uuid.UUID) ([]domain.PaymentMethod, error) {
	return s.repo.ListPaymentMethodsByUser(ctx, userID)
}

// SavePaymentMethod validates and tokenizes a new card, then stores its
// display metadata. Raw card fields are never persisted.
func (s *Service) SavePaymentMethod(ctx context.Context, userID uuid.UUID, card domain.NewCard) (*domain.PaymentMethod, error) {
	if verr := validateCard(&card); verr != nil {
		return nil, verr
	}

	month, year, _ := parseExpiry(card.ExpMonth, card.ExpYear)
	tokenized, err := s.processor.TokenizeCard(ctx, processorclient.TokenizeRequest{
		CardNumber: strings.ReplaceAll(card.CardNumber, " ", ""),
		ExpMonth:   month,
		ExpYear:    year,
		CVV:        card.CVV,
		BillingZip: card.ZipCode,
	})
	if err != nil {
		var apiErr *processorclient.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrChargeDeclined, apiErr.Message)
		}
		return nil, fmt.Errorf("tokenize card: %w", err)
	}

	method := &domain.PaymentMethod{
		ID:             uuid.New(),
		UserID:         userID,
		ProcessorToken: tokenized.Token,
		Brand:          tokenized.Brand,
		Last4:          tokenized.Last4,
		ExpMonth:       tokenized.ExpMonth,
		ExpYear:        tokenized.ExpYear,
		BillingZip:     card.ZipCode,
	}
	if err := s.repo.CreatePaymentMethod(ctx, method); err != nil {
		return nil, fmt.Errorf("save payment method: %w", err)
	}
	return method, nil
}

// DeletePaymentMethod removes a saved method owned by the user.
func (s *Service) DeletePaymentMethod(ctx context.Context, userID, methodID uuid.UUID) error {
	deleted, err := s.repo.DeletePaymentMethod(ctx, methodID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return store.ErrPaymentMethodNotFound
	}
	return nil
}

// SetDefaultPaymentMethod marks one saved method as the user's default.
func (s *Service) SetDefaultPaymentMethod(ctx context.Context, userID, methodID uuid.UUID) error {
	return s.repo.SetDefaultPaymentMethod(ctx, methodID, userID)
}

// EscrowConsumer returns the job-event consumer wired to this service's
// repository, processor, and publisher.
func (s *Service) EscrowConsumer() *EscrowConsumer {
	return NewEscrowConsumer(s.repo, s.processor, s.publisher)
}
