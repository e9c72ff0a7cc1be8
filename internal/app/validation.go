/**
 * @description
 * Synchronous, client-equivalent checkout validation. Every rule here runs
 * before the service touches the processor or the database write path, so an
 * invalid form never produces an outbound charge request.
 */

package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jamii/payments-service/internal/domain"
)

// ValidationError is a field-level rejection of a checkout submission. The
// Field names the offending form input so the view can surface it inline.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// validateCard checks raw new-card fields the same way the checkout form does.
func validateCard(card *domain.NewCard) *ValidationError {
	number := strings.ReplaceAll(card.CardNumber, " ", "")
	if len(number) != 16 || !isDigits(number) {
		return &ValidationError{Field: "cardNumber", Message: "Please enter a valid 16-digit card number."}
	}

	if _, _, err := parseExpiry(card.ExpMonth, card.ExpYear); err != nil {
		return &ValidationError{Field: "expiry", Message: "Please enter a valid expiry date (MMYY)."}
	}

	if !isDigits(card.CVV) || len(card.CVV) < 3 || len(card.CVV) > 4 {
		return &ValidationError{Field: "cvv", Message: "Please enter a valid CVV."}
	}

	if strings.TrimSpace(card.ZipCode) == "" {
		return &ValidationError{Field: "zipCode", Message: "Please enter a valid ZIP code."}
	}

	return nil
}

// parseExpiry turns MM and YY/YYYY strings into numeric month and four-digit year.
func parseExpiry(expMonth, expYear string) (month, year int, err error) {
	month, err = strconv.Atoi(strings.TrimSpace(expMonth))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid expiry month %q", expMonth)
	}

	rawYear := strings.TrimSpace(expYear)
	if !isDigits(rawYear) || (len(rawYear) != 2 && len(rawYear) != 4) {
		return 0, 0, fmt.Errorf("invalid expiry year %q", expYear)
	}
	year, _ = strconv.Atoi(rawYear)
	if len(rawYear) == 2 {
		year += 2000
	}
	return month, year, nil
}

// validatePaymentRequest applies all pre-submit rules for a charge. The first
// failing field wins, matching how the form surfaces one error at a time.
func validatePaymentRequest(req domain.ProcessPaymentRequest) *ValidationError {
	if req.Amount <= 0 {
		return &ValidationError{Field: "amount", Message: "Service price must be greater than zero."}
	}
	if !req.TermsAccepted {
		return &ValidationError{Field: "terms", Message: "Please accept the terms and conditions to proceed."}
	}
	if req.NewCard != nil {
		return validateCard(req.NewCard)
	}
	if req.PaymentMethodID == nil {
		return &ValidationError{Field: "paymentMethod", Message: "Please select a payment method."}
	}
	return nil
}
