package app

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jamii/payments-service/internal/domain"
)

func validCard() domain.NewCard {
	return domain.NewCard{
		CardNumber: "4242 4242 4242 4242",
		ExpMonth:   "12",
		ExpYear:    "30",
		CVV:        "123",
		ZipCode:    "94107",
	}
}

func TestValidateCard_AcceptsSpacedSixteenDigits(t *testing.T) {
	card := validCard()
	if verr := validateCard(&card); verr != nil {
		t.Fatalf("expected valid card, got %v", verr)
	}
}

func TestValidateCard_FieldRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.NewCard)
		field  string
	}{
		{"fifteen digits", func(c *domain.NewCard) { c.CardNumber = "424242424242424" }, "cardNumber"},
		{"seventeen digits", func(c *domain.NewCard) { c.CardNumber = "42424242424242424" }, "cardNumber"},
		{"letters in number", func(c *domain.NewCard) { c.CardNumber = "4242 4242 4242 424x" }, "cardNumber"},
		{"month zero", func(c *domain.NewCard) { c.ExpMonth = "0" }, "expiry"},
		{"month thirteen", func(c *domain.NewCard) { c.ExpMonth = "13" }, "expiry"},
		{"three digit year", func(c *domain.NewCard) { c.ExpYear = "203" }, "expiry"},
		{"cvv too short", func(c *domain.NewCard) { c.CVV = "12" }, "cvv"},
		{"cvv too long", func(c *domain.NewCard) { c.CVV = "12345" }, "cvv"},
		{"cvv letters", func(c *domain.NewCard) { c.CVV = "12a" }, "cvv"},
		{"blank zip", func(c *domain.NewCard) { c.ZipCode = "   " }, "zipCode"},
	}

	for _, tc := range cases {
		card := validCard()
		tc.mutate(&card)
		verr := validateCard(&card)
		if verr == nil {
			t.Errorf("%s: expected rejection", tc.name)
			continue
		}
		if verr.Field != tc.field {
			t.Errorf("%s: expected field %q, got %q", tc.name, tc.field, verr.Field)
		}
	}
}

func TestParseExpiry_TwoAndFourDigitYears(t *testing.T) {
	month, year, err := parseExpiry("09", "27")
	if err != nil {
		t.Fatalf("parseExpiry returned error: %v", err)
	}
	if month != 9 || year != 2027 {
		t.Errorf("expected 9/2027, got %d/%d", month, year)
	}

	month, year, err = parseExpiry("1", "2031")
	if err != nil {
		t.Fatalf("parseExpiry returned error: %v", err)
	}
	if month != 1 || year != 2031 {
		t.Errorf("expected 1/2031, got %d/%d", month, year)
	}
}

func TestValidatePaymentRequest_OrderOfChecks(t *testing.T) {
	methodID := uuid.New()

	req := domain.ProcessPaymentRequest{Amount: 0, TermsAccepted: false}
	if verr := validatePaymentRequest(req); verr == nil || verr.Field != "amount" {
		t.Errorf("expected amount rejected first, got %v", verr)
	}

	req = domain.ProcessPaymentRequest{Amount: 1000, TermsAccepted: false, PaymentMethodID: &methodID}
	if verr := validatePaymentRequest(req); verr == nil || verr.Field != "terms" {
		t.Errorf("expected terms rejected before method, got %v", verr)
	}

	req = domain.ProcessPaymentRequest{Amount: 1000, TermsAccepted: true}
	if verr := validatePaymentRequest(req); verr == nil || verr.Field != "paymentMethod" {
		t.Errorf("expected missing method rejected, got %v", verr)
	}

	req = domain.ProcessPaymentRequest{Amount: 1000, TermsAccepted: true, PaymentMethodID: &methodID}
	if verr := validatePaymentRequest(req); verr != nil {
		t.Errorf("expected saved-method request accepted, got %v", verr)
	}
}

func TestValidatePaymentRequest_NegativeAmount(t *testing.T) {
	req := domain.ProcessPaymentRequest{Amount: -500, TermsAccepted: true}
	if verr := validatePaymentRequest(req); verr == nil || verr.Field != "amount" {
		t.Errorf("expected negative amount rejected, got %v", verr)
	}
}
