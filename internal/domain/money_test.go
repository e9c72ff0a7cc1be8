package domain

import (
	"encoding/json"
	"testing"
)

func TestCentsUnmarshal_AcceptsNumbersAndStrings(t *testing.T) {
	cases := []struct {
		raw  string
		want Cents
	}{
		{`100`, 10000},
		{`100.5`, 10050},
		{`99.99`, 9999},
		{`"100"`, 10000},
		{`"45.00"`, 4500},
		{`0`, 0},
		{`-12.34`, -1234},
	}

	for _, tc := range cases {
		var c Cents
		if err := json.Unmarshal([]byte(tc.raw), &c); err != nil {
			t.Fatalf("Unmarshal(%s) returned error: %v", tc.raw, err)
		}
		if c != tc.want {
			t.Errorf("Unmarshal(%s): expected %d cents, got %d", tc.raw, tc.want, c)
		}
	}
}

func TestCentsUnmarshal_MalformedCoercesToZero(t *testing.T) {
	cases := []string{`"abc"`, `""`, `null`, `"12.3.4"`, `"$50"`}

	for _, raw := range cases {
		c := Cents(777)
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			t.Fatalf("Unmarshal(%s) returned error: %v", raw, err)
		}
		if c != 0 {
			t.Errorf("Unmarshal(%s): expected coercion to 0, got %d", raw, c)
		}
	}
}

func TestCentsUnmarshal_InsideStruct(t *testing.T) {
	var tx struct {
		Amount Cents `json:"amount"`
		Fee    Cents `json:"fee"`
	}
	payload := `{"amount": "invalid", "fee": 10.50}`
	if err := json.Unmarshal([]byte(payload), &tx); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if tx.Amount != 0 {
		t.Errorf("expected malformed amount to coerce to 0, got %d", tx.Amount)
	}
	if tx.Fee != 1050 {
		t.Errorf("expected fee 1050 cents, got %d", tx.Fee)
	}
}

func TestCentsMarshal_TwoDecimalDollars(t *testing.T) {
	cases := []struct {
		c    Cents
		want string
	}{
		{11000, `110.00`},
		{1, `0.01`},
		{0, `0.00`},
		{-1234, `-12.34`},
	}

	for _, tc := range cases {
		out, err := json.Marshal(tc.c)
		if err != nil {
			t.Fatalf("Marshal(%d) returned error: %v", tc.c, err)
		}
		if string(out) != tc.want {
			t.Errorf("Marshal(%d): expected %s, got %s", tc.c, tc.want, out)
		}
	}
}

func TestFormatUSD(t *testing.T) {
	cases := []struct {
		c    Cents
		want string
	}{
		{11000, "$110.00"},
		{4500, "$45.00"},
		{2250, "$22.50"},
		{5, "$0.05"},
		{-150, "-$1.50"},
	}

	for _, tc := range cases {
		if got := tc.c.FormatUSD(); got != tc.want {
			t.Errorf("FormatUSD(%d): expected %q, got %q", tc.c, tc.want, got)
		}
	}
}
