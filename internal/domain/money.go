/**
 * @description
 * Money representation for the payments-service. All amounts are carried as
 * `Cents` (int64, US cents) so that fee arithmetic stays exact; floating-point
 * dollar values only appear at the JSON boundary and are converted once.
 *
 * @notes
 * - Upstream transaction feeds have historically mixed numbers and strings for
 *   amount fields. Cents therefore accepts both on unmarshal and coerces
 *   anything unparseable to zero with a log line rather than failing the whole
 *   payload. Arithmetic never sees raw strings.
 */

package domain

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
)

// Cents is a currency amount in US cents.
type Cents int64

// UnmarshalJSON accepts a JSON number (dollars with up to 2 decimals when
// fractional, or an integer cent count is not assumed — numbers are dollars),
// a quoted numeric string, or null. Malformed values coerce to zero.
func (c *Cents) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		*c = 0
		return nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*c = 0
			return nil
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*c = 0
			return nil
		}
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		log.Printf("level=warn component=domain msg=\"unparseable amount coerced to zero\" value=%q", raw)
		*c = 0
		return nil
	}

	*c = Cents(math.Round(value * 100))
	return nil
}

// MarshalJSON renders the amount as a dollar number with two decimals.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.decimalString()), nil
}

func (c Cents) decimalString() string {
	negative := c < 0
	v := int64(c)
	if negative {
		v = -v
	}
	s := fmt.Sprintf("%d.%02d", v/100, v%100)
	if negative {
		return "-" + s
	}
	return s
}

// Dollars returns the amount as a float64 dollar value, for display math only.
func (c Cents) Dollars() float64 {
	return float64(c) / 100
}

// FormatUSD renders the amount the way the payment views show it, e.g. "$110.00".
func (c Cents) FormatUSD() string {
	if c < 0 {
		return "-$" + (-c).decimalString()
	}
	return "$" + c.decimalString()
}
