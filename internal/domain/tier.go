/**
 * @description
 * Helper subscription tiers and the platform fee arithmetic that every
 * payment path goes through. The tier table is static configuration loaded at
 * process start; fee rates are basis points (integer) so repeated additions
 * never drift the way float percentages do.
 */

package domain

import (
	"errors"
	"strconv"
	"strings"
)

// ErrTierNotFound is returned when a tier id has no row in the table.
var ErrTierNotFound = errors.New("tier not found")

// Canonical tier identifiers. Older records carry basic/pro/premium; those
// resolve as aliases of the first three tiers.
const (
	TierStarter         = "starter"
	TierGrowth          = "growth"
	TierScale           = "scale"
	TierCommunityLeader = "community_leader"
)

// Tier is a named subscription level governing a helper's fee rate and limits.
type Tier struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	MonthlyCost          Cents  `json:"monthly_cost"`
	PlatformFeeBps       int    `json:"platform_fee_bps"`
	MonthlyEarningsCap   Cents  `json:"monthly_earnings_cap"`
	ServiceCategoryLimit int    `json:"service_category_limit"`
}

// FeePercentDisplay returns the fee rate as it appears in product copy, e.g. "10%".
func (t Tier) FeePercentDisplay() string {
	return strconv.FormatFloat(float64(t.PlatformFeeBps)/100, 'f', -1, 64) + "%"
}

var tierTable = []Tier{
	{ID: TierStarter, Name: "Starter", MonthlyCost: 1000, PlatformFeeBps: 1000, MonthlyEarningsCap: 50000, ServiceCategoryLimit: 1},
	{ID: TierGrowth, Name: "Growth", MonthlyCost: 2500, PlatformFeeBps: 800, MonthlyEarningsCap: 250000, ServiceCategoryLimit: 3},
	{ID: TierScale, Name: "Scale", MonthlyCost: 5000, PlatformFeeBps: 500, MonthlyEarningsCap: 500000, ServiceCategoryLimit: 5},
	{ID: TierCommunityLeader, Name: "Community Leader", MonthlyCost: 15000, PlatformFeeBps: 300, MonthlyEarningsCap: 1500000, ServiceCategoryLimit: 8},
}

// Legacy tier ids still present in older helper profiles.
var tierAliases = map[string]string{
	"basic":            TierStarter,
	"pro":              TierGrowth,
	"premium":          TierScale,
	"community-leader": TierCommunityLeader,
}

// GetTier looks up a tier by id. Legacy ids are resolved to their canonical
// row. Lookup is case-insensitive.
func GetTier(id string) (Tier, error) {
	normalized := strings.ToLower(strings.TrimSpace(id))
	if canonical, ok := tierAliases[normalized]; ok {
		normalized = canonical
	}
	for _, t := range tierTable {
		if t.ID == normalized {
			return t, nil
		}
	}
	return Tier{}, ErrTierNotFound
}

// Tiers returns the full tier table in display order.
func Tiers() []Tier {
	out := make([]Tier, len(tierTable))
	copy(out, tierTable)
	return out
}

// ComputeCharge derives the platform fee and total customer charge for a
// service price at the given fee rate. The fee is rounded half-up to the cent
// at the point of computation; the total is price plus fee, so
// total - price == fee always holds.
func ComputeCharge(servicePrice Cents, feeBps int) (platformFee, totalCharge Cents) {
	platformFee = feeAmount(servicePrice, feeBps)
	totalCharge = servicePrice + platformFee
	return platformFee, totalCharge
}

// HelperPayout is the amount released to the helper once the job completes:
// the service price minus the platform's take at the tier rate. The fee the
// customer pays on top is separate, so payout never exceeds the price.
func HelperPayout(servicePrice Cents, feeBps int) Cents {
	return servicePrice - feeAmount(servicePrice, feeBps)
}

func feeAmount(servicePrice Cents, feeBps int) Cents {
	if servicePrice <= 0 || feeBps <= 0 {
		return 0
	}
	// Half-up rounding in integer space: amount * bps / 10000.
	return Cents((int64(servicePrice)*int64(feeBps) + 5000) / 10000)
}
