// Package tier decides which bond types and deposit volumes a verification
// tier may access.
package tier

import (
	"math"

	"stablebond-keeper/internal/domain"
)

// Unlimited is the monthly limit sentinel for tiers without a ceiling.
const Unlimited uint64 = math.MaxUint64

// MonthlyLimit returns the per-month deposit ceiling in minor units of the
// bond's currency. Unknown or unverified combinations return 0.
func MonthlyLimit(t domain.Tier, b domain.BondType) uint64 {
	if t == domain.TierDiamond && b.Valid() {
		return Unlimited
	}

	var bronze, silver, gold uint64
	switch b {
	case domain.BondUsTBill:
		bronze, silver, gold = 5_000_000_000, 50_000_000_000, 500_000_000_000
	case domain.BondMxCetes:
		bronze, silver, gold = 100_000_000_000, 1_000_000_000_000, 10_000_000_000_000
	case domain.BondBrTesouro:
		bronze, silver, gold = 25_000_000_000, 250_000_000_000, 2_500_000_000_000
	case domain.BondJpJgb:
		bronze, silver, gold = 500_000_000_000, 5_000_000_000_000, 50_000_000_000_000
	default:
		// Custom is listed for Diamond only.
		return 0
	}

	switch t {
	case domain.TierBronze:
		return bronze
	case domain.TierSilver:
		return silver
	case domain.TierGold:
		return gold
	}
	return 0
}

// AllowedBondTypes lists the bond types t may deposit into.
func AllowedBondTypes(t domain.Tier) []domain.BondType {
	switch t {
	case domain.TierBronze:
		return []domain.BondType{domain.BondUsTBill, domain.BondJpJgb}
	case domain.TierSilver:
		return []domain.BondType{domain.BondUsTBill, domain.BondJpJgb, domain.BondMxCetes}
	case domain.TierGold:
		return []domain.BondType{domain.BondUsTBill, domain.BondJpJgb, domain.BondMxCetes, domain.BondBrTesouro}
	case domain.TierDiamond:
		return []domain.BondType{domain.BondUsTBill, domain.BondJpJgb, domain.BondMxCetes, domain.BondBrTesouro, domain.BondCustom}
	}
	return nil
}

// AllowedYieldSources lists the yield source types t may be allocated to.
func AllowedYieldSources(t domain.Tier) []domain.YieldSourceType {
	switch t {
	case domain.TierBronze:
		return []domain.YieldSourceType{domain.YieldSourceTBill, domain.YieldSourceSovereignBond}
	case domain.TierSilver:
		return []domain.YieldSourceType{domain.YieldSourceTBill, domain.YieldSourceLending, domain.YieldSourceSovereignBond}
	case domain.TierGold:
		return []domain.YieldSourceType{domain.YieldSourceTBill, domain.YieldSourceLending, domain.YieldSourceStaking, domain.YieldSourceSovereignBond}
	case domain.TierDiamond:
		return []domain.YieldSourceType{domain.YieldSourceTBill, domain.YieldSourceLending, domain.YieldSourceStaking, domain.YieldSourceSynthetic, domain.YieldSourceSovereignBond}
	}
	return nil
}

// IsBondTypeAllowed reports whether b is in t's allow-list.
func IsBondTypeAllowed(t domain.Tier, b domain.BondType) bool {
	for _, allowed := range AllowedBondTypes(t) {
		if allowed == b {
			return true
		}
	}
	return false
}

// IsYieldSourceAllowed reports whether s is in t's allow-list.
func IsYieldSourceAllowed(t domain.Tier, s domain.YieldSourceType) bool {
	for _, allowed := range AllowedYieldSources(t) {
		if allowed == s {
			return true
		}
	}
	return false
}

// MinTierForBond returns the lowest tier that may access b.
// Unknown bond types require Diamond.
func MinTierForBond(b domain.BondType) domain.Tier {
	for _, t := range []domain.Tier{domain.TierBronze, domain.TierSilver, domain.TierGold} {
		if IsBondTypeAllowed(t, b) {
			return t
		}
	}
	return domain.TierDiamond
}

// RemainingCapacity is how much more t may deposit into b this month.
// Unlimited passes through; otherwise the result floors at 0.
func RemainingCapacity(t domain.Tier, b domain.BondType, monthlyDeposited uint64) uint64 {
	limit := MonthlyLimit(t, b)
	if limit == Unlimited {
		return Unlimited
	}
	if monthlyDeposited >= limit {
		return 0
	}
	return limit - monthlyDeposited
}

// ValidateDeposit applies the tier rules in order: identity verification,
// bond access, then the monthly limit. It returns nil when the deposit is allowed.
func ValidateDeposit(t domain.Tier, b domain.BondType, amount, monthlyDeposited uint64) error {
	if t == domain.TierUnverified {
		return &ValidationError{
			Rule:    RuleUnverified,
			Message: "Unverified users cannot deposit. Please complete identity verification.",
		}
	}

	if !IsBondTypeAllowed(t, b) {
		return &ValidationError{
			Rule:    RuleBondNotAllowed,
			Message: b.Label() + " is not available for " + t.String() + " tier. Upgrade your tier to access this bond type.",
		}
	}

	remaining := RemainingCapacity(t, b, monthlyDeposited)
	if remaining != Unlimited && amount > remaining {
		return &ValidationError{
			Rule:      RuleMonthlyLimit,
			Message:   "Deposit exceeds monthly limit. Remaining capacity: " + formatUint(remaining) + " minor units.",
			Remaining: remaining,
		}
	}
	return nil
}
