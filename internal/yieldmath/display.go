package yieldmath

import (
	"strconv"
	"strings"
)

// Display helpers below use floating point or strings. Nothing in the
// settlement path may call them.

// EffectiveAPY annualizes the NAV change between two snapshots, in bps.
// Returns 0 when navStart or elapsed is zero.
func EffectiveAPY(navStart, navEnd, elapsed uint64) float64 {
	if navStart == 0 || elapsed == 0 {
		return 0
	}
	growth := (float64(navEnd) - float64(navStart)) / float64(navStart)
	annualized := growth * (float64(SecondsPerYear) / float64(elapsed))
	return annualized * BpsDenominator
}

// FormatAmount renders minor units with decimals implied digits, truncating
// the fraction to maxFraction digits. FormatAmount(1_234_567, 6, 2) == "1.23".
func FormatAmount(amount uint64, decimals, maxFraction int) string {
	if decimals <= 0 {
		return strconv.FormatUint(amount, 10)
	}
	if decimals > 19 {
		decimals = 19
	}
	divisor := uint64(1)
	for i := 0; i < decimals; i++ {
		divisor *= 10
	}
	whole := strconv.FormatUint(amount/divisor, 10)
	if maxFraction <= 0 {
		return whole
	}

	frac := strconv.FormatUint(amount%divisor, 10)
	frac = strings.Repeat("0", decimals-len(frac)) + frac
	if maxFraction < len(frac) {
		frac = frac[:maxFraction]
	}
	return whole + "." + frac
}
