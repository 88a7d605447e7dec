// Package yieldmath implements the fixed-point share and NAV arithmetic used
// by the vault programs. Every function here floors like the on-chain code
// and saturates at math.MaxUint64 instead of wrapping.
package yieldmath

import (
	"math"
	"math/big"
)

const (
	// NavScale is the fixed-point scale of navPerShare (1.0 == 1_000_000).
	NavScale = 1_000_000
	// SecondsPerYear is a 365.25-day year.
	SecondsPerYear = 31_557_600
	// BpsDenominator converts basis points to a ratio.
	BpsDenominator = 10_000
)

var maxUint64 = new(big.Int).SetUint64(math.MaxUint64)

// mulDiv returns floor(a*b*c/d) saturated to uint64. d must be nonzero.
func mulDiv(a, b, c, d uint64) uint64 {
	n := new(big.Int).SetUint64(a)
	n.Mul(n, new(big.Int).SetUint64(b))
	n.Mul(n, new(big.Int).SetUint64(c))
	n.Quo(n, new(big.Int).SetUint64(d))
	if n.Cmp(maxUint64) > 0 {
		return math.MaxUint64
	}
	return n.Uint64()
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

// SharesToValue converts shares to underlying value at nav.
func SharesToValue(shares, nav uint64) uint64 {
	return mulDiv(shares, nav, 1, NavScale)
}

// ValueToShares converts value to shares at nav. A zero nav yields zero shares.
func ValueToShares(value, nav uint64) uint64 {
	if nav == 0 {
		return 0
	}
	return mulDiv(value, NavScale, 1, nav)
}

// UnrealizedYield is the position's value above its cost basis, never negative.
func UnrealizedYield(shares, nav, costBasis uint64) uint64 {
	value := SharesToValue(shares, nav)
	if value <= costBasis {
		return 0
	}
	return value - costBasis
}

// TotalPositionValue is current share value plus yield already realized.
func TotalPositionValue(shares, nav, realizedYield uint64) uint64 {
	return saturatingAdd(SharesToValue(shares, nav), realizedYield)
}

// EstimateAccrual is the NAV increase over elapsed seconds at apyBps,
// using the vault's simple-interest formula.
func EstimateAccrual(nav uint64, apyBps uint16, elapsed uint64) uint64 {
	return mulDiv(nav, uint64(apyBps), elapsed, BpsDenominator*SecondsPerYear)
}

// ProjectNav projects nav from lastAccrual to target. Accrual stops at
// maturity when maturity > 0, and a target at or before lastAccrual
// returns nav unchanged.
func ProjectNav(nav uint64, apyBps uint16, lastAccrual, target, maturity int64) uint64 {
	end := target
	if maturity > 0 && end > maturity {
		end = maturity
	}
	if end <= lastAccrual {
		return nav
	}
	elapsed := uint64(end) - uint64(lastAccrual)
	return saturatingAdd(nav, EstimateAccrual(nav, apyBps, elapsed))
}

// PerformanceFee is the protocol's cut of yieldAmount at feeBps.
func PerformanceFee(yieldAmount uint64, feeBps uint16) uint64 {
	return mulDiv(yieldAmount, uint64(feeBps), 1, BpsDenominator)
}
