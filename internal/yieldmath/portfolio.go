package yieldmath

import "stablebond-keeper/internal/domain"

// Holding is the slice of a user position the portfolio summary needs.
type Holding struct {
	BondType      domain.BondType
	Shares        uint64
	CostBasis     uint64
	RealizedYield uint64
}

// HoldingValue is one holding valued at the current NAV.
type HoldingValue struct {
	Holding
	Nav        uint64
	Value      uint64
	Unrealized uint64
}

// Summary totals a portfolio across bond types.
type Summary struct {
	Holdings        []HoldingValue
	TotalValue      uint64
	TotalCostBasis  uint64
	TotalUnrealized uint64
	TotalRealized   uint64
}

// Summarize values holdings at navByBond. Holdings whose bond has no known
// NAV are valued at par.
func Summarize(holdings []Holding, navByBond map[domain.BondType]uint64) Summary {
	var s Summary
	for _, h := range holdings {
		nav, ok := navByBond[h.BondType]
		if !ok {
			nav = NavScale
		}
		hv := HoldingValue{
			Holding:    h,
			Nav:        nav,
			Value:      SharesToValue(h.Shares, nav),
			Unrealized: UnrealizedYield(h.Shares, nav, h.CostBasis),
		}
		s.Holdings = append(s.Holdings, hv)
		s.TotalValue = saturatingAdd(s.TotalValue, hv.Value)
		s.TotalCostBasis = saturatingAdd(s.TotalCostBasis, h.CostBasis)
		s.TotalUnrealized = saturatingAdd(s.TotalUnrealized, hv.Unrealized)
		s.TotalRealized = saturatingAdd(s.TotalRealized, h.RealizedYield)
	}
	return s
}
