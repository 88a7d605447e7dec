package domain

// YieldSourceType classifies where a yield source earns its return.
type YieldSourceType uint8

const (
	YieldSourceTBill         YieldSourceType = 0
	YieldSourceLending       YieldSourceType = 1
	YieldSourceStaking       YieldSourceType = 2
	YieldSourceSynthetic     YieldSourceType = 3
	YieldSourceSovereignBond YieldSourceType = 4
)

// Valid reports whether s is a known source type.
func (s YieldSourceType) Valid() bool {
	return s <= YieldSourceSovereignBond
}

// String returns the source type name.
func (s YieldSourceType) String() string {
	switch s {
	case YieldSourceTBill:
		return "TBill"
	case YieldSourceLending:
		return "Lending"
	case YieldSourceStaking:
		return "Staking"
	case YieldSourceSynthetic:
		return "Synthetic"
	case YieldSourceSovereignBond:
		return "SovereignBond"
	}
	return "Unknown"
}
