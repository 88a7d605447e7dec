package domain

import (
	"fmt"
	"strings"
)

// BondType identifies a sovereign bond market supported by the protocol.
// Encoded on-chain as a single byte.
type BondType uint8

const (
	BondUsTBill   BondType = 0
	BondMxCetes   BondType = 1
	BondBrTesouro BondType = 2
	BondJpJgb     BondType = 3
	BondCustom    BondType = 4
)

// AllBondTypes lists every bond type in tag order.
var AllBondTypes = []BondType{BondUsTBill, BondMxCetes, BondBrTesouro, BondJpJgb, BondCustom}

// Valid reports whether b is a known bond type.
func (b BondType) Valid() bool {
	switch b {
	case BondUsTBill, BondMxCetes, BondBrTesouro, BondJpJgb, BondCustom:
		return true
	}
	return false
}

// String returns the identifier used in logs and config files.
func (b BondType) String() string {
	switch b {
	case BondUsTBill:
		return "us_tbill"
	case BondMxCetes:
		return "mx_cetes"
	case BondBrTesouro:
		return "br_tesouro"
	case BondJpJgb:
		return "jp_jgb"
	case BondCustom:
		return "custom"
	}
	return fmt.Sprintf("bond(%d)", uint8(b))
}

// Label returns the human-readable market name.
func (b BondType) Label() string {
	switch b {
	case BondUsTBill:
		return "US T-Bill"
	case BondMxCetes:
		return "MX CETES"
	case BondBrTesouro:
		return "BR Tesouro"
	case BondJpJgb:
		return "JP JGB"
	case BondCustom:
		return "Custom"
	}
	return "Unknown"
}

// Currency returns the ISO code of the bond's denomination currency.
func (b BondType) Currency() string {
	switch b {
	case BondUsTBill, BondCustom:
		return "USD"
	case BondMxCetes:
		return "MXN"
	case BondBrTesouro:
		return "BRL"
	case BondJpJgb:
		return "JPY"
	}
	return ""
}

// DefaultAPYBps returns the reference APY used when a bond is registered.
func (b BondType) DefaultAPYBps() uint16 {
	switch b {
	case BondUsTBill:
		return 450
	case BondMxCetes:
		return 900
	case BondBrTesouro:
		return 1300
	case BondJpJgb:
		return 40
	case BondCustom:
		return 0
	}
	return 0
}

// ParseBondType accepts either the identifier ("mx_cetes") or the numeric tag ("1").
func ParseBondType(s string) (BondType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, b := range AllBondTypes {
		if s == b.String() || s == fmt.Sprintf("%d", uint8(b)) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown bond type %q", s)
}
