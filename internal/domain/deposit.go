package domain

import "time"

// PendingDepositExpiry is how long a cross-currency deposit waits for conversion
// before the program treats it as expired.
const PendingDepositExpiry = 24 * time.Hour

// DepositStatus is the lifecycle state of a pending cross-currency deposit.
type DepositStatus uint8

const (
	DepositPending    DepositStatus = 0
	DepositConverting DepositStatus = 1
	DepositConverted  DepositStatus = 2
	DepositCancelled  DepositStatus = 3
	DepositExpired    DepositStatus = 4
)

// Valid reports whether s is a known status.
func (s DepositStatus) Valid() bool {
	return s <= DepositExpired
}

// Terminal reports whether no further transition is possible.
func (s DepositStatus) Terminal() bool {
	switch s {
	case DepositConverted, DepositCancelled, DepositExpired:
		return true
	}
	return false
}

// String returns the status name.
func (s DepositStatus) String() string {
	switch s {
	case DepositPending:
		return "Pending"
	case DepositConverting:
		return "Converting"
	case DepositConverted:
		return "Converted"
	case DepositCancelled:
		return "Cancelled"
	case DepositExpired:
		return "Expired"
	}
	return "Unknown"
}

// ConversionDirection records which currency leg a conversion settled.
type ConversionDirection uint8

const (
	ConversionJpyToUsdc          ConversionDirection = 0
	ConversionUsdcToJpy          ConversionDirection = 1
	ConversionMxnToUsdc          ConversionDirection = 2
	ConversionBrlToUsdc          ConversionDirection = 3
	ConversionNativeToSettlement ConversionDirection = 4
	ConversionSettlementToNative ConversionDirection = 5
)

// String returns the direction name.
func (d ConversionDirection) String() string {
	switch d {
	case ConversionJpyToUsdc:
		return "JpyToUsdc"
	case ConversionUsdcToJpy:
		return "UsdcToJpy"
	case ConversionMxnToUsdc:
		return "MxnToUsdc"
	case ConversionBrlToUsdc:
		return "BrlToUsdc"
	case ConversionNativeToSettlement:
		return "NativeToSettlement"
	case ConversionSettlementToNative:
		return "SettlementToNative"
	}
	return "Unknown"
}
