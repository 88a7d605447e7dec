package ledger

import (
	"crypto/sha256"
	"fmt"
)

// DiscriminatorLength is the Anchor account prefix skipped before field decoding.
const DiscriminatorLength = 8

// Kind identifies an account record layout.
type Kind uint8

const (
	KindProtocolConfig Kind = iota + 1
	KindBondRegistry
	KindYieldSource
	KindUserPosition
	KindPendingDeposit
	KindConversionRecord
	KindBondVault
	KindUserShares
)

// AllKinds lists every registered record kind.
var AllKinds = []Kind{
	KindProtocolConfig, KindBondRegistry, KindYieldSource, KindUserPosition,
	KindPendingDeposit, KindConversionRecord, KindBondVault, KindUserShares,
}

// String returns the Anchor account name, which also seeds the discriminator.
func (k Kind) String() string {
	switch k {
	case KindProtocolConfig:
		return "ProtocolConfig"
	case KindBondRegistry:
		return "BondRegistry"
	case KindYieldSource:
		return "YieldSource"
	case KindUserPosition:
		return "UserPosition"
	case KindPendingDeposit:
		return "PendingDeposit"
	case KindConversionRecord:
		return "ConversionRecord"
	case KindBondVault:
		return "BondVault"
	case KindUserShares:
		return "UserShares"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Discriminator returns the 8-byte account prefix for k.
func (k Kind) Discriminator() [8]byte {
	return AccountDiscriminator(k.String())
}

// AccountDiscriminator computes sha256("account:" + name)[:8].
func AccountDiscriminator(name string) [8]byte {
	var d [8]byte
	sum := sha256.Sum256([]byte("account:" + name))
	copy(d[:], sum[:8])
	return d
}

// Record is a decoded account.
type Record interface {
	schema
	Kind() Kind
}

// layout describes how to size and allocate one record kind.
type layout struct {
	// size returns the bytes required for data, which may depend on a
	// length prefix inside it.
	size  func(data []byte) int
	alloc func() Record
}

func fixedSize(n int) func([]byte) int {
	return func([]byte) int { return n }
}

var layouts = map[Kind]layout{
	KindProtocolConfig:   {size: fixedSize(ProtocolConfigSize), alloc: func() Record { return new(ProtocolConfig) }},
	KindBondRegistry:     {size: bondRegistrySize, alloc: func() Record { return new(BondRegistry) }},
	KindYieldSource:      {size: fixedSize(YieldSourceSize), alloc: func() Record { return new(YieldSource) }},
	KindUserPosition:     {size: fixedSize(UserPositionSize), alloc: func() Record { return new(UserPosition) }},
	KindPendingDeposit:   {size: fixedSize(PendingDepositSize), alloc: func() Record { return new(PendingDeposit) }},
	KindConversionRecord: {size: fixedSize(ConversionRecordSize), alloc: func() Record { return new(ConversionRecord) }},
	KindBondVault:        {size: fixedSize(BondVaultSize), alloc: func() Record { return new(BondVault) }},
	KindUserShares:       {size: fixedSize(UserSharesSize), alloc: func() Record { return new(UserShares) }},
}

// Decode parses data as a record of kind. The discriminator is skipped, not
// checked. Trailing bytes past the layout are ignored.
func Decode(kind Kind, data []byte) (Record, error) {
	l, ok := layouts[kind]
	if !ok {
		return nil, &DecodeError{Kind: kind, Reason: "unknown record kind"}
	}

	need := l.size(data)
	if len(data) < need {
		return nil, &DecodeError{Kind: kind, Need: need, Got: len(data)}
	}

	rec := l.alloc()
	r := &reader{data: data[:need], off: DiscriminatorLength}
	rec.fields(r)
	if r.short {
		return nil, &DecodeError{Kind: kind, Need: need, Got: len(data), Reason: "layout overrun"}
	}
	return rec, nil
}

// Encode serializes rec with its discriminator. The result decodes back to rec.
func Encode(rec Record) []byte {
	d := rec.Kind().Discriminator()
	w := &writer{buf: append([]byte(nil), d[:]...)}
	rec.fields(w)
	return w.buf
}

func decodeAs[T Record](kind Kind, data []byte) (T, error) {
	rec, err := Decode(kind, data)
	if err != nil {
		var zero T
		return zero, err
	}
	return rec.(T), nil
}

// DecodeProtocolConfig decodes a ProtocolConfig account.
func DecodeProtocolConfig(data []byte) (*ProtocolConfig, error) {
	return decodeAs[*ProtocolConfig](KindProtocolConfig, data)
}

// DecodeBondRegistry decodes a BondRegistry account.
func DecodeBondRegistry(data []byte) (*BondRegistry, error) {
	return decodeAs[*BondRegistry](KindBondRegistry, data)
}

// DecodeYieldSource decodes a YieldSource account.
func DecodeYieldSource(data []byte) (*YieldSource, error) {
	return decodeAs[*YieldSource](KindYieldSource, data)
}

// DecodeUserPosition decodes a UserPosition account.
func DecodeUserPosition(data []byte) (*UserPosition, error) {
	return decodeAs[*UserPosition](KindUserPosition, data)
}

// DecodePendingDeposit decodes a PendingDeposit account.
func DecodePendingDeposit(data []byte) (*PendingDeposit, error) {
	return decodeAs[*PendingDeposit](KindPendingDeposit, data)
}

// DecodeConversionRecord decodes a ConversionRecord account.
func DecodeConversionRecord(data []byte) (*ConversionRecord, error) {
	return decodeAs[*ConversionRecord](KindConversionRecord, data)
}

// DecodeBondVault decodes a BondVault account from the yield program.
func DecodeBondVault(data []byte) (*BondVault, error) {
	return decodeAs[*BondVault](KindBondVault, data)
}

// DecodeUserShares decodes a UserShares account from the yield program.
func DecodeUserShares(data []byte) (*UserShares, error) {
	return decodeAs[*UserShares](KindUserShares, data)
}
