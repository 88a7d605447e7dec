package ledger

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/solana"
)

// programDataPrefix marks an Anchor event in transaction logs.
const programDataPrefix = "Program data: "

// Event is a decoded Anchor event emitted by the core program.
type Event interface {
	schema
	EventName() string
}

// EventDiscriminator computes sha256("event:" + name)[:8].
func EventDiscriminator(name string) [8]byte {
	var d [8]byte
	sum := sha256.Sum256([]byte("event:" + name))
	copy(d[:], sum[:8])
	return d
}

// ProtocolInitialized is emitted by initialize_protocol.
type ProtocolInitialized struct {
	Authority solana.PublicKey
	USDCMint  solana.PublicKey
	Timestamp int64
}

func (*ProtocolInitialized) EventName() string { return "ProtocolInitialized" }

func (e *ProtocolInitialized) fields(c fieldCodec) {
	c.pubkey(&e.Authority)
	c.pubkey(&e.USDCMint)
	c.i64(&e.Timestamp)
}

// BondRegistered is emitted by register_bond.
type BondRegistered struct {
	BondType      domain.BondType
	CurrencyMint  solana.PublicKey
	DefaultAPYBps uint16
	MinTier       domain.Tier
	Timestamp     int64
}

func (*BondRegistered) EventName() string { return "BondRegistered" }

func (e *BondRegistered) fields(c fieldCodec) {
	c.u8((*uint8)(&e.BondType))
	c.pubkey(&e.CurrencyMint)
	c.u16(&e.DefaultAPYBps)
	c.u8((*uint8)(&e.MinTier))
	c.i64(&e.Timestamp)
}

// YieldSourceRegistered is emitted by register_yield_source.
type YieldSourceRegistered struct {
	YieldSource solana.PublicKey
	Name        [32]byte
	SourceType  domain.YieldSourceType
	BondType    domain.BondType
	TokenMint   solana.PublicKey
	Timestamp   int64
}

func (*YieldSourceRegistered) EventName() string { return "YieldSourceRegistered" }

func (e *YieldSourceRegistered) fields(c fieldCodec) {
	c.pubkey(&e.YieldSource)
	c.bytes(e.Name[:])
	c.u8((*uint8)(&e.SourceType))
	c.u8((*uint8)(&e.BondType))
	c.pubkey(&e.TokenMint)
	c.i64(&e.Timestamp)
}

// DepositInitiated is emitted when a cross-currency deposit is queued.
type DepositInitiated struct {
	User           solana.PublicKey
	PendingDeposit solana.PublicKey
	BondType       domain.BondType
	SourceAmount   uint64
	MinOutput      uint64
	Nonce          uint64
	Timestamp      int64
}

func (*DepositInitiated) EventName() string { return "DepositInitiated" }

func (e *DepositInitiated) fields(c fieldCodec) {
	c.pubkey(&e.User)
	c.pubkey(&e.PendingDeposit)
	c.u8((*uint8)(&e.BondType))
	c.u64(&e.SourceAmount)
	c.u64(&e.MinOutput)
	c.u64(&e.Nonce)
	c.i64(&e.Timestamp)
}

// DirectDeposit is emitted by deposit_direct.
type DirectDeposit struct {
	User           solana.PublicKey
	BondType       domain.BondType
	Amount         uint64
	SharesReceived uint64
	Timestamp      int64
}

func (*DirectDeposit) EventName() string { return "DirectDeposit" }

func (e *DirectDeposit) fields(c fieldCodec) {
	c.pubkey(&e.User)
	c.u8((*uint8)(&e.BondType))
	c.u64(&e.Amount)
	c.u64(&e.SharesReceived)
	c.i64(&e.Timestamp)
}

// ConversionExecuted is emitted when the keeper settles a pending deposit.
type ConversionExecuted struct {
	User               solana.PublicKey
	BondType           domain.BondType
	SourceAmount       uint64
	SettlementReceived uint64
	ExchangeRate       uint64
	FeePaid            uint64
	SharesIssued       uint64
	Nonce              uint64
	Timestamp          int64
}

func (*ConversionExecuted) EventName() string { return "ConversionExecuted" }

func (e *ConversionExecuted) fields(c fieldCodec) {
	c.pubkey(&e.User)
	c.u8((*uint8)(&e.BondType))
	c.u64(&e.SourceAmount)
	c.u64(&e.SettlementReceived)
	c.u64(&e.ExchangeRate)
	c.u64(&e.FeePaid)
	c.u64(&e.SharesIssued)
	c.u64(&e.Nonce)
	c.i64(&e.Timestamp)
}

// ConversionRecordCreated accompanies ConversionExecuted.
type ConversionRecordCreated struct {
	User             solana.PublicKey
	BondType         domain.BondType
	SourceAmount     uint64
	SettlementAmount uint64
	ExchangeRate     uint64
	Direction        domain.ConversionDirection
	Nonce            uint64
	Timestamp        int64
}

func (*ConversionRecordCreated) EventName() string { return "ConversionRecordCreated" }

func (e *ConversionRecordCreated) fields(c fieldCodec) {
	c.pubkey(&e.User)
	c.u8((*uint8)(&e.BondType))
	c.u64(&e.SourceAmount)
	c.u64(&e.SettlementAmount)
	c.u64(&e.ExchangeRate)
	c.u8((*uint8)(&e.Direction))
	c.u64(&e.Nonce)
	c.i64(&e.Timestamp)
}

// WithdrawalExecuted is emitted by withdraw.
type WithdrawalExecuted struct {
	User           solana.PublicKey
	BondType       domain.BondType
	SharesBurned   uint64
	AmountReceived uint64
	Timestamp      int64
}

func (*WithdrawalExecuted) EventName() string { return "WithdrawalExecuted" }

func (e *WithdrawalExecuted) fields(c fieldCodec) {
	c.pubkey(&e.User)
	c.u8((*uint8)(&e.BondType))
	c.u64(&e.SharesBurned)
	c.u64(&e.AmountReceived)
	c.i64(&e.Timestamp)
}

// YieldClaimed is emitted by claim_yield.
type YieldClaimed struct {
	User           solana.PublicKey
	BondType       domain.BondType
	YieldAmount    uint64
	PerformanceFee uint64
	NetYield       uint64
	Timestamp      int64
}

func (*YieldClaimed) EventName() string { return "YieldClaimed" }

func (e *YieldClaimed) fields(c fieldCodec) {
	c.pubkey(&e.User)
	c.u8((*uint8)(&e.BondType))
	c.u64(&e.YieldAmount)
	c.u64(&e.PerformanceFee)
	c.u64(&e.NetYield)
	c.i64(&e.Timestamp)
}

// NavUpdated is emitted by update_nav.
type NavUpdated struct {
	YieldSource solana.PublicKey
	BondType    domain.BondType
	OldNav      uint64
	NewNav      uint64
	Timestamp   int64
}

func (*NavUpdated) EventName() string { return "NavUpdated" }

func (e *NavUpdated) fields(c fieldCodec) {
	c.pubkey(&e.YieldSource)
	c.u8((*uint8)(&e.BondType))
	c.u64(&e.OldNav)
	c.u64(&e.NewNav)
	c.i64(&e.Timestamp)
}

// ProtocolPaused is emitted by pause_protocol.
type ProtocolPaused struct {
	Authority solana.PublicKey
	Timestamp int64
}

func (*ProtocolPaused) EventName() string { return "ProtocolPaused" }

func (e *ProtocolPaused) fields(c fieldCodec) {
	c.pubkey(&e.Authority)
	c.i64(&e.Timestamp)
}

// ProtocolResumed is emitted by resume_protocol.
type ProtocolResumed struct {
	Authority solana.PublicKey
	Timestamp int64
}

func (*ProtocolResumed) EventName() string { return "ProtocolResumed" }

func (e *ProtocolResumed) fields(c fieldCodec) {
	c.pubkey(&e.Authority)
	c.i64(&e.Timestamp)
}

var eventTypes = map[[8]byte]func() Event{}

func init() {
	for _, alloc := range []func() Event{
		func() Event { return new(ProtocolInitialized) },
		func() Event { return new(BondRegistered) },
		func() Event { return new(YieldSourceRegistered) },
		func() Event { return new(DepositInitiated) },
		func() Event { return new(DirectDeposit) },
		func() Event { return new(ConversionExecuted) },
		func() Event { return new(ConversionRecordCreated) },
		func() Event { return new(WithdrawalExecuted) },
		func() Event { return new(YieldClaimed) },
		func() Event { return new(NavUpdated) },
		func() Event { return new(ProtocolPaused) },
		func() Event { return new(ProtocolResumed) },
	} {
		eventTypes[EventDiscriminator(alloc().EventName())] = alloc
	}
}

// DecodeEvent decodes one event payload (discriminator included).
// ok is false for unknown discriminators and truncated payloads.
func DecodeEvent(data []byte) (Event, bool) {
	if len(data) < DiscriminatorLength {
		return nil, false
	}
	var disc [8]byte
	copy(disc[:], data)
	alloc, known := eventTypes[disc]
	if !known {
		return nil, false
	}
	ev := alloc()
	r := &reader{data: data, off: DiscriminatorLength}
	ev.fields(r)
	if r.short {
		return nil, false
	}
	return ev, true
}

// EncodeEvent serializes ev the way the program emits it, without base64.
func EncodeEvent(ev Event) []byte {
	d := EventDiscriminator(ev.EventName())
	w := &writer{buf: append([]byte(nil), d[:]...)}
	ev.fields(w)
	return w.buf
}

// ParseEvents extracts known events from transaction log lines. Lines that
// are not event data, fail base64 or carry unknown discriminators are skipped.
func ParseEvents(logs []string) []Event {
	var events []Event
	for _, line := range logs {
		payload, ok := strings.CutPrefix(line, programDataPrefix)
		if !ok {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
		if err != nil {
			continue
		}
		if ev, ok := DecodeEvent(data); ok {
			events = append(events, ev)
		}
	}
	return events
}
