package ledger

import (
	"time"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/solana"
)

// UserPosition tracks one owner's holdings in one bond type.
type UserPosition struct {
	Owner            solana.PublicKey
	ProtocolConfig   solana.PublicKey
	BondType         domain.BondType
	TotalDeposited   uint64
	CurrentShares    uint64
	CostBasis        uint64
	RealizedYield    uint64
	SovereignTier    domain.Tier
	MonthlyDeposited uint64
	MonthStart       int64
	DepositCount     uint32
	WithdrawalCount  uint32
	LastDepositAt    int64
	LastWithdrawalAt int64
	// DepositNonce seeds the next PendingDeposit address.
	DepositNonce uint64
	CreatedAt    int64
	Bump         uint8
}

func (*UserPosition) Kind() Kind { return KindUserPosition }

func (u *UserPosition) fields(c fieldCodec) {
	c.pubkey(&u.Owner)
	c.pubkey(&u.ProtocolConfig)
	c.u8((*uint8)(&u.BondType))
	c.u64(&u.TotalDeposited)
	c.u64(&u.CurrentShares)
	c.u64(&u.CostBasis)
	c.u64(&u.RealizedYield)
	c.u8((*uint8)(&u.SovereignTier))
	c.u64(&u.MonthlyDeposited)
	c.i64(&u.MonthStart)
	c.u32(&u.DepositCount)
	c.u32(&u.WithdrawalCount)
	c.i64(&u.LastDepositAt)
	c.i64(&u.LastWithdrawalAt)
	c.u64(&u.DepositNonce)
	c.i64(&u.CreatedAt)
	c.u8(&u.Bump)
}

// Closed reports whether the position holds no shares.
func (u *UserPosition) Closed() bool {
	return u.CurrentShares == 0
}

// PendingDeposit offsets used by program-account filters.
const (
	PendingDepositStatusOffset = 105
	PendingDepositNonceOffset  = 130
)

// PendingDeposit is a cross-currency deposit awaiting conversion.
type PendingDeposit struct {
	User               solana.PublicKey
	ProtocolConfig     solana.PublicKey
	BondType           domain.BondType
	SourceAmount       uint64
	MinOutput          uint64
	DepositedAt        int64
	ExpiresAt          int64
	Status             domain.DepositStatus
	ConversionRate     uint64
	SettlementReceived uint64
	FeePaid            uint64
	Nonce              uint64
	Bump               uint8
}

func (*PendingDeposit) Kind() Kind { return KindPendingDeposit }

func (p *PendingDeposit) fields(c fieldCodec) {
	c.pubkey(&p.User)
	c.pubkey(&p.ProtocolConfig)
	c.u8((*uint8)(&p.BondType))
	c.u64(&p.SourceAmount)
	c.u64(&p.MinOutput)
	c.i64(&p.DepositedAt)
	c.i64(&p.ExpiresAt)
	c.u8((*uint8)(&p.Status))
	c.u64(&p.ConversionRate)
	c.u64(&p.SettlementReceived)
	c.u64(&p.FeePaid)
	c.u64(&p.Nonce)
	c.u8(&p.Bump)
}

// Expired reports whether the program would reject conversion at now. The
// program accepts conversion up to and including ExpiresAt.
func (p *PendingDeposit) Expired(now time.Time) bool {
	return now.Unix() > p.ExpiresAt
}

// ConversionRecord is the audit trail written when a deposit converts.
type ConversionRecord struct {
	User             solana.PublicKey
	ProtocolConfig   solana.PublicKey
	BondType         domain.BondType
	SourceAmount     uint64
	SettlementAmount uint64
	ExchangeRate     uint64
	FeeAmount        uint64
	Direction        domain.ConversionDirection
	Timestamp        int64
	Nonce            uint64
	Bump             uint8
}

func (*ConversionRecord) Kind() Kind { return KindConversionRecord }

func (r *ConversionRecord) fields(c fieldCodec) {
	c.pubkey(&r.User)
	c.pubkey(&r.ProtocolConfig)
	c.u8((*uint8)(&r.BondType))
	c.u64(&r.SourceAmount)
	c.u64(&r.SettlementAmount)
	c.u64(&r.ExchangeRate)
	c.u64(&r.FeeAmount)
	c.u8((*uint8)(&r.Direction))
	c.i64(&r.Timestamp)
	c.u64(&r.Nonce)
	c.u8(&r.Bump)
}
