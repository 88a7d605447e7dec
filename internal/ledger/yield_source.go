package ledger

import (
	"bytes"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/solana"
)

// YieldSource is a core-program yield venue for one bond type.
// NavPerShare is scaled by 1e6.
type YieldSource struct {
	ProtocolConfig      solana.PublicKey
	Name                [32]byte
	SourceType          domain.YieldSourceType
	TokenMint           solana.PublicKey
	DepositVault        solana.PublicKey
	YieldTokenVault     solana.PublicKey
	CurrentAPYBps       uint16
	TotalDeposited      uint64
	TotalShares         uint64
	AllocationWeightBps uint16
	MinDeposit          uint64
	MaxAllocation       uint64
	IsActive            bool
	LastNavUpdate       int64
	NavPerShare         uint64
	BondType            domain.BondType
	CurrencyMint        solana.PublicKey
	OracleFeed          solana.PublicKey
	CouponRateBps       uint16
	MaturityDate        int64
	HaircutBps          uint16
	Bump                uint8
}

func (*YieldSource) Kind() Kind { return KindYieldSource }

func (y *YieldSource) fields(c fieldCodec) {
	c.pubkey(&y.ProtocolConfig)
	c.bytes(y.Name[:])
	c.u8((*uint8)(&y.SourceType))
	c.pubkey(&y.TokenMint)
	c.pubkey(&y.DepositVault)
	c.pubkey(&y.YieldTokenVault)
	c.u16(&y.CurrentAPYBps)
	c.u64(&y.TotalDeposited)
	c.u64(&y.TotalShares)
	c.u16(&y.AllocationWeightBps)
	c.u64(&y.MinDeposit)
	c.u64(&y.MaxAllocation)
	c.boolean(&y.IsActive)
	c.i64(&y.LastNavUpdate)
	c.u64(&y.NavPerShare)
	c.u8((*uint8)(&y.BondType))
	c.pubkey(&y.CurrencyMint)
	c.pubkey(&y.OracleFeed)
	c.u16(&y.CouponRateBps)
	c.i64(&y.MaturityDate)
	c.u16(&y.HaircutBps)
	c.u8(&y.Bump)
}

// DisplayName returns Name without NUL padding.
func (y *YieldSource) DisplayName() string {
	return string(bytes.TrimRight(y.Name[:], "\x00"))
}

// SetName stores name NUL-padded, truncated to 32 bytes.
func (y *YieldSource) SetName(name string) {
	y.Name = [32]byte{}
	copy(y.Name[:], name)
}
