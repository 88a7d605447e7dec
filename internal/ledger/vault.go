package ledger

import (
	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/solana"
)

// BondVault offsets used by monitoring filters.
const (
	BondVaultTargetAPYOffset = 147
	BondVaultNavOffset       = 165
)

// BondVault is the yield program's per-bond vault. NavPerShare starts at
// 1_000_000 and only increases until maturity.
type BondVault struct {
	Authority     solana.PublicKey
	CurrencyMint  solana.PublicKey
	ShareMint     solana.PublicKey
	CurrencyVault solana.PublicKey
	BondType      domain.BondType
	CouponRateBps uint16
	MaturityDate  int64
	TargetAPYBps  uint16
	TotalDeposits uint64
	TotalShares   uint64
	NavPerShare   uint64
	LastAccrual   int64
	IsActive      bool
	Bump          uint8
	ShareMintBump uint8
	VaultBump     uint8
}

func (*BondVault) Kind() Kind { return KindBondVault }

func (v *BondVault) fields(c fieldCodec) {
	c.pubkey(&v.Authority)
	c.pubkey(&v.CurrencyMint)
	c.pubkey(&v.ShareMint)
	c.pubkey(&v.CurrencyVault)
	c.u8((*uint8)(&v.BondType))
	c.u16(&v.CouponRateBps)
	c.i64(&v.MaturityDate)
	c.u16(&v.TargetAPYBps)
	c.u64(&v.TotalDeposits)
	c.u64(&v.TotalShares)
	c.u64(&v.NavPerShare)
	c.i64(&v.LastAccrual)
	c.boolean(&v.IsActive)
	c.u8(&v.Bump)
	c.u8(&v.ShareMintBump)
	c.u8(&v.VaultBump)
}

// Matured reports whether accrual has stopped at unix time now.
func (v *BondVault) Matured(now int64) bool {
	return v.MaturityDate > 0 && now >= v.MaturityDate
}

// UserShares tracks one user's stake in a BondVault.
type UserShares struct {
	User            solana.PublicKey
	Vault           solana.PublicKey
	Shares          uint64
	DepositedAmount uint64
	LastDepositAt   int64
	Bump            uint8
}

func (*UserShares) Kind() Kind { return KindUserShares }

func (s *UserShares) fields(c fieldCodec) {
	c.pubkey(&s.User)
	c.pubkey(&s.Vault)
	c.u64(&s.Shares)
	c.u64(&s.DepositedAmount)
	c.i64(&s.LastDepositAt)
	c.u8(&s.Bump)
}
