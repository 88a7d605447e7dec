package ledger

import (
	"fmt"
	"math"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/solana"
)

// Account sizes in bytes, discriminator included.
const (
	ProtocolConfigSize   = 290
	BondConfigSize       = 92
	BondRegistryBaseSize = 45
	YieldSourceSize      = 300
	UserPositionSize     = 163
	PendingDepositSize   = 139
	ConversionRecordSize = 123
	BondVaultSize        = 185
	UserSharesSize       = 97
)

// ProtocolConfig is the core program's singleton configuration.
type ProtocolConfig struct {
	Authority         solana.PublicKey
	Treasury          solana.PublicKey
	USDCMint          solana.PublicKey
	USDCVault         solana.PublicKey
	KYCRegistry       solana.PublicKey
	SovereignProgram  solana.PublicKey
	BondRegistry      solana.PublicKey
	ConversionFeeBps  uint16
	ManagementFeeBps  uint16
	PerformanceFeeBps uint16
	TotalDeposits     uint64
	TotalYieldEarned  uint64
	PendingConversion uint64
	DepositNonce      uint64
	NumSupportedBonds uint8
	IsActive          bool
	CreatedAt         int64
	UpdatedAt         int64
	Bump              uint8
	USDCVaultBump     uint8
}

func (*ProtocolConfig) Kind() Kind { return KindProtocolConfig }

func (p *ProtocolConfig) fields(c fieldCodec) {
	c.pubkey(&p.Authority)
	c.pubkey(&p.Treasury)
	c.pubkey(&p.USDCMint)
	c.pubkey(&p.USDCVault)
	c.pubkey(&p.KYCRegistry)
	c.pubkey(&p.SovereignProgram)
	c.pubkey(&p.BondRegistry)
	c.u16(&p.ConversionFeeBps)
	c.u16(&p.ManagementFeeBps)
	c.u16(&p.PerformanceFeeBps)
	c.u64(&p.TotalDeposits)
	c.u64(&p.TotalYieldEarned)
	c.u64(&p.PendingConversion)
	c.u64(&p.DepositNonce)
	c.u8(&p.NumSupportedBonds)
	c.boolean(&p.IsActive)
	c.i64(&p.CreatedAt)
	c.i64(&p.UpdatedAt)
	c.u8(&p.Bump)
	c.u8(&p.USDCVaultBump)
}

// ConsistentWith checks that the bond count matches the linked registry.
func (p *ProtocolConfig) ConsistentWith(reg *BondRegistry) error {
	if reg == nil {
		return fmt.Errorf("protocol config lists %d bonds but registry is missing", p.NumSupportedBonds)
	}
	if int(p.NumSupportedBonds) != len(reg.Bonds) {
		return fmt.Errorf("protocol config lists %d bonds, registry has %d", p.NumSupportedBonds, len(reg.Bonds))
	}
	return nil
}

// BondConfig is one entry of the bond registry.
type BondConfig struct {
	BondType      domain.BondType
	CurrencyMint  solana.PublicKey
	Denomination  [3]byte
	OracleFeed    solana.PublicKey
	CouponRateBps uint16
	// MaturityDate is a unix timestamp; 0 means perpetual.
	MaturityDate  int64
	FaceValue     uint64
	HaircutBps    uint16
	DefaultAPYBps uint16
	MinTier       domain.Tier
	IsActive      bool
}

func (b *BondConfig) fields(c fieldCodec) {
	c.u8((*uint8)(&b.BondType))
	c.pubkey(&b.CurrencyMint)
	c.bytes(b.Denomination[:])
	c.pubkey(&b.OracleFeed)
	c.u16(&b.CouponRateBps)
	c.i64(&b.MaturityDate)
	c.u64(&b.FaceValue)
	c.u16(&b.HaircutBps)
	c.u16(&b.DefaultAPYBps)
	c.u8((*uint8)(&b.MinTier))
	c.boolean(&b.IsActive)
}

// AppendBorsh appends b in its instruction-argument encoding, which matches
// the registry entry layout.
func (b BondConfig) AppendBorsh(buf []byte) []byte {
	w := &writer{buf: buf}
	b.fields(w)
	return w.buf
}

// Currency returns the 3-letter denomination code.
func (b *BondConfig) Currency() string {
	return string(b.Denomination[:])
}

// Perpetual reports whether the bond has no maturity.
func (b *BondConfig) Perpetual() bool {
	return b.MaturityDate == 0
}

// BondRegistry lists every bond type the protocol supports.
type BondRegistry struct {
	ProtocolConfig solana.PublicKey
	Bonds          []BondConfig
	Bump           uint8
}

func (*BondRegistry) Kind() Kind { return KindBondRegistry }

func (r *BondRegistry) fields(c fieldCodec) {
	c.pubkey(&r.ProtocolConfig)
	n := uint32(len(r.Bonds))
	c.u32(&n)
	if int(n) != len(r.Bonds) {
		r.Bonds = make([]BondConfig, n)
	}
	for i := range r.Bonds {
		r.Bonds[i].fields(c)
	}
	c.u8(&r.Bump)
}

// bondRegistrySize reads the vector length to size the record. A buffer too
// short to hold the length needs at least the empty layout.
func bondRegistrySize(data []byte) int {
	const countOffset = DiscriminatorLength + solana.PublicKeyLength
	if len(data) < countOffset+4 {
		return BondRegistryBaseSize
	}
	var n uint32
	r := &reader{data: data, off: countOffset}
	r.u32(&n)
	size := uint64(BondRegistryBaseSize) + uint64(n)*BondConfigSize
	if size > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(size)
}

// Find returns the registry entry for bondType.
func (r *BondRegistry) Find(bondType domain.BondType) (*BondConfig, bool) {
	for i := range r.Bonds {
		if r.Bonds[i].BondType == bondType {
			return &r.Bonds[i], true
		}
	}
	return nil, false
}

// Active returns the entries with IsActive set, in registry order.
func (r *BondRegistry) Active() []BondConfig {
	var out []BondConfig
	for _, b := range r.Bonds {
		if b.IsActive {
			out = append(out, b)
		}
	}
	return out
}
