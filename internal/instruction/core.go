package instruction

import (
	"stablebond-keeper/internal/address"
	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/ledger"
	"stablebond-keeper/internal/solana"
)

// Core program instruction names.
const (
	InitializeProtocol   = "initialize_protocol"
	RegisterBond         = "register_bond"
	RegisterYieldSource  = "register_yield_source"
	DepositCrossCurrency = "deposit_cross_currency"
	DepositDirect        = "deposit_direct"
	ExecuteConversion    = "execute_conversion"
	Withdraw             = "withdraw"
	ClaimYield           = "claim_yield"
	UpdateNav            = "update_nav"
	UpdateProtocolConfig = "update_protocol_config"
	UpdateYieldSource    = "update_yield_source"
	PauseProtocol        = "pause_protocol"
	ResumeProtocol       = "resume_protocol"
)

// Core builds core program instructions. Program-derived accounts are
// resolved with the deriver; everything else is supplied by the caller.
type Core struct {
	deriver *address.Deriver
}

// NewCore creates a core program builder.
func NewCore(d *address.Deriver) *Core {
	return &Core{deriver: d}
}

// ProgramID returns the core program address.
func (c *Core) ProgramID() solana.PublicKey {
	return c.deriver.Core
}

func (c *Core) build(a *args, metas ...solana.AccountMeta) solana.Instruction {
	return solana.Instruction{ProgramID: c.deriver.Core, Accounts: metas, Data: a.bytes()}
}

func (c *Core) config() (solana.PublicKey, error) {
	return c.deriver.Address(address.ProtocolConfig{})
}

// InitializeProtocolParams are the protocol's initial settings.
type InitializeProtocolParams struct {
	Treasury          solana.PublicKey
	KYCRegistry       solana.PublicKey
	SovereignProgram  solana.PublicKey
	ConversionFeeBps  uint16
	ManagementFeeBps  uint16
	PerformanceFeeBps uint16
}

// InitializeProtocol creates the config, bond registry and USDC vault.
func (c *Core) InitializeProtocol(authority, usdcMint solana.PublicKey, p InitializeProtocolParams) (solana.Instruction, error) {
	config, err := c.config()
	if err != nil {
		return solana.Instruction{}, err
	}
	registry, err := c.deriver.Address(address.BondRegistry{Config: config})
	if err != nil {
		return solana.Instruction{}, err
	}
	vault, err := c.deriver.Address(address.USDCVault{})
	if err != nil {
		return solana.Instruction{}, err
	}
	a := newArgs(InitializeProtocol).
		pubkey(p.Treasury).
		pubkey(p.KYCRegistry).
		pubkey(p.SovereignProgram).
		u16(p.ConversionFeeBps).
		u16(p.ManagementFeeBps).
		u16(p.PerformanceFeeBps)
	return c.build(a,
		signerMut(authority),
		mut(config),
		mut(registry),
		readonly(usdcMint),
		mut(vault),
		readonly(solana.TokenProgramID),
		readonly(solana.SystemProgramID),
		readonly(solana.SysvarRentID),
	), nil
}

// RegisterBond appends a bond entry to the registry.
func (c *Core) RegisterBond(authority solana.PublicKey, bond ledger.BondConfig) (solana.Instruction, error) {
	config, err := c.config()
	if err != nil {
		return solana.Instruction{}, err
	}
	registry, err := c.deriver.Address(address.BondRegistry{Config: config})
	if err != nil {
		return solana.Instruction{}, err
	}
	a := newArgs(RegisterBond)
	a.buf = bond.AppendBorsh(a.buf)
	return c.build(a,
		signerMut(authority),
		mut(config),
		mut(registry),
	), nil
}

// RegisterYieldSourceParams describe a new yield source.
type RegisterYieldSourceParams struct {
	Name                [32]byte
	SourceType          domain.YieldSourceType
	BondType            domain.BondType
	DepositVault        solana.PublicKey
	YieldTokenVault     solana.PublicKey
	CurrencyMint        solana.PublicKey
	OracleFeed          solana.PublicKey
	CouponRateBps       uint16
	MaturityDate        int64
	HaircutBps          uint16
	AllocationWeightBps uint16
	MinDeposit          uint64
	MaxAllocation       uint64
}

// RegisterYieldSource creates the yield source keyed by tokenMint.
func (c *Core) RegisterYieldSource(authority, tokenMint solana.PublicKey, p RegisterYieldSourceParams) (solana.Instruction, error) {
	config, err := c.config()
	if err != nil {
		return solana.Instruction{}, err
	}
	source, err := c.deriver.Address(address.YieldSource{Config: config, TokenMint: tokenMint})
	if err != nil {
		return solana.Instruction{}, err
	}
	a := newArgs(RegisterYieldSource).
		raw(p.Name[:]).
		u8(uint8(p.SourceType)).
		u8(uint8(p.BondType)).
		pubkey(p.DepositVault).
		pubkey(p.YieldTokenVault).
		pubkey(p.CurrencyMint).
		pubkey(p.OracleFeed).
		u16(p.CouponRateBps).
		i64(p.MaturityDate).
		u16(p.HaircutBps).
		u16(p.AllocationWeightBps).
		u64(p.MinDeposit).
		u64(p.MaxAllocation)
	return c.build(a,
		signerMut(authority),
		readonly(config),
		readonly(tokenMint),
		mut(source),
		readonly(solana.SystemProgramID),
	), nil
}

// Identity holds the accounts the program reads to check KYC and tier.
type Identity struct {
	WhitelistEntry    solana.PublicKey
	SovereignIdentity solana.PublicKey
}

// CrossCurrencyDeposit holds the accounts of a cross-currency deposit.
// Nonce must be the protocol's deposit nonce plus one.
type CrossCurrencyDeposit struct {
	User          solana.PublicKey
	SourceMint    solana.PublicKey
	UserSourceATA solana.PublicKey
	SourceVault   solana.PublicKey
	Nonce         uint64
	Identity      Identity
}

// DepositCrossCurrency escrows a non-settlement deposit for keeper conversion.
func (c *Core) DepositCrossCurrency(acc CrossCurrencyDeposit, amount uint64, bondType domain.BondType, minOutput uint64) (solana.Instruction, error) {
	config, err := c.config()
	if err != nil {
		return solana.Instruction{}, err
	}
	position, err := c.deriver.Address(address.UserPosition{Config: config, Owner: acc.User, BondType: bondType})
	if err != nil {
		return solana.Instruction{}, err
	}
	pending, err := c.deriver.Address(address.PendingDeposit{Config: config, User: acc.User, Nonce: acc.Nonce})
	if err != nil {
		return solana.Instruction{}, err
	}
	a := newArgs(DepositCrossCurrency).u64(amount).u8(uint8(bondType)).u64(minOutput)
	return c.build(a,
		signerMut(acc.User),
		mut(config),
		readonly(acc.SourceMint),
		mut(acc.UserSourceATA),
		mut(acc.SourceVault),
		mut(position),
		mut(pending),
		readonly(acc.Identity.WhitelistEntry),
		readonly(acc.Identity.SovereignIdentity),
		readonly(solana.TokenProgramID),
		readonly(solana.SystemProgramID),
	), nil
}

// UserFlow holds the accounts shared by direct deposits, withdrawals and
// yield claims: the yield source is keyed by TokenMint.
type UserFlow struct {
	User         solana.PublicKey
	TokenMint    solana.PublicKey
	UserToken    solana.PublicKey
	DepositVault solana.PublicKey
}

func (c *Core) userFlow(acc UserFlow, bondType domain.BondType) (config, source, position solana.PublicKey, err error) {
	if config, err = c.config(); err != nil {
		return
	}
	if source, err = c.deriver.Address(address.YieldSource{Config: config, TokenMint: acc.TokenMint}); err != nil {
		return
	}
	position, err = c.deriver.Address(address.UserPosition{Config: config, Owner: acc.User, BondType: bondType})
	return
}

// DepositDirect deposits settlement currency straight into a yield source.
func (c *Core) DepositDirect(acc UserFlow, id Identity, amount uint64, bondType domain.BondType) (solana.Instruction, error) {
	config, source, position, err := c.userFlow(acc, bondType)
	if err != nil {
		return solana.Instruction{}, err
	}
	a := newArgs(DepositDirect).u64(amount).u8(uint8(bondType))
	return c.build(a,
		signerMut(acc.User),
		mut(config),
		mut(source),
		mut(acc.UserToken),
		mut(acc.DepositVault),
		mut(position),
		readonly(id.WhitelistEntry),
		readonly(id.SovereignIdentity),
		readonly(solana.TokenProgramID),
		readonly(solana.SystemProgramID),
	), nil
}

// Conversion holds the accounts of execute_conversion that cannot be
// derived from the pending deposit.
type Conversion struct {
	Keeper            solana.PublicKey
	PendingDeposit    solana.PublicKey
	User              solana.PublicKey
	BondType          domain.BondType
	Nonce             uint64
	USDCVault         solana.PublicKey
	Oracle            solana.PublicKey
	YieldSource       solana.PublicKey
	YieldDepositVault solana.PublicKey
}

// ExecuteConversion settles a pending cross-currency deposit. The user
// position and conversion record are derived from User, BondType and Nonce.
func (c *Core) ExecuteConversion(acc Conversion) (solana.Instruction, error) {
	config, err := c.config()
	if err != nil {
		return solana.Instruction{}, err
	}
	position, err := c.deriver.Address(address.UserPosition{Config: config, Owner: acc.User, BondType: acc.BondType})
	if err != nil {
		return solana.Instruction{}, err
	}
	record, err := c.deriver.Address(address.ConversionRecord{Config: config, User: acc.User, Nonce: acc.Nonce})
	if err != nil {
		return solana.Instruction{}, err
	}
	return c.build(newArgs(ExecuteConversion),
		signerMut(acc.Keeper),
		mut(config),
		mut(acc.PendingDeposit),
		mut(position),
		mut(acc.USDCVault),
		readonly(acc.Oracle),
		mut(acc.YieldSource),
		mut(acc.YieldDepositVault),
		mut(record),
		readonly(solana.TokenProgramID),
		readonly(solana.SystemProgramID),
	), nil
}

// Withdraw redeems shares of bondType.
func (c *Core) Withdraw(acc UserFlow, shares uint64, bondType domain.BondType) (solana.Instruction, error) {
	config, source, position, err := c.userFlow(acc, bondType)
	if err != nil {
		return solana.Instruction{}, err
	}
	a := newArgs(Withdraw).u64(shares).u8(uint8(bondType))
	return c.build(a,
		signerMut(acc.User),
		mut(config),
		mut(source),
		mut(position),
		mut(acc.DepositVault),
		mut(acc.UserToken),
		readonly(solana.TokenProgramID),
	), nil
}

// ClaimYield pays out accrued yield without redeeming shares.
func (c *Core) ClaimYield(acc UserFlow, bondType domain.BondType) (solana.Instruction, error) {
	config, source, position, err := c.userFlow(acc, bondType)
	if err != nil {
		return solana.Instruction{}, err
	}
	a := newArgs(ClaimYield).u8(uint8(bondType))
	return c.build(a,
		signerMut(acc.User),
		mut(config),
		readonly(source),
		mut(position),
		mut(acc.DepositVault),
		mut(acc.UserToken),
		readonly(solana.TokenProgramID),
	), nil
}

// UpdateNav copies a bond vault's NAV into the yield source keyed by tokenMint.
func (c *Core) UpdateNav(keeper, tokenMint, bondVault solana.PublicKey) (solana.Instruction, error) {
	config, err := c.config()
	if err != nil {
		return solana.Instruction{}, err
	}
	source, err := c.deriver.Address(address.YieldSource{Config: config, TokenMint: tokenMint})
	if err != nil {
		return solana.Instruction{}, err
	}
	return c.build(newArgs(UpdateNav),
		signer(keeper),
		mut(config),
		mut(source),
		readonly(bondVault),
	), nil
}

// ProtocolConfigUpdate changes the non-nil fields only.
type ProtocolConfigUpdate struct {
	Treasury          *solana.PublicKey
	ConversionFeeBps  *uint16
	ManagementFeeBps  *uint16
	PerformanceFeeBps *uint16
}

// UpdateProtocolConfig applies an authority-signed settings change.
func (c *Core) UpdateProtocolConfig(authority solana.PublicKey, p ProtocolConfigUpdate) (solana.Instruction, error) {
	config, err := c.config()
	if err != nil {
		return solana.Instruction{}, err
	}
	a := newArgs(UpdateProtocolConfig).
		optPubkey(p.Treasury).
		optU16(p.ConversionFeeBps).
		optU16(p.ManagementFeeBps).
		optU16(p.PerformanceFeeBps)
	return c.build(a, signer(authority), mut(config)), nil
}

// YieldSourceUpdate changes the non-nil fields only.
type YieldSourceUpdate struct {
	AllocationWeightBps *uint16
	MinDeposit          *uint64
	MaxAllocation       *uint64
	IsActive            *bool
}

// UpdateYieldSource applies an authority-signed change to one yield source.
func (c *Core) UpdateYieldSource(authority, tokenMint solana.PublicKey, p YieldSourceUpdate) (solana.Instruction, error) {
	config, err := c.config()
	if err != nil {
		return solana.Instruction{}, err
	}
	source, err := c.deriver.Address(address.YieldSource{Config: config, TokenMint: tokenMint})
	if err != nil {
		return solana.Instruction{}, err
	}
	a := newArgs(UpdateYieldSource).
		optU16(p.AllocationWeightBps).
		optU64(p.MinDeposit).
		optU64(p.MaxAllocation).
		optBool(p.IsActive)
	return c.build(a, signer(authority), readonly(config), mut(source)), nil
}

// PauseProtocol stops deposits and conversions.
func (c *Core) PauseProtocol(authority solana.PublicKey) (solana.Instruction, error) {
	return c.toggle(PauseProtocol, authority)
}

// ResumeProtocol reverses PauseProtocol.
func (c *Core) ResumeProtocol(authority solana.PublicKey) (solana.Instruction, error) {
	return c.toggle(ResumeProtocol, authority)
}

func (c *Core) toggle(name string, authority solana.PublicKey) (solana.Instruction, error) {
	config, err := c.config()
	if err != nil {
		return solana.Instruction{}, err
	}
	return c.build(newArgs(name), signer(authority), mut(config)), nil
}
