// Package address derives the program addresses of every protocol account.
package address

import (
	"encoding/binary"
	"fmt"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/solana"
)

// Seed prefixes shared with the on-chain programs.
const (
	SeedProtocolConfig    = "stablebond_config"
	SeedBondRegistry      = "bond_registry"
	SeedYieldSource       = "yield_source"
	SeedUserPosition      = "user_position"
	SeedPendingDeposit    = "pending_deposit"
	SeedConversion        = "conversion"
	SeedUSDCVault         = "stablebond_usdc_vault"
	SeedBondVault         = "bond_vault"
	SeedBondShareMint     = "bond_share_mint"
	SeedBondCurrencyVault = "bond_currency_vault"
	SeedBondShares        = "bond_shares"
)

// Program selects which program owns a derived address.
type Program uint8

const (
	CoreProgram Program = iota
	YieldProgram
)

// Namespace is one kind of derived address. The set is closed: only the
// types in this package implement it.
type Namespace interface {
	program() Program
	seeds() [][]byte
	name() string
}

// ProtocolConfig is the core singleton.
type ProtocolConfig struct{}

// BondRegistry is the registry linked from Config.
type BondRegistry struct{ Config solana.PublicKey }

// YieldSource is keyed by the token mint it accepts.
type YieldSource struct {
	Config    solana.PublicKey
	TokenMint solana.PublicKey
}

// UserPosition is one owner's position in one bond type.
type UserPosition struct {
	Config   solana.PublicKey
	Owner    solana.PublicKey
	BondType domain.BondType
}

// PendingDeposit is keyed by the user's deposit nonce.
type PendingDeposit struct {
	Config solana.PublicKey
	User   solana.PublicKey
	Nonce  uint64
}

// ConversionRecord shares its nonce with the PendingDeposit it settles.
type ConversionRecord struct {
	Config solana.PublicKey
	User   solana.PublicKey
	Nonce  uint64
}

// USDCVault is the core program's settlement token account.
type USDCVault struct{}

// BondVault is the yield program's vault config for a bond type.
type BondVault struct {
	Authority solana.PublicKey
	BondType  domain.BondType
}

// BondShareMint is the share token mint of a bond vault.
type BondShareMint struct {
	Authority solana.PublicKey
	BondType  domain.BondType
}

// BondCurrencyVault holds a bond vault's currency deposits.
type BondCurrencyVault struct {
	Authority solana.PublicKey
	BondType  domain.BondType
}

// BondShares is one user's share record in a bond vault.
type BondShares struct {
	Vault solana.PublicKey
	User  solana.PublicKey
}

func nonceLE(n uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, n)
}

func (ProtocolConfig) program() Program { return CoreProgram }
func (ProtocolConfig) name() string     { return "protocol_config" }
func (ProtocolConfig) seeds() [][]byte {
	return [][]byte{[]byte(SeedProtocolConfig)}
}

func (BondRegistry) program() Program { return CoreProgram }
func (BondRegistry) name() string     { return "bond_registry" }
func (n BondRegistry) seeds() [][]byte {
	return [][]byte{[]byte(SeedBondRegistry), n.Config.Bytes()}
}

func (YieldSource) program() Program { return CoreProgram }
func (YieldSource) name() string     { return "yield_source" }
func (n YieldSource) seeds() [][]byte {
	return [][]byte{[]byte(SeedYieldSource), n.Config.Bytes(), n.TokenMint.Bytes()}
}

func (UserPosition) program() Program { return CoreProgram }
func (UserPosition) name() string     { return "user_position" }
func (n UserPosition) seeds() [][]byte {
	return [][]byte{[]byte(SeedUserPosition), n.Config.Bytes(), n.Owner.Bytes(), {byte(n.BondType)}}
}

func (PendingDeposit) program() Program { return CoreProgram }
func (PendingDeposit) name() string     { return "pending_deposit" }
func (n PendingDeposit) seeds() [][]byte {
	return [][]byte{[]byte(SeedPendingDeposit), n.Config.Bytes(), n.User.Bytes(), nonceLE(n.Nonce)}
}

func (ConversionRecord) program() Program { return CoreProgram }
func (ConversionRecord) name() string     { return "conversion_record" }
func (n ConversionRecord) seeds() [][]byte {
	return [][]byte{[]byte(SeedConversion), n.Config.Bytes(), n.User.Bytes(), nonceLE(n.Nonce)}
}

func (USDCVault) program() Program { return CoreProgram }
func (USDCVault) name() string     { return "usdc_vault" }
func (USDCVault) seeds() [][]byte {
	return [][]byte{[]byte(SeedUSDCVault)}
}

func (BondVault) program() Program { return YieldProgram }
func (BondVault) name() string     { return "bond_vault" }
func (n BondVault) seeds() [][]byte {
	return [][]byte{[]byte(SeedBondVault), n.Authority.Bytes(), {byte(n.BondType)}}
}

func (BondShareMint) program() Program { return YieldProgram }
func (BondShareMint) name() string     { return "bond_share_mint" }
func (n BondShareMint) seeds() [][]byte {
	return [][]byte{[]byte(SeedBondShareMint), n.Authority.Bytes(), {byte(n.BondType)}}
}

func (BondCurrencyVault) program() Program { return YieldProgram }
func (BondCurrencyVault) name() string     { return "bond_currency_vault" }
func (n BondCurrencyVault) seeds() [][]byte {
	return [][]byte{[]byte(SeedBondCurrencyVault), n.Authority.Bytes(), {byte(n.BondType)}}
}

func (BondShares) program() Program { return YieldProgram }
func (BondShares) name() string     { return "bond_shares" }
func (n BondShares) seeds() [][]byte {
	return [][]byte{[]byte(SeedBondShares), n.Vault.Bytes(), n.User.Bytes()}
}

// Derived is a program address and the bump that makes it off-curve.
type Derived struct {
	Address solana.PublicKey
	Bump    uint8
}

// Deriver computes addresses under the configured program IDs.
type Deriver struct {
	Core  solana.PublicKey
	Yield solana.PublicKey
}

// NewDeriver creates a Deriver for the given program IDs.
func NewDeriver(core, yield solana.PublicKey) *Deriver {
	return &Deriver{Core: core, Yield: yield}
}

// ProgramID returns the program that owns addresses in ns.
func (d *Deriver) ProgramID(ns Namespace) solana.PublicKey {
	switch ns.program() {
	case YieldProgram:
		return d.Yield
	default:
		return d.Core
	}
}

// Derive returns the canonical address for ns.
func (d *Deriver) Derive(ns Namespace) (Derived, error) {
	addr, bump, err := solana.FindProgramAddress(ns.seeds(), d.ProgramID(ns))
	if err != nil {
		return Derived{}, fmt.Errorf("derive %s: %w", ns.name(), err)
	}
	return Derived{Address: addr, Bump: bump}, nil
}

// Address is Derive without the bump.
func (d *Deriver) Address(ns Namespace) (solana.PublicKey, error) {
	derived, err := d.Derive(ns)
	return derived.Address, err
}

// Seeds returns the seed list for ns, bump excluded.
func Seeds(ns Namespace) [][]byte {
	return ns.seeds()
}
