package instruction

import (
	"fmt"

	"stablebond-keeper/internal/address"
	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/solana"
)

// Yield program instruction names.
const (
	InitializeVault = "initialize_vault"
	VaultDeposit    = "deposit"
	VaultWithdraw   = "withdraw"
	AccrueYield     = "accrue_yield"
	UpdateAPY       = "update_apy"
)

// MaxAPYBps is the highest target APY a bond vault accepts.
const MaxAPYBps = 5000

// Yield builds yield program instructions. Vault accounts are derived from
// the vault authority and bond type.
type Yield struct {
	deriver *address.Deriver
}

// NewYield creates a yield program builder.
func NewYield(d *address.Deriver) *Yield {
	return &Yield{deriver: d}
}

// ProgramID returns the yield program address.
func (y *Yield) ProgramID() solana.PublicKey {
	return y.deriver.Yield
}

func (y *Yield) build(a *args, metas ...solana.AccountMeta) solana.Instruction {
	return solana.Instruction{ProgramID: y.deriver.Yield, Accounts: metas, Data: a.bytes()}
}

type vaultAccounts struct {
	config, shareMint, currencyVault solana.PublicKey
}

func (y *Yield) vault(authority solana.PublicKey, bondType domain.BondType) (v vaultAccounts, err error) {
	if v.config, err = y.deriver.Address(address.BondVault{Authority: authority, BondType: bondType}); err != nil {
		return
	}
	if v.shareMint, err = y.deriver.Address(address.BondShareMint{Authority: authority, BondType: bondType}); err != nil {
		return
	}
	v.currencyVault, err = y.deriver.Address(address.BondCurrencyVault{Authority: authority, BondType: bondType})
	return
}

func checkAPY(bps uint16) error {
	if bps > MaxAPYBps {
		return fmt.Errorf("apy %d bps exceeds maximum %d", bps, MaxAPYBps)
	}
	return nil
}

// InitializeVault creates the vault config, share mint and currency vault
// for bondType.
func (y *Yield) InitializeVault(authority, currencyMint solana.PublicKey, bondType domain.BondType, targetAPYBps, couponRateBps uint16, maturityDate int64) (solana.Instruction, error) {
	if err := checkAPY(targetAPYBps); err != nil {
		return solana.Instruction{}, err
	}
	v, err := y.vault(authority, bondType)
	if err != nil {
		return solana.Instruction{}, err
	}
	a := newArgs(InitializeVault).u8(uint8(bondType)).u16(targetAPYBps).u16(couponRateBps).i64(maturityDate)
	return y.build(a,
		signerMut(authority),
		mut(v.config),
		readonly(currencyMint),
		mut(v.shareMint),
		mut(v.currencyVault),
		readonly(solana.TokenProgramID),
		readonly(solana.SystemProgramID),
		readonly(solana.SysvarRentID),
	), nil
}

// VaultHolder holds a depositor's token accounts for one vault.
type VaultHolder struct {
	User         solana.PublicKey
	UserCurrency solana.PublicKey
	UserShareATA solana.PublicKey
}

func (y *Yield) holderMetas(h VaultHolder, v vaultAccounts) ([]solana.AccountMeta, error) {
	shares, err := y.deriver.Address(address.BondShares{Vault: v.config, User: h.User})
	if err != nil {
		return nil, err
	}
	return []solana.AccountMeta{
		signerMut(h.User),
		mut(v.config),
		mut(v.currencyVault),
		mut(v.shareMint),
		mut(h.UserCurrency),
		mut(h.UserShareATA),
		mut(shares),
		readonly(solana.TokenProgramID),
	}, nil
}

// Deposit buys vault shares at the current NAV.
func (y *Yield) Deposit(authority solana.PublicKey, bondType domain.BondType, h VaultHolder, amount uint64) (solana.Instruction, error) {
	v, err := y.vault(authority, bondType)
	if err != nil {
		return solana.Instruction{}, err
	}
	metas, err := y.holderMetas(h, v)
	if err != nil {
		return solana.Instruction{}, err
	}
	metas = append(metas, readonly(solana.SystemProgramID))
	return y.build(newArgs(VaultDeposit).u64(amount), metas...), nil
}

// Withdraw burns shares for currency at the current NAV.
func (y *Yield) Withdraw(authority solana.PublicKey, bondType domain.BondType, h VaultHolder, shares uint64) (solana.Instruction, error) {
	v, err := y.vault(authority, bondType)
	if err != nil {
		return solana.Instruction{}, err
	}
	metas, err := y.holderMetas(h, v)
	if err != nil {
		return solana.Instruction{}, err
	}
	return y.build(newArgs(VaultWithdraw).u64(shares), metas...), nil
}

// AccrueYield advances the vault NAV to the current time. It needs no signer
// beyond the fee payer.
func (y *Yield) AccrueYield(authority solana.PublicKey, bondType domain.BondType) (solana.Instruction, error) {
	config, err := y.deriver.Address(address.BondVault{Authority: authority, BondType: bondType})
	if err != nil {
		return solana.Instruction{}, err
	}
	return y.build(newArgs(AccrueYield), mut(config)), nil
}

// UpdateAPY changes the vault's target APY.
func (y *Yield) UpdateAPY(authority solana.PublicKey, bondType domain.BondType, apyBps uint16) (solana.Instruction, error) {
	if err := checkAPY(apyBps); err != nil {
		return solana.Instruction{}, err
	}
	config, err := y.deriver.Address(address.BondVault{Authority: authority, BondType: bondType})
	if err != nil {
		return solana.Instruction{}, err
	}
	return y.build(newArgs(UpdateAPY).u16(apyBps), signer(authority), mut(config)), nil
}
