// Package fixture seeds an in-memory ledger with a consistent protocol
// deployment for tests and dry runs.
package fixture

import (
	"crypto/sha256"

	"stablebond-keeper/internal/address"
	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/ledger"
	"stablebond-keeper/internal/solana"
	"stablebond-keeper/internal/solana/stub"
	"stablebond-keeper/internal/yieldmath"
)

// Default program IDs of the deployed protocol.
var (
	CoreProgramID  = solana.MustPublicKey("3fnWkVPz51AJjYodQY5VCzteD5enRmkWBTsu3gPedaYs")
	YieldProgramID = solana.MustPublicKey("DLFUfzV4iqCzxmmXmCpR7qH6nhvPSLUekq7JCezV1LeE")
)

// Key returns a deterministic public key for a label.
func Key(label string) solana.PublicKey {
	return solana.PublicKey(sha256.Sum256([]byte(label)))
}

// World is a protocol deployment stored in a stub ledger. Mutators write
// through to RPC immediately.
type World struct {
	RPC       *stub.RPCClient
	Deriver   *address.Deriver
	Authority solana.PublicKey
	Config    solana.PublicKey
	Protocol  ledger.ProtocolConfig
	Registry  ledger.BondRegistry

	Now int64
}

// NewWorld creates an active, initialized protocol with no bonds.
func NewWorld() *World {
	w := &World{
		RPC:       stub.NewRPCClient(),
		Deriver:   address.NewDeriver(CoreProgramID, YieldProgramID),
		Authority: Key("authority"),
		Now:       1_700_000_000,
	}
	w.Config = w.must(address.ProtocolConfig{})
	w.Protocol = ledger.ProtocolConfig{
		Authority:        w.Authority,
		Treasury:         Key("treasury"),
		USDCMint:         Key("usdc-mint"),
		USDCVault:        w.must(address.USDCVault{}),
		BondRegistry:     w.must(address.BondRegistry{Config: w.Config}),
		ConversionFeeBps: 30,
		IsActive:         true,
		CreatedAt:        w.Now,
		UpdatedAt:        w.Now,
	}
	w.Registry = ledger.BondRegistry{ProtocolConfig: w.Config}
	w.sync()
	return w
}

func (w *World) must(ns address.Namespace) solana.PublicKey {
	pk, err := w.Deriver.Address(ns)
	if err != nil {
		panic(err)
	}
	return pk
}

// Address derives ns under the world's program IDs.
func (w *World) Address(ns address.Namespace) solana.PublicKey {
	return w.must(ns)
}

func (w *World) sync() {
	w.RPC.SetAccount(w.Config, CoreProgramID, ledger.Encode(&w.Protocol))
	w.RPC.SetAccount(w.Protocol.BondRegistry, CoreProgramID, ledger.Encode(&w.Registry))
}

// CurrencyMint returns the mint used for bt's currency.
func CurrencyMint(bt domain.BondType) solana.PublicKey {
	return Key("mint:" + bt.String())
}

// AddBond registers bt with its yield source and bond vault, both at par.
func (w *World) AddBond(bt domain.BondType) ledger.BondConfig {
	mint := CurrencyMint(bt)
	var denom [3]byte
	copy(denom[:], bt.Currency())
	bond := ledger.BondConfig{
		BondType:      bt,
		CurrencyMint:  mint,
		Denomination:  denom,
		OracleFeed:    Key("oracle:" + bt.String()),
		CouponRateBps: bt.DefaultAPYBps(),
		FaceValue:     yieldmath.NavScale,
		DefaultAPYBps: bt.DefaultAPYBps(),
		MinTier:       domain.TierBronze,
		IsActive:      true,
	}
	w.Registry.Bonds = append(w.Registry.Bonds, bond)
	w.Protocol.NumSupportedBonds = uint8(len(w.Registry.Bonds))
	w.sync()

	source := ledger.YieldSource{
		ProtocolConfig: w.Config,
		SourceType:     domain.YieldSourceSovereignBond,
		TokenMint:      mint,
		DepositVault:   Key("deposit-vault:" + bt.String()),
		CurrentAPYBps:  bt.DefaultAPYBps(),
		IsActive:       true,
		LastNavUpdate:  w.Now,
		NavPerShare:    yieldmath.NavScale,
		BondType:       bt,
		CurrencyMint:   mint,
		OracleFeed:     bond.OracleFeed,
	}
	source.SetName(bt.Label())
	w.RPC.SetAccount(w.YieldSourceAddress(bt), CoreProgramID, ledger.Encode(&source))

	w.SetVault(bt, yieldmath.NavScale)
	return bond
}

// DeactivateBond marks bt inactive in the registry.
func (w *World) DeactivateBond(bt domain.BondType) {
	for i := range w.Registry.Bonds {
		if w.Registry.Bonds[i].BondType == bt {
			w.Registry.Bonds[i].IsActive = false
		}
	}
	w.sync()
}

// SetActive pauses or resumes the protocol.
func (w *World) SetActive(active bool) {
	w.Protocol.IsActive = active
	w.sync()
}

// RemoveRegistry deletes the bond registry account.
func (w *World) RemoveRegistry() {
	w.RPC.DeleteAccount(w.Protocol.BondRegistry)
}

// RemoveYieldSource deletes bt's yield source account.
func (w *World) RemoveYieldSource(bt domain.BondType) {
	w.RPC.DeleteAccount(w.YieldSourceAddress(bt))
}

// YieldSourceAddress returns the yield source for bt's currency mint.
func (w *World) YieldSourceAddress(bt domain.BondType) solana.PublicKey {
	return w.must(address.YieldSource{Config: w.Config, TokenMint: CurrencyMint(bt)})
}

// BondVaultAddress returns bt's vault config address.
func (w *World) BondVaultAddress(bt domain.BondType) solana.PublicKey {
	return w.must(address.BondVault{Authority: w.Authority, BondType: bt})
}

// SetVault writes bt's bond vault with the given NAV.
func (w *World) SetVault(bt domain.BondType, nav uint64) ledger.BondVault {
	vault := ledger.BondVault{
		Authority:     w.Authority,
		CurrencyMint:  CurrencyMint(bt),
		ShareMint:     w.must(address.BondShareMint{Authority: w.Authority, BondType: bt}),
		CurrencyVault: w.must(address.BondCurrencyVault{Authority: w.Authority, BondType: bt}),
		BondType:      bt,
		CouponRateBps: bt.DefaultAPYBps(),
		TargetAPYBps:  bt.DefaultAPYBps(),
		NavPerShare:   nav,
		LastAccrual:   w.Now,
		IsActive:      true,
	}
	w.RPC.SetAccount(w.BondVaultAddress(bt), YieldProgramID, ledger.Encode(&vault))
	return vault
}

// SetPosition writes owner's position in bt.
func (w *World) SetPosition(owner solana.PublicKey, bt domain.BondType, pos ledger.UserPosition) solana.PublicKey {
	pos.Owner = owner
	pos.ProtocolConfig = w.Config
	pos.BondType = bt
	addr := w.must(address.UserPosition{Config: w.Config, Owner: owner, BondType: bt})
	w.RPC.SetAccount(addr, CoreProgramID, ledger.Encode(&pos))
	return addr
}

// AddPendingDeposit writes a deposit for user with the given nonce and status.
// It expires a day after Now.
func (w *World) AddPendingDeposit(user solana.PublicKey, bt domain.BondType, nonce, amount uint64, status domain.DepositStatus) solana.PublicKey {
	dep := ledger.PendingDeposit{
		User:           user,
		ProtocolConfig: w.Config,
		BondType:       bt,
		SourceAmount:   amount,
		MinOutput:      amount * 99 / 100,
		DepositedAt:    w.Now,
		ExpiresAt:      w.Now + int64(domain.PendingDepositExpiry.Seconds()),
		Status:         status,
		Nonce:          nonce,
	}
	addr := w.must(address.PendingDeposit{Config: w.Config, User: user, Nonce: nonce})
	w.RPC.SetAccount(addr, CoreProgramID, ledger.Encode(&dep))
	return addr
}

// SetRaw stores arbitrary core-owned data at addr.
func (w *World) SetRaw(addr solana.PublicKey, data []byte) {
	w.RPC.SetAccount(addr, CoreProgramID, data)
}
