package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/ledger"
	"stablebond-keeper/internal/solana"
	"stablebond-keeper/internal/tier"
	"stablebond-keeper/internal/yieldmath"
)

var errUsage = errors.New("invalid arguments (run with -h for usage)")

// navDecimals is the number of implied digits in navPerShare.
const navDecimals = 6

func (in *inspector) run(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "protocol":
		return in.protocol(ctx)
	case "bonds":
		return in.bonds(ctx)
	case "portfolio":
		if len(rest) != 1 {
			return errUsage
		}
		return in.portfolio(ctx, rest[0])
	case "pending":
		if len(rest) != 2 {
			return errUsage
		}
		return in.pending(ctx, rest[0], rest[1])
	case "tier":
		if len(rest) < 3 || len(rest) > 4 {
			return errUsage
		}
		return in.tierCheck(rest)
	case "check":
		if len(rest) != 3 {
			return errUsage
		}
		return in.positionCheck(ctx, rest[0], rest[1], rest[2])
	case "project":
		if len(rest) != 2 {
			return errUsage
		}
		return in.project(ctx, rest[0], rest[1])
	case "runs":
		if len(rest) < 1 || len(rest) > 2 {
			return errUsage
		}
		return in.recentRuns(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (in *inspector) print(v any) error {
	enc := json.NewEncoder(in.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type protocolView struct {
	Address           solana.PublicKey `json:"address"`
	Authority         solana.PublicKey `json:"authority"`
	Treasury          solana.PublicKey `json:"treasury"`
	USDCMint          solana.PublicKey `json:"usdc_mint"`
	USDCVault         solana.PublicKey `json:"usdc_vault"`
	BondRegistry      solana.PublicKey `json:"bond_registry"`
	ConversionFeeBps  uint16           `json:"conversion_fee_bps"`
	ManagementFeeBps  uint16           `json:"management_fee_bps"`
	PerformanceFeeBps uint16           `json:"performance_fee_bps"`
	TotalDeposits     uint64           `json:"total_deposits"`
	TotalYieldEarned  uint64           `json:"total_yield_earned"`
	PendingConversion uint64           `json:"pending_conversion"`
	NumSupportedBonds uint8            `json:"num_supported_bonds"`
	IsActive          bool             `json:"is_active"`
	RegisteredBonds   int              `json:"registered_bonds"`
	Consistency       string           `json:"consistency"`
}

func (in *inspector) protocol(ctx context.Context) error {
	addr, err := in.client.ConfigAddress()
	if err != nil {
		return err
	}
	cfg, err := in.client.ProtocolConfig(ctx)
	if ledger.IsNotFound(err) {
		return in.print(map[string]any{"address": addr, "initialized": false})
	}
	if err != nil {
		return err
	}
	view := protocolView{
		Address:           addr,
		Authority:         cfg.Authority,
		Treasury:          cfg.Treasury,
		USDCMint:          cfg.USDCMint,
		USDCVault:         cfg.USDCVault,
		BondRegistry:      cfg.BondRegistry,
		ConversionFeeBps:  cfg.ConversionFeeBps,
		ManagementFeeBps:  cfg.ManagementFeeBps,
		PerformanceFeeBps: cfg.PerformanceFeeBps,
		TotalDeposits:     cfg.TotalDeposits,
		TotalYieldEarned:  cfg.TotalYieldEarned,
		PendingConversion: cfg.PendingConversion,
		NumSupportedBonds: cfg.NumSupportedBonds,
		IsActive:          cfg.IsActive,
		Consistency:       "ok",
	}
	reg, err := in.client.BondRegistry(ctx)
	switch {
	case ledger.IsNotFound(err):
		view.Consistency = "bond registry missing"
	case err != nil:
		return err
	default:
		view.RegisteredBonds = len(reg.Bonds)
		if cerr := cfg.ConsistentWith(reg); cerr != nil {
			view.Consistency = cerr.Error()
		}
	}
	return in.print(view)
}

type bondView struct {
	BondType      string  `json:"bond_type"`
	Label         string  `json:"label"`
	Currency      string  `json:"currency"`
	CouponRateBps uint16  `json:"coupon_rate_bps"`
	DefaultAPYBps uint16  `json:"default_apy_bps"`
	MaturityDate  int64   `json:"maturity_date,omitempty"`
	MinTier       string  `json:"min_tier"`
	IsActive      bool    `json:"is_active"`
	SourceNav     *uint64 `json:"source_nav,omitempty"`
	SourceAPYBps  *uint16 `json:"source_apy_bps,omitempty"`
	LastNavUpdate int64   `json:"last_nav_update,omitempty"`
	VaultNav      *uint64 `json:"vault_nav,omitempty"`
	VaultNavText  string  `json:"vault_nav_text,omitempty"`
}

func (in *inspector) bonds(ctx context.Context) error {
	bonds, err := in.client.SupportedBonds(ctx)
	if err != nil {
		return err
	}
	out := make([]bondView, 0, len(bonds))
	for i := range bonds {
		b := &bonds[i]
		view := bondView{
			BondType:      b.BondType.String(),
			Label:         b.BondType.Label(),
			Currency:      b.Currency(),
			CouponRateBps: b.CouponRateBps,
			DefaultAPYBps: b.DefaultAPYBps,
			MaturityDate:  b.MaturityDate,
			MinTier:       b.MinTier.String(),
			IsActive:      b.IsActive,
		}
		src, err := in.client.YieldSource(ctx, b.CurrencyMint)
		switch {
		case err == nil:
			view.SourceNav = &src.NavPerShare
			view.SourceAPYBps = &src.CurrentAPYBps
			view.LastNavUpdate = src.LastNavUpdate
		case !ledger.IsNotFound(err):
			return err
		}
		vault, err := in.client.BondVault(ctx, b.BondType)
		switch {
		case err == nil:
			view.VaultNav = &vault.NavPerShare
			view.VaultNavText = yieldmath.FormatAmount(vault.NavPerShare, navDecimals, 6)
		case !ledger.IsNotFound(err):
			return err
		}
		out = append(out, view)
	}
	return in.print(out)
}

type holdingView struct {
	BondType      string `json:"bond_type"`
	Shares        uint64 `json:"shares"`
	CostBasis     uint64 `json:"cost_basis"`
	Nav           uint64 `json:"nav"`
	Value         uint64 `json:"value"`
	Unrealized    uint64 `json:"unrealized"`
	RealizedYield uint64 `json:"realized_yield"`
}

type portfolioView struct {
	Owner           solana.PublicKey `json:"owner"`
	Holdings        []holdingView    `json:"holdings"`
	TotalValue      uint64           `json:"total_value"`
	TotalCostBasis  uint64           `json:"total_cost_basis"`
	TotalUnrealized uint64           `json:"total_unrealized"`
	TotalRealized   uint64           `json:"total_realized"`
}

func (in *inspector) portfolio(ctx context.Context, ownerArg string) error {
	owner, err := solana.ParsePublicKey(ownerArg)
	if err != nil {
		return err
	}
	s, err := in.client.Summary(ctx, owner)
	if err != nil {
		return err
	}
	view := portfolioView{
		Owner:           owner,
		Holdings:        make([]holdingView, 0, len(s.Holdings)),
		TotalValue:      s.TotalValue,
		TotalCostBasis:  s.TotalCostBasis,
		TotalUnrealized: s.TotalUnrealized,
		TotalRealized:   s.TotalRealized,
	}
	for _, h := range s.Holdings {
		view.Holdings = append(view.Holdings, holdingView{
			BondType:      h.BondType.String(),
			Shares:        h.Shares,
			CostBasis:     h.CostBasis,
			Nav:           h.Nav,
			Value:         h.Value,
			Unrealized:    h.Unrealized,
			RealizedYield: h.RealizedYield,
		})
	}
	return in.print(view)
}

type depositView struct {
	Nonce        uint64 `json:"nonce"`
	Status       string `json:"status"`
	SourceAmount uint64 `json:"source_amount"`
	MinOutput    uint64 `json:"min_output"`
	DepositedAt  int64  `json:"deposited_at"`
	ExpiresAt    int64  `json:"expires_at"`
	Expired      bool   `json:"expired"`
}

func (in *inspector) pending(ctx context.Context, userArg, bondArg string) error {
	user, err := solana.ParsePublicKey(userArg)
	if err != nil {
		return err
	}
	bt, err := domain.ParseBondType(bondArg)
	if err != nil {
		return err
	}
	deposits, err := in.client.PendingDeposits(ctx, user, bt)
	if err != nil {
		return err
	}
	now := in.now()
	out := make([]depositView, 0, len(deposits))
	for _, d := range deposits {
		out = append(out, depositView{
			Nonce:        d.Nonce,
			Status:       d.Status.String(),
			SourceAmount: d.SourceAmount,
			MinOutput:    d.MinOutput,
			DepositedAt:  d.DepositedAt,
			ExpiresAt:    d.ExpiresAt,
			Expired:      d.Status == domain.DepositPending && d.Expired(now),
		})
	}
	return in.print(out)
}

type tierView struct {
	Tier         string `json:"tier"`
	BondType     string `json:"bond_type"`
	Amount       uint64 `json:"amount"`
	Deposited    uint64 `json:"monthly_deposited"`
	MonthlyLimit uint64 `json:"monthly_limit"`
	Remaining    uint64 `json:"remaining"`
	Allowed      bool   `json:"allowed"`
	Rule         string `json:"rule,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

func tierResult(t domain.Tier, bt domain.BondType, amount, deposited uint64) tierView {
	view := tierView{
		Tier:         t.String(),
		BondType:     bt.String(),
		Amount:       amount,
		Deposited:    deposited,
		MonthlyLimit: tier.MonthlyLimit(t, bt),
		Remaining:    tier.RemainingCapacity(t, bt, deposited),
		Allowed:      true,
	}
	if err := tier.ValidateDeposit(t, bt, amount, deposited); err != nil {
		view.Allowed = false
		view.Reason = err.Error()
		if ve, ok := tier.AsValidationError(err); ok {
			view.Rule = string(ve.Rule)
		}
	}
	return view
}

func (in *inspector) tierCheck(args []string) error {
	t, err := domain.ParseTier(args[0])
	if err != nil {
		return err
	}
	bt, err := domain.ParseBondType(args[1])
	if err != nil {
		return err
	}
	amount, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	var deposited uint64
	if len(args) == 4 {
		if deposited, err = strconv.ParseUint(args[3], 10, 64); err != nil {
			return fmt.Errorf("deposited: %w", err)
		}
	}
	return in.print(tierResult(t, bt, amount, deposited))
}

// positionCheck validates a deposit against the user's on-chain tier and
// this month's deposits.
func (in *inspector) positionCheck(ctx context.Context, userArg, bondArg, amountArg string) error {
	user, err := solana.ParsePublicKey(userArg)
	if err != nil {
		return err
	}
	bt, err := domain.ParseBondType(bondArg)
	if err != nil {
		return err
	}
	amount, err := strconv.ParseUint(amountArg, 10, 64)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}

	t := domain.TierUnverified
	var deposited uint64
	pos, err := in.client.UserPosition(ctx, user, bt)
	switch {
	case err == nil:
		t = pos.SovereignTier
		deposited = tier.EffectiveMonthlyDeposited(pos.MonthStart, pos.MonthlyDeposited, in.now())
	case !ledger.IsNotFound(err):
		return err
	}
	return in.print(tierResult(t, bt, amount, deposited))
}

type projectionView struct {
	BondType     string `json:"bond_type"`
	CurrentNav   uint64 `json:"current_nav"`
	LastAccrual  int64  `json:"last_accrual"`
	APYBps       uint16 `json:"apy_bps"`
	Target       int64  `json:"target"`
	ProjectedNav uint64 `json:"projected_nav"`
	Projected    string `json:"projected_nav_text"`
	MaturityDate int64  `json:"maturity_date,omitempty"`
}

func (in *inspector) project(ctx context.Context, bondArg, daysArg string) error {
	bt, err := domain.ParseBondType(bondArg)
	if err != nil {
		return err
	}
	days, err := strconv.Atoi(daysArg)
	if err != nil || days < 0 {
		return fmt.Errorf("days: must be a non-negative integer")
	}
	vault, err := in.client.BondVault(ctx, bt)
	if err != nil {
		return err
	}
	target := in.now().Add(time.Duration(days) * 24 * time.Hour).Unix()
	nav := yieldmath.ProjectNav(vault.NavPerShare, vault.TargetAPYBps, vault.LastAccrual, target, vault.MaturityDate)
	return in.print(projectionView{
		BondType:     bt.String(),
		CurrentNav:   vault.NavPerShare,
		LastAccrual:  vault.LastAccrual,
		APYBps:       vault.TargetAPYBps,
		Target:       target,
		ProjectedNav: nav,
		Projected:    yieldmath.FormatAmount(nav, navDecimals, 6),
		MaturityDate: vault.MaturityDate,
	})
}

func (in *inspector) recentRuns(ctx context.Context, args []string) error {
	if in.runs == nil {
		return errors.New("runs: postgres dsn not configured")
	}
	limit := 20
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("limit: must be a positive integer")
		}
		limit = n
	}
	runs, err := in.runs.ListRecent(ctx, domain.KeeperName(args[0]), limit)
	if err != nil {
		return err
	}
	return in.print(runs)
}
