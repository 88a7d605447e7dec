package stablebond

import (
	"context"
	"fmt"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/ledger"
	"stablebond-keeper/internal/solana"
	"stablebond-keeper/internal/yieldmath"
)

// PendingEntry is one account returned by a pending-deposit scan. Err is set
// when the account matched the filters but could not be decoded.
type PendingEntry struct {
	Address solana.PublicKey
	Deposit *ledger.PendingDeposit
	Err     error
}

// PendingFilters select PendingDeposit-sized accounts whose status byte is
// Pending.
func PendingFilters() []solana.AccountFilter {
	return []solana.AccountFilter{
		solana.DataSize(ledger.PendingDepositSize),
		solana.Memcmp(ledger.PendingDepositStatusOffset, []byte{byte(domain.DepositPending)}),
	}
}

// PendingScan lists every pending deposit owned by the core program. A
// malformed account is reported on its entry and does not fail the scan.
func (c *Client) PendingScan(ctx context.Context) ([]PendingEntry, error) {
	accounts, err := c.rpc.GetProgramAccounts(ctx, c.deriver.Core, PendingFilters()...)
	if err != nil {
		return nil, fmt.Errorf("scan pending deposits: %w", err)
	}
	entries := make([]PendingEntry, 0, len(accounts))
	for _, acc := range accounts {
		entry := PendingEntry{Address: acc.Pubkey}
		rec, err := decode(ledger.KindPendingDeposit, acc.Account.Data)
		if err != nil {
			entry.Err = err
		} else {
			entry.Deposit = rec.(*ledger.PendingDeposit)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Summary values owner's open positions at each bond vault's current NAV.
// Bonds without a vault are valued at par.
func (c *Client) Summary(ctx context.Context, owner solana.PublicKey) (yieldmath.Summary, error) {
	positions, err := c.Portfolio(ctx, owner)
	if err != nil || len(positions) == 0 {
		return yieldmath.Summary{}, err
	}
	cfg, err := c.ProtocolConfig(ctx)
	if err != nil {
		return yieldmath.Summary{}, err
	}

	holdings := make([]yieldmath.Holding, 0, len(positions))
	navs := make(map[domain.BondType]uint64, len(positions))
	for _, pos := range positions {
		holdings = append(holdings, yieldmath.Holding{
			BondType:      pos.BondType,
			Shares:        pos.CurrentShares,
			CostBasis:     pos.CostBasis,
			RealizedYield: pos.RealizedYield,
		})
		vault, err := c.BondVaultOf(ctx, cfg.Authority, pos.BondType)
		if ledger.IsNotFound(err) {
			continue
		}
		if err != nil {
			return yieldmath.Summary{}, err
		}
		navs[pos.BondType] = vault.NavPerShare
	}
	return yieldmath.Summarize(holdings, navs), nil
}
