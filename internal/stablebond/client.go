// Package stablebond reads protocol state from the ledger.
package stablebond

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stablebond-keeper/internal/address"
	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/ledger"
	"stablebond-keeper/internal/observability"
	"stablebond-keeper/internal/solana"
)

// PendingDepositWindow is how many nonces back PendingDeposits looks.
const PendingDepositWindow = 20

// Client fetches and decodes protocol accounts. Absent accounts are reported
// as ledger.ErrAccountNotFound.
type Client struct {
	rpc     solana.RPCClient
	deriver *address.Deriver
	logger  *slog.Logger
}

// NewClient creates a query client.
func NewClient(rpc solana.RPCClient, d *address.Deriver) *Client {
	return &Client{
		rpc:     rpc,
		deriver: d,
		logger:  slog.Default().With(slog.String("component", "stablebond_client")),
	}
}

// Deriver returns the address deriver the client resolves accounts with.
func (c *Client) Deriver() *address.Deriver {
	return c.deriver
}

// ConfigAddress returns the protocol config address.
func (c *Client) ConfigAddress() (solana.PublicKey, error) {
	return c.deriver.Address(address.ProtocolConfig{})
}

func decode(kind ledger.Kind, data []byte) (ledger.Record, error) {
	rec, err := ledger.Decode(kind, data)
	if err != nil {
		observability.RecordDecodeError(kind.String())
		return nil, err
	}
	return rec, nil
}

func (c *Client) fetch(ctx context.Context, kind ledger.Kind, addr solana.PublicKey) (ledger.Record, error) {
	info, err := c.rpc.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", kind, addr, err)
	}
	if info == nil {
		return nil, &ledger.NotFoundError{Kind: kind, Address: addr}
	}
	return decode(kind, info.Data)
}

func (c *Client) fetchAt(ctx context.Context, kind ledger.Kind, ns address.Namespace) (ledger.Record, error) {
	addr, err := c.deriver.Address(ns)
	if err != nil {
		return nil, err
	}
	return c.fetch(ctx, kind, addr)
}

// fetchMany fetches addrs in one round-trip. Missing and undecodable
// accounts are nil; a bad account never hides the others.
func (c *Client) fetchMany(ctx context.Context, kind ledger.Kind, addrs []solana.PublicKey) ([]ledger.Record, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	infos, err := c.rpc.GetMultipleAccounts(ctx, addrs)
	if err != nil {
		return nil, fmt.Errorf("fetch %d %s accounts: %w", len(addrs), kind, err)
	}
	out := make([]ledger.Record, len(addrs))
	for i, info := range infos {
		if i >= len(out) || info == nil {
			continue
		}
		rec, err := decode(kind, info.Data)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping undecodable account",
				slog.String("address", addrs[i].String()),
				slog.String("error", err.Error()))
			continue
		}
		out[i] = rec
	}
	return out, nil
}

// ProtocolConfig fetches the singleton config.
func (c *Client) ProtocolConfig(ctx context.Context) (*ledger.ProtocolConfig, error) {
	rec, err := c.fetchAt(ctx, ledger.KindProtocolConfig, address.ProtocolConfig{})
	if err != nil {
		return nil, err
	}
	return rec.(*ledger.ProtocolConfig), nil
}

// BondRegistry fetches the registry linked to the protocol config.
func (c *Client) BondRegistry(ctx context.Context) (*ledger.BondRegistry, error) {
	config, err := c.ConfigAddress()
	if err != nil {
		return nil, err
	}
	rec, err := c.fetchAt(ctx, ledger.KindBondRegistry, address.BondRegistry{Config: config})
	if err != nil {
		return nil, err
	}
	return rec.(*ledger.BondRegistry), nil
}

// SupportedBonds lists every registered bond. An uninitialized protocol has none.
func (c *Client) SupportedBonds(ctx context.Context) ([]ledger.BondConfig, error) {
	reg, err := c.BondRegistry(ctx)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reg.Bonds, nil
}

// YieldSource fetches the yield source keyed by tokenMint.
func (c *Client) YieldSource(ctx context.Context, tokenMint solana.PublicKey) (*ledger.YieldSource, error) {
	config, err := c.ConfigAddress()
	if err != nil {
		return nil, err
	}
	rec, err := c.fetchAt(ctx, ledger.KindYieldSource, address.YieldSource{Config: config, TokenMint: tokenMint})
	if err != nil {
		return nil, err
	}
	return rec.(*ledger.YieldSource), nil
}

// UserPosition fetches owner's position in bondType.
func (c *Client) UserPosition(ctx context.Context, owner solana.PublicKey, bondType domain.BondType) (*ledger.UserPosition, error) {
	config, err := c.ConfigAddress()
	if err != nil {
		return nil, err
	}
	rec, err := c.fetchAt(ctx, ledger.KindUserPosition, address.UserPosition{Config: config, Owner: owner, BondType: bondType})
	if err != nil {
		return nil, err
	}
	return rec.(*ledger.UserPosition), nil
}

// Portfolio returns owner's positions that still hold shares, in registry order.
func (c *Client) Portfolio(ctx context.Context, owner solana.PublicKey) ([]*ledger.UserPosition, error) {
	bonds, err := c.SupportedBonds(ctx)
	if err != nil {
		return nil, err
	}
	config, err := c.ConfigAddress()
	if err != nil {
		return nil, err
	}
	addrs := make([]solana.PublicKey, 0, len(bonds))
	for _, b := range bonds {
		addr, err := c.deriver.Address(address.UserPosition{Config: config, Owner: owner, BondType: b.BondType})
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	recs, err := c.fetchMany(ctx, ledger.KindUserPosition, addrs)
	if err != nil {
		return nil, err
	}
	var out []*ledger.UserPosition
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		if pos := rec.(*ledger.UserPosition); !pos.Closed() {
			out = append(out, pos)
		}
	}
	return out, nil
}

// PendingDeposits returns the user's pending deposit records for bondType
// among the most recent nonces. Converted deposits are included; callers
// filter on Status.
func (c *Client) PendingDeposits(ctx context.Context, user solana.PublicKey, bondType domain.BondType) ([]*ledger.PendingDeposit, error) {
	pos, err := c.UserPosition(ctx, user, bondType)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	config, err := c.ConfigAddress()
	if err != nil {
		return nil, err
	}

	start := uint64(1)
	if pos.DepositNonce > PendingDepositWindow {
		start = pos.DepositNonce - PendingDepositWindow
	}
	var addrs []solana.PublicKey
	for n := start; n <= pos.DepositNonce && n != 0; n++ {
		addr, err := c.deriver.Address(address.PendingDeposit{Config: config, User: user, Nonce: n})
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	recs, err := c.fetchMany(ctx, ledger.KindPendingDeposit, addrs)
	if err != nil {
		return nil, err
	}
	var out []*ledger.PendingDeposit
	for _, rec := range recs {
		if rec != nil {
			out = append(out, rec.(*ledger.PendingDeposit))
		}
	}
	return out, nil
}

// ConversionRecord fetches the record written when the deposit with nonce settled.
func (c *Client) ConversionRecord(ctx context.Context, user solana.PublicKey, nonce uint64) (*ledger.ConversionRecord, error) {
	config, err := c.ConfigAddress()
	if err != nil {
		return nil, err
	}
	rec, err := c.fetchAt(ctx, ledger.KindConversionRecord, address.ConversionRecord{Config: config, User: user, Nonce: nonce})
	if err != nil {
		return nil, err
	}
	return rec.(*ledger.ConversionRecord), nil
}

// BondVault fetches the yield vault for bondType under the protocol authority.
func (c *Client) BondVault(ctx context.Context, bondType domain.BondType) (*ledger.BondVault, error) {
	cfg, err := c.ProtocolConfig(ctx)
	if err != nil {
		return nil, err
	}
	return c.BondVaultOf(ctx, cfg.Authority, bondType)
}

// BondVaultOf fetches the yield vault for bondType under authority.
func (c *Client) BondVaultOf(ctx context.Context, authority solana.PublicKey, bondType domain.BondType) (*ledger.BondVault, error) {
	rec, err := c.fetchAt(ctx, ledger.KindBondVault, address.BondVault{Authority: authority, BondType: bondType})
	if err != nil {
		return nil, err
	}
	return rec.(*ledger.BondVault), nil
}

// UserShares fetches user's share record in the bondType vault.
func (c *Client) UserShares(ctx context.Context, user solana.PublicKey, bondType domain.BondType) (*ledger.UserShares, error) {
	cfg, err := c.ProtocolConfig(ctx)
	if err != nil {
		return nil, err
	}
	vault, err := c.deriver.Address(address.BondVault{Authority: cfg.Authority, BondType: bondType})
	if err != nil {
		return nil, err
	}
	rec, err := c.fetchAt(ctx, ledger.KindUserShares, address.BondShares{Vault: vault, User: user})
	if err != nil {
		return nil, err
	}
	return rec.(*ledger.UserShares), nil
}
