// Package watcher follows core program logs and records the protocol events
// that matter to operators.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/ledger"
	"stablebond-keeper/internal/observability"
	"stablebond-keeper/internal/solana"
	"stablebond-keeper/internal/storage"
)

// Options configures a Watcher.
type Options struct {
	WS          solana.WSClient
	Program     solana.PublicKey
	Commitment  solana.Commitment // Default: confirmed
	Navs        storage.NavSnapshotStore
	Conversions storage.ConversionEventStore
	Logger      *slog.Logger
}

// Watcher subscribes to logs mentioning the core program. NavUpdated events
// become NAV snapshots and ConversionExecuted events become conversion
// records. Nil stores are skipped.
type Watcher struct {
	ws          solana.WSClient
	program     solana.PublicKey
	commitment  solana.Commitment
	navs        storage.NavSnapshotStore
	conversions storage.ConversionEventStore
	logger      *slog.Logger
}

// New creates a watcher.
func New(opts Options) *Watcher {
	commitment := opts.Commitment
	if commitment == "" {
		commitment = solana.CommitmentConfirmed
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		ws:          opts.WS,
		program:     opts.Program,
		commitment:  commitment,
		navs:        opts.Navs,
		conversions: opts.Conversions,
		logger:      logger.With(slog.String("component", "watcher")),
	}
}

// Run blocks until ctx is cancelled or the subscription ends.
func (w *Watcher) Run(ctx context.Context) error {
	logs, err := w.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: w.program, Commitment: w.commitment})
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}
	w.logger.Info("watching program logs", slog.String("program", w.program.String()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-logs:
			if !ok {
				return errors.New("log subscription closed")
			}
			w.Handle(ctx, n)
		}
	}
}

// Handle records the events of one notification and returns how many were
// stored. Failed transactions emit nothing and are ignored.
func (w *Watcher) Handle(ctx context.Context, n solana.LogNotification) int {
	if n.Err != nil {
		return 0
	}
	observability.UpdateHighestSlot(n.Slot)

	stored := 0
	for _, ev := range ledger.ParseEvents(n.Logs) {
		observability.RecordEvent(ev.EventName())

		var err error
		switch e := ev.(type) {
		case *ledger.NavUpdated:
			observability.UpdateNav(e.BondType.String(), e.NewNav)
			err = w.storeNav(ctx, e, n)
		case *ledger.ConversionExecuted:
			err = w.storeConversion(ctx, e, n)
		default:
			continue
		}

		switch {
		case err == nil:
			stored++
		case errors.Is(err, errNoStore):
		case errors.Is(err, storage.ErrDuplicateKey):
			w.logger.Debug("event already recorded", slog.String("event", ev.EventName()), slog.String("signature", n.Signature))
		default:
			w.logger.Error("store event",
				slog.String("event", ev.EventName()),
				slog.String("signature", n.Signature),
				slog.Any("error", err))
		}
	}
	return stored
}

var errNoStore = errors.New("no store configured")

func (w *Watcher) storeNav(ctx context.Context, e *ledger.NavUpdated, n solana.LogNotification) error {
	if w.navs == nil {
		return errNoStore
	}
	w.logger.Info("nav updated",
		slog.String("bond_type", e.BondType.String()),
		slog.Uint64("old_nav", e.OldNav),
		slog.Uint64("new_nav", e.NewNav))
	return w.navs.Insert(ctx, &domain.NavSnapshot{
		BondType:    e.BondType,
		YieldSource: e.YieldSource.String(),
		OldNav:      e.OldNav,
		NewNav:      e.NewNav,
		Slot:        n.Slot,
		Signature:   n.Signature,
		TimestampMs: e.Timestamp * 1000,
	})
}

func (w *Watcher) storeConversion(ctx context.Context, e *ledger.ConversionExecuted, n solana.LogNotification) error {
	if w.conversions == nil {
		return errNoStore
	}
	return w.conversions.Insert(ctx, &domain.ConversionEvent{
		User:               e.User.String(),
		BondType:           e.BondType,
		Nonce:              e.Nonce,
		SourceAmount:       e.SourceAmount,
		SettlementReceived: e.SettlementReceived,
		ExchangeRate:       e.ExchangeRate,
		FeePaid:            e.FeePaid,
		SharesIssued:       e.SharesIssued,
		Slot:               n.Slot,
		Signature:          n.Signature,
		TimestampMs:        e.Timestamp * 1000,
	})
}
