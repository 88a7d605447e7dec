package keeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stablebond-keeper/internal/address"
	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/instruction"
	"stablebond-keeper/internal/ledger"
	"stablebond-keeper/internal/observability"
	"stablebond-keeper/internal/solana"
	"stablebond-keeper/internal/stablebond"
)

// Submitter signs and sends instructions as the keeper. *solana.Sender
// implements it.
type Submitter interface {
	Payer() solana.PublicKey
	Send(ctx context.Context, instructions ...solana.Instruction) (solana.Signature, error)
}

// ConversionBotOptions configures a ConversionBot.
type ConversionBotOptions struct {
	Client   *stablebond.Client
	Sender   Submitter
	Clock    Clock // Default: SystemClock
	Recorder *Recorder
	Logger   *slog.Logger
}

// ConversionBot settles pending cross-currency deposits by submitting
// execute_conversion for each one.
type ConversionBot struct {
	client   *stablebond.Client
	core     *instruction.Core
	sender   Submitter
	clock    Clock
	recorder *Recorder
	logger   *slog.Logger
}

// NewConversionBot creates a conversion bot.
func NewConversionBot(opts ConversionBotOptions) *ConversionBot {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversionBot{
		client:   opts.Client,
		core:     instruction.NewCore(opts.Client.Deriver()),
		sender:   opts.Sender,
		clock:    clock,
		recorder: opts.Recorder,
		logger:   logger.With(slog.String("keeper", string(domain.KeeperConversionBot))),
	}
}

// protocolView is the protocol state shared by every item of a tick. It is
// loaded on first use.
type protocolView struct {
	loaded   bool
	config   *ledger.ProtocolConfig
	registry *ledger.BondRegistry
	err      error
}

func (b *ConversionBot) load(ctx context.Context, v *protocolView) error {
	if v.loaded {
		return v.err
	}
	v.loaded = true
	v.config, v.err = b.client.ProtocolConfig(ctx)
	if v.err != nil {
		return v.err
	}
	v.registry, v.err = b.client.BondRegistry(ctx)
	return v.err
}

// Scan runs one pass over the pending deposits. It fails only when the scan
// itself fails; every deposit is handled independently.
func (b *ConversionBot) Scan(ctx context.Context) (*ScanResult, error) {
	entries, err := b.client.PendingScan(ctx)
	if err != nil {
		return nil, err
	}
	observability.UpdatePendingDeposits(len(entries))

	res := &ScanResult{Found: len(entries)}
	if len(entries) == 0 {
		b.logger.Debug("no pending deposits")
		return res, nil
	}
	b.logger.Info("found pending deposits", slog.Int("count", len(entries)))

	var view protocolView
	now := b.clock.Now()
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		b.convert(ctx, entry, now, &view, res)
	}
	return res, nil
}

func (b *ConversionBot) convert(ctx context.Context, entry stablebond.PendingEntry, now time.Time, view *protocolView, res *ScanResult) {
	const ix = instruction.ExecuteConversion
	log := b.logger.With(slog.String("deposit", entry.Address.String()))

	if entry.Err != nil {
		log.Warn("malformed pending deposit", slog.Any("error", entry.Err))
		res.failed(ix, entry.Address, 0, entry.Err)
		return
	}
	dep := entry.Deposit
	log = log.With(slog.String("bond_type", dep.BondType.String()), slog.Uint64("nonce", dep.Nonce))

	if dep.Status != domain.DepositPending {
		res.skipped(ix, entry.Address, dep.BondType, "status "+dep.Status.String())
		return
	}
	if dep.Expired(now) {
		log.Info("pending deposit expired, skipping", slog.Int64("expires_at", dep.ExpiresAt))
		res.skipped(ix, entry.Address, dep.BondType, "expired")
		return
	}

	if err := b.load(ctx, view); err != nil {
		if ledger.IsNotFound(err) {
			log.Warn("protocol not initialized, skipping", slog.Any("error", err))
			res.skipped(ix, entry.Address, dep.BondType, "protocol not initialized")
			return
		}
		log.Error("load protocol state", slog.Any("error", err))
		res.failed(ix, entry.Address, dep.BondType, err)
		return
	}

	bond, ok := view.registry.Find(dep.BondType)
	if !ok {
		err := fmt.Errorf("bond %s not registered", dep.BondType)
		log.Error("cannot convert deposit", slog.Any("error", err))
		res.failed(ix, entry.Address, dep.BondType, err)
		return
	}

	source, err := b.client.YieldSource(ctx, bond.CurrencyMint)
	if err != nil {
		log.Error("fetch yield source", slog.Any("error", err))
		res.failed(ix, entry.Address, dep.BondType, err)
		return
	}
	configAddr, err := b.client.ConfigAddress()
	if err != nil {
		res.failed(ix, entry.Address, dep.BondType, err)
		return
	}
	sourceAddr, err := b.client.Deriver().Address(address.YieldSource{Config: configAddr, TokenMint: bond.CurrencyMint})
	if err != nil {
		res.failed(ix, entry.Address, dep.BondType, err)
		return
	}

	inst, err := b.core.ExecuteConversion(instruction.Conversion{
		Keeper:            b.sender.Payer(),
		PendingDeposit:    entry.Address,
		User:              dep.User,
		BondType:          dep.BondType,
		Nonce:             dep.Nonce,
		USDCVault:         view.config.USDCVault,
		Oracle:            bond.OracleFeed,
		YieldSource:       sourceAddr,
		YieldDepositVault: source.DepositVault,
	})
	if err != nil {
		res.failed(ix, entry.Address, dep.BondType, err)
		return
	}

	sig, err := b.sender.Send(ctx, inst)
	observability.RecordTransaction(ix, err)
	if err != nil {
		logSendError(log, address.CoreProgram, err)
		res.failed(ix, entry.Address, dep.BondType, err)
		return
	}
	log.Info("conversion submitted", slog.String("signature", sig.String()))
	res.submitted(ix, entry.Address, dep.BondType, sig)
}

// Tick runs Scan and records the outcome.
func (b *ConversionBot) Tick(ctx context.Context) error {
	started := b.clock.Now()
	res, err := b.Scan(ctx)
	if res == nil {
		res = &ScanResult{}
	}
	if b.recorder != nil {
		if _, rerr := b.recorder.Record(ctx, domain.KeeperConversionBot, started, b.clock.Now(), res.Found, res.Result, err); rerr != nil {
			b.logger.Error("record run", slog.Any("error", rerr))
		}
	}
	return err
}

// Task wraps the bot in a periodic task.
func (b *ConversionBot) Task(opts TaskOptions) *Task {
	opts.Name = domain.KeeperConversionBot
	if opts.Clock == nil {
		opts.Clock = b.clock
	}
	return NewTask(opts, b.Tick)
}

func logSendError(log *slog.Logger, p address.Program, err error) {
	if perr, ok := instruction.DecodeProgramError(p, err); ok {
		log.Error("transaction rejected",
			slog.String("program_error", perr.Name),
			slog.Uint64("code", uint64(perr.Code)),
			slog.String("message", perr.Message))
		return
	}
	var remote *solana.RemoteError
	if errors.As(err, &remote) {
		log.Error("transaction failed", slog.String("op", remote.Op), slog.Any("error", remote.Err))
		return
	}
	log.Error("transaction failed", slog.Any("error", err))
}
