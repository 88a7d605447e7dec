package keeper

import (
	"context"
	"errors"
	"log/slog"

	"stablebond-keeper/internal/address"
	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/instruction"
	"stablebond-keeper/internal/ledger"
	"stablebond-keeper/internal/observability"
	"stablebond-keeper/internal/stablebond"
)

// NavUpdaterOptions configures a NavUpdater.
type NavUpdaterOptions struct {
	Client   *stablebond.Client
	Sender   Submitter
	Clock    Clock // Default: SystemClock
	Recorder *Recorder
	Logger   *slog.Logger
}

// NavUpdater accrues yield on every active bond vault and copies the
// resulting NAV into the matching yield source.
type NavUpdater struct {
	client   *stablebond.Client
	core     *instruction.Core
	yield    *instruction.Yield
	sender   Submitter
	clock    Clock
	recorder *Recorder
	logger   *slog.Logger
}

// NewNavUpdater creates a NAV updater.
func NewNavUpdater(opts NavUpdaterOptions) *NavUpdater {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	d := opts.Client.Deriver()
	return &NavUpdater{
		client:   opts.Client,
		core:     instruction.NewCore(d),
		yield:    instruction.NewYield(d),
		sender:   opts.Sender,
		clock:    clock,
		recorder: opts.Recorder,
		logger:   logger.With(slog.String("keeper", string(domain.KeeperNavUpdater))),
	}
}

// Update runs accrue_yield then update_nav for each active bond. A failed
// accrual skips that bond's update_nav; a failed update leaves the NAV stale
// until the next pass. Nothing is retried within a pass.
func (u *NavUpdater) Update(ctx context.Context) (*UpdateResult, error) {
	res := &UpdateResult{}

	cfg, err := u.client.ProtocolConfig(ctx)
	if ledger.IsNotFound(err) {
		u.logger.Warn("protocol config not found, nothing to update")
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	reg, err := u.client.BondRegistry(ctx)
	if ledger.IsNotFound(err) {
		u.logger.Debug("bond registry not found, nothing to update")
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	bonds := reg.Active()
	res.Bonds = len(bonds)
	for i := range bonds {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		u.updateBond(ctx, cfg, &bonds[i], res)
	}
	return res, nil
}

func (u *NavUpdater) updateBond(ctx context.Context, cfg *ledger.ProtocolConfig, bond *ledger.BondConfig, res *UpdateResult) {
	bt := bond.BondType
	log := u.logger.With(slog.String("bond_type", bt.String()))

	vault, err := u.client.Deriver().Address(address.BondVault{Authority: cfg.Authority, BondType: bt})
	if err != nil {
		res.failed(instruction.AccrueYield, vault, bt, err)
		return
	}

	accrue, err := u.yield.AccrueYield(cfg.Authority, bt)
	if err != nil {
		res.failed(instruction.AccrueYield, vault, bt, err)
		return
	}
	sig, err := u.sender.Send(ctx, accrue)
	observability.RecordTransaction(instruction.AccrueYield, err)
	if err != nil {
		logSendError(log.With(slog.String("instruction", instruction.AccrueYield)), address.YieldProgram, err)
		res.failed(instruction.AccrueYield, vault, bt, err)
		res.skipped(instruction.UpdateNav, vault, bt, "accrue_yield failed")
		return
	}
	log.Info("yield accrued", slog.String("signature", sig.String()))
	res.submitted(instruction.AccrueYield, vault, bt, sig)

	config, err := u.client.ConfigAddress()
	if err != nil {
		res.failed(instruction.UpdateNav, vault, bt, err)
		return
	}
	sourceAddr, err := u.client.Deriver().Address(address.YieldSource{Config: config, TokenMint: bond.CurrencyMint})
	if err != nil {
		res.failed(instruction.UpdateNav, vault, bt, err)
		return
	}
	if _, err := u.client.YieldSource(ctx, bond.CurrencyMint); err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			log.Warn("yield source not found, skipping update_nav")
			res.skipped(instruction.UpdateNav, sourceAddr, bt, "yield source not found")
			return
		}
		res.failed(instruction.UpdateNav, sourceAddr, bt, err)
		return
	}

	update, err := u.core.UpdateNav(u.sender.Payer(), bond.CurrencyMint, vault)
	if err != nil {
		res.failed(instruction.UpdateNav, sourceAddr, bt, err)
		return
	}
	sig, err = u.sender.Send(ctx, update)
	observability.RecordTransaction(instruction.UpdateNav, err)
	if err != nil {
		logSendError(log.With(slog.String("instruction", instruction.UpdateNav)), address.CoreProgram, err)
		res.failed(instruction.UpdateNav, sourceAddr, bt, err)
		return
	}
	log.Info("nav updated", slog.String("signature", sig.String()))
	res.submitted(instruction.UpdateNav, sourceAddr, bt, sig)
}

// Tick runs Update and records the outcome.
func (u *NavUpdater) Tick(ctx context.Context) error {
	started := u.clock.Now()
	res, err := u.Update(ctx)
	if res == nil {
		res = &UpdateResult{}
	}
	if u.recorder != nil {
		if _, rerr := u.recorder.Record(ctx, domain.KeeperNavUpdater, started, u.clock.Now(), res.Bonds, res.Result, err); rerr != nil {
			u.logger.Error("record run", slog.Any("error", rerr))
		}
	}
	return err
}

// Task wraps the updater in a periodic task.
func (u *NavUpdater) Task(opts TaskOptions) *Task {
	opts.Name = domain.KeeperNavUpdater
	if opts.Clock == nil {
		opts.Clock = u.clock
	}
	return NewTask(opts, u.Tick)
}
