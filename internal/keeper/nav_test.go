package keeper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/instruction"
	"stablebond-keeper/internal/stablebond/fixture"
)

func TestNavUpdater_AccruesThenUpdatesActiveBonds(t *testing.T) {
	h := newHarness(t)
	h.world.AddBond(domain.BondUsTBill)
	h.world.AddBond(domain.BondMxCetes)
	h.world.AddBond(domain.BondBrTesouro)
	h.world.DeactivateBond(domain.BondBrTesouro)

	res, err := h.navUpdater().Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Bonds)
	assert.Equal(t, 4, res.Submitted())

	sent := h.world.RPC.SentInstructions()
	require.Len(t, sent, 4)
	for i, bt := range []domain.BondType{domain.BondUsTBill, domain.BondMxCetes} {
		accrue, update := sent[2*i], sent[2*i+1]

		assert.Equal(t, fixture.YieldProgramID, accrue.ProgramID)
		assert.True(t, hasPrefix(accrue.Data, instruction.Discriminator(instruction.AccrueYield)))
		assert.Contains(t, keysOf(accrue), h.world.BondVaultAddress(bt))

		assert.Equal(t, fixture.CoreProgramID, update.ProgramID)
		assert.True(t, hasPrefix(update.Data, instruction.Discriminator(instruction.UpdateNav)))
		assert.Equal(t, h.world.Config, update.Accounts[1].PublicKey)
		assert.Equal(t, h.world.YieldSourceAddress(bt), update.Accounts[2].PublicKey)
		assert.Equal(t, h.world.BondVaultAddress(bt), update.Accounts[3].PublicKey)
	}
}

func TestNavUpdater_FailedAccrueSkipsUpdate(t *testing.T) {
	h := newHarness(t)
	h.world.AddBond(domain.BondUsTBill)
	h.world.AddBond(domain.BondMxCetes)
	h.world.RPC.SendHook = rejectTouching(h.world.BondVaultAddress(domain.BondMxCetes), errors.New("vault not active"))

	res, err := h.navUpdater().Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Submitted())
	assert.Equal(t, 1, res.Failed())
	assert.Equal(t, 1, res.Skipped())
	assert.Len(t, h.world.RPC.Sent(), 2)

	var mx []string
	for _, it := range res.Items {
		if it.BondType == domain.BondMxCetes {
			mx = append(mx, it.Instruction+":"+string(it.Outcome))
		}
	}
	assert.Equal(t, []string{"accrue_yield:FAILED", "update_nav:SKIPPED"}, mx)
}

func TestNavUpdater_FailedUpdateLeavesOthers(t *testing.T) {
	h := newHarness(t)
	h.world.AddBond(domain.BondUsTBill)
	h.world.AddBond(domain.BondMxCetes)
	h.world.RPC.SendHook = rejectTouching(h.world.YieldSourceAddress(domain.BondUsTBill), errors.New("nav stale"))

	res, err := h.navUpdater().Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Submitted())
	assert.Equal(t, 1, res.Failed())
	assert.Len(t, h.world.RPC.Sent(), 3)
}

func TestNavUpdater_MissingRegistryIsNoop(t *testing.T) {
	h := newHarness(t)
	h.world.RemoveRegistry()

	res, err := h.navUpdater().Update(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Bonds)
	assert.Empty(t, res.Items)
	assert.Empty(t, h.world.RPC.Sent())
}

func TestNavUpdater_MissingYieldSourceSkipsUpdate(t *testing.T) {
	h := newHarness(t)
	h.world.AddBond(domain.BondJpJgb)
	h.world.RemoveYieldSource(domain.BondJpJgb)

	res, err := h.navUpdater().Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Submitted())
	assert.Equal(t, 1, res.Skipped())
	assert.Len(t, h.world.RPC.Sent(), 1)
}

func TestNavUpdater_TickRecordsActions(t *testing.T) {
	h := newHarness(t)
	h.world.AddBond(domain.BondUsTBill)
	ctx := context.Background()

	require.NoError(t, h.navUpdater().Tick(ctx))

	last, ok := h.recorder.Last(domain.KeeperNavUpdater)
	require.True(t, ok)
	assert.Equal(t, 1, last.Found)
	assert.Equal(t, 2, last.Submitted)

	actions, err := h.actions.GetByRunID(ctx, last.RunID)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, instruction.AccrueYield, actions[0].Instruction)
	assert.Equal(t, instruction.UpdateNav, actions[1].Instruction)
	assert.Equal(t, h.world.YieldSourceAddress(domain.BondUsTBill).String(), actions[1].Target)
}
