package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/storage"
)

func TestKeeperStores(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	runs := NewKeeperRunStore(pool)
	actions := NewKeeperActionStore(pool)

	t.Run("run round trip", func(t *testing.T) {
		r := &domain.KeeperRun{
			RunID:      "run-1",
			Keeper:     domain.KeeperNavUpdater,
			StartedAt:  1704067200000,
			FinishedAt: 1704067201500,
			Found:      2,
			Submitted:  1,
			Failed:     1,
			Err:        ptr("update_nav mx_cetes: rpc timeout"),
		}
		require.NoError(t, runs.Insert(ctx, r))
		assert.ErrorIs(t, runs.Insert(ctx, r), storage.ErrDuplicateKey)

		got, err := runs.GetByID(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, r, got)

		_, err = runs.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("list recent", func(t *testing.T) {
		require.NoError(t, runs.Insert(ctx, &domain.KeeperRun{RunID: "run-2", Keeper: domain.KeeperNavUpdater, StartedAt: 1704067300000, FinishedAt: 1704067300001}))
		require.NoError(t, runs.Insert(ctx, &domain.KeeperRun{RunID: "run-3", Keeper: domain.KeeperConversionBot, StartedAt: 1704067400000, FinishedAt: 1704067400001}))

		got, err := runs.ListRecent(ctx, domain.KeeperNavUpdater, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "run-2", got[0].RunID)
		assert.Equal(t, "run-1", got[1].RunID)
	})

	t.Run("actions are atomic per batch", func(t *testing.T) {
		batch := []*domain.KeeperAction{
			{RunID: "run-1", Seq: 0, Keeper: domain.KeeperNavUpdater, Instruction: "accrue_yield", Target: "vault", BondType: domain.BondMxCetes, Outcome: domain.OutcomeSubmitted, Signature: ptr("sig-a"), CreatedAt: 1},
			{RunID: "run-1", Seq: 1, Keeper: domain.KeeperNavUpdater, Instruction: "update_nav", Target: "source", BondType: domain.BondMxCetes, Outcome: domain.OutcomeFailed, Err: ptr("rpc timeout"), CreatedAt: 2},
		}
		require.NoError(t, actions.InsertBulk(ctx, batch))

		got, err := actions.GetByRunID(ctx, "run-1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, batch[0], got[0])
		assert.Equal(t, domain.OutcomeFailed, got[1].Outcome)

		dup := []*domain.KeeperAction{
			{RunID: "run-2", Seq: 0, Keeper: domain.KeeperNavUpdater, Instruction: "accrue_yield", Target: "vault", Outcome: domain.OutcomeSkipped, CreatedAt: 3},
			{RunID: "run-1", Seq: 1, Keeper: domain.KeeperNavUpdater, Instruction: "update_nav", Target: "source", Outcome: domain.OutcomeSkipped, CreatedAt: 3},
		}
		assert.ErrorIs(t, actions.InsertBulk(ctx, dup), storage.ErrDuplicateKey)

		none, err := actions.GetByRunID(ctx, "run-2")
		require.NoError(t, err)
		assert.Empty(t, none)

		byTarget, err := actions.GetByTarget(ctx, "vault")
		require.NoError(t, err)
		require.Len(t, byTarget, 1)
		assert.Equal(t, "accrue_yield", byTarget[0].Instruction)
	})
}
