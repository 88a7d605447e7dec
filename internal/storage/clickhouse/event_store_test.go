package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/storage"
)

func TestNavSnapshotStore(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewNavSnapshotStore(conn)
	ctx := context.Background()

	_, err := store.Latest(ctx, domain.BondBrTesouro)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	snaps := []*domain.NavSnapshot{
		{BondType: domain.BondBrTesouro, YieldSource: "src", OldNav: 1_000_000, NewNav: 1_000_356, Slot: 100, Signature: "sig-1", TimestampMs: 1000},
		{BondType: domain.BondBrTesouro, YieldSource: "src", OldNav: 1_000_356, NewNav: 1_000_712, Slot: 200, Signature: "sig-2", TimestampMs: 2000},
		{BondType: domain.BondUsTBill, YieldSource: "src2", OldNav: 1_000_000, NewNav: 1_000_123, Slot: 150, Signature: "sig-3", TimestampMs: 1500},
	}
	for _, s := range snaps {
		require.NoError(t, store.Insert(ctx, s))
	}
	assert.ErrorIs(t, store.Insert(ctx, snaps[0]), storage.ErrDuplicateKey)

	latest, err := store.Latest(ctx, domain.BondBrTesouro)
	require.NoError(t, err)
	assert.Equal(t, snaps[1], latest)

	ranged, err := store.GetByTimeRange(ctx, domain.BondBrTesouro, 0, 1500)
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "sig-1", ranged[0].Signature)
}

func TestConversionEventStore(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewConversionEventStore(conn)
	ctx := context.Background()

	e1 := &domain.ConversionEvent{User: "user", BondType: domain.BondMxCetes, Nonce: 2, SourceAmount: 1_000_000, SettlementReceived: 58_000, ExchangeRate: 58_000, FeePaid: 174, SharesIssued: 57_826, Slot: 10, Signature: "sig-b", TimestampMs: 2000}
	e0 := &domain.ConversionEvent{User: "user", BondType: domain.BondMxCetes, Nonce: 1, SourceAmount: 500_000, Slot: 5, Signature: "sig-a", TimestampMs: 1000}
	require.NoError(t, store.Insert(ctx, e1))
	require.NoError(t, store.Insert(ctx, e0))
	assert.ErrorIs(t, store.Insert(ctx, e1), storage.ErrDuplicateKey)

	got, err := store.GetByUser(ctx, "user")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, e0, got[0])
	assert.Equal(t, e1, got[1])
}
