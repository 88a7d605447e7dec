package watcher

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/ledger"
	"stablebond-keeper/internal/solana"
	"stablebond-keeper/internal/stablebond/fixture"
	"stablebond-keeper/internal/storage/memory"
)

type fakeWS struct {
	ch     chan solana.LogNotification
	filter solana.LogsFilter
}

func (f *fakeWS) SubscribeLogs(_ context.Context, filter solana.LogsFilter) (<-chan solana.LogNotification, error) {
	f.filter = filter
	return f.ch, nil
}

func (f *fakeWS) Close() error { return nil }

func programData(ev ledger.Event) string {
	return "Program data: " + base64.StdEncoding.EncodeToString(ledger.EncodeEvent(ev))
}

func TestWatcher_HandleStoresEvents(t *testing.T) {
	navs := memory.NewNavSnapshotStore()
	conversions := memory.NewConversionEventStore()
	w := New(Options{WS: &fakeWS{}, Program: fixture.CoreProgramID, Navs: navs, Conversions: conversions})
	ctx := context.Background()

	source := fixture.Key("source")
	user := fixture.Key("user")
	n := solana.LogNotification{
		Signature: "sig-1",
		Slot:      42,
		Logs: []string{
			"Program 3fnWkVPz51AJjYodQY5VCzteD5enRmkWBTsu3gPedaYs invoke [1]",
			programData(&ledger.NavUpdated{YieldSource: source, BondType: domain.BondMxCetes, OldNav: 1_000_000, NewNav: 1_000_250, Timestamp: 1_700_000_000}),
			programData(&ledger.ConversionExecuted{User: user, BondType: domain.BondMxCetes, SourceAmount: 1_000_000, SettlementReceived: 17_000_000, ExchangeRate: 17_000_000, FeePaid: 51_000, SharesIssued: 16_949_000, Nonce: 4, Timestamp: 1_700_000_000}),
			programData(&ledger.ProtocolPaused{Authority: fixture.Key("authority"), Timestamp: 1}),
			"Program data: not-base64!",
		},
	}

	assert.Equal(t, 2, w.Handle(ctx, n))

	snap, err := navs.Latest(ctx, domain.BondMxCetes)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_250), snap.NewNav)
	assert.Equal(t, source.String(), snap.YieldSource)
	assert.Equal(t, int64(42), snap.Slot)
	assert.Equal(t, int64(1_700_000_000_000), snap.TimestampMs)

	events, err := conversions.GetByUser(ctx, user.String())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(4), events[0].Nonce)
	assert.Equal(t, uint64(16_949_000), events[0].SharesIssued)

	// Redelivery is absorbed by the stores.
	assert.Zero(t, w.Handle(ctx, n))
}

func TestWatcher_IgnoresFailedTransactions(t *testing.T) {
	navs := memory.NewNavSnapshotStore()
	w := New(Options{WS: &fakeWS{}, Navs: navs})

	n := solana.LogNotification{
		Signature: "sig-err",
		Err:       map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
		Logs:      []string{programData(&ledger.NavUpdated{BondType: domain.BondUsTBill, NewNav: 2})},
	}
	assert.Zero(t, w.Handle(context.Background(), n))
	_, err := navs.Latest(context.Background(), domain.BondUsTBill)
	assert.Error(t, err)
}

func TestWatcher_RunSubscribesAndStops(t *testing.T) {
	ws := &fakeWS{ch: make(chan solana.LogNotification, 1)}
	navs := memory.NewNavSnapshotStore()
	w := New(Options{WS: ws, Program: fixture.CoreProgramID, Navs: navs})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	ws.ch <- solana.LogNotification{
		Signature: "sig-run",
		Slot:      7,
		Logs:      []string{programData(&ledger.NavUpdated{BondType: domain.BondJpJgb, OldNav: 1, NewNav: 2, Timestamp: 10})},
	}
	require.Eventually(t, func() bool {
		_, err := navs.Latest(context.Background(), domain.BondJpJgb)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, fixture.CoreProgramID, ws.filter.Mentions)
	assert.Equal(t, solana.CommitmentConfirmed, ws.filter.Commitment)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcher_RunEndsWhenSubscriptionCloses(t *testing.T) {
	ws := &fakeWS{ch: make(chan solana.LogNotification)}
	close(ws.ch)
	w := New(Options{WS: ws})
	assert.Error(t, w.Run(context.Background()))
}
