package keeper_test

import (
	"bytes"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stablebond-keeper/internal/keeper"
	"stablebond-keeper/internal/solana"
	"stablebond-keeper/internal/stablebond"
	"stablebond-keeper/internal/stablebond/fixture"
	"stablebond-keeper/internal/storage/memory"
)

type harness struct {
	world    *fixture.World
	client   *stablebond.Client
	sender   *solana.Sender
	clock    *keeper.ManualClock
	runs     *memory.KeeperRunStore
	actions  *memory.KeeperActionStore
	recorder *keeper.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	w := fixture.NewWorld()
	seed := sha256.Sum256([]byte("keeper"))
	kp, err := solana.KeypairFromSeed(seed[:])
	require.NoError(t, err)

	runs := memory.NewKeeperRunStore()
	actions := memory.NewKeeperActionStore()
	return &harness{
		world:    w,
		client:   stablebond.NewClient(w.RPC, w.Deriver),
		sender:   solana.NewSender(w.RPC, kp),
		clock:    keeper.NewManualClock(time.Unix(w.Now, 0)),
		runs:     runs,
		actions:  actions,
		recorder: keeper.NewRecorder(runs, actions, nil),
	}
}

func (h *harness) conversionBot() *keeper.ConversionBot {
	return keeper.NewConversionBot(keeper.ConversionBotOptions{
		Client:   h.client,
		Sender:   h.sender,
		Clock:    h.clock,
		Recorder: h.recorder,
	})
}

func (h *harness) navUpdater() *keeper.NavUpdater {
	return keeper.NewNavUpdater(keeper.NavUpdaterOptions{
		Client:   h.client,
		Sender:   h.sender,
		Clock:    h.clock,
		Recorder: h.recorder,
	})
}

// rejectTouching fails any transaction with an instruction that references
// target.
func rejectTouching(target solana.PublicKey, err error) func(tx *solana.Transaction) error {
	return func(tx *solana.Transaction) error {
		for _, ix := range tx.Message.Decompile() {
			for _, a := range ix.Accounts {
				if a.PublicKey == target {
					return err
				}
			}
		}
		return nil
	}
}

func keysOf(ix solana.Instruction) []solana.PublicKey {
	out := make([]solana.PublicKey, len(ix.Accounts))
	for i, a := range ix.Accounts {
		out[i] = a.PublicKey
	}
	return out
}

func hasPrefix(data []byte, disc [8]byte) bool {
	return bytes.HasPrefix(data, disc[:])
}
