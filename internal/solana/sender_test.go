package solana_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stablebond-keeper/internal/solana"
	"stablebond-keeper/internal/solana/stub"
)

func newPayer(t *testing.T) *solana.Keypair {
	t.Helper()
	kp, err := solana.KeypairFromSeed(make([]byte, 32))
	require.NoError(t, err)
	return kp
}

func transferIx(payer solana.PublicKey) solana.Instruction {
	return solana.Instruction{
		ProgramID: solana.SystemProgramID,
		Accounts:  []solana.AccountMeta{solana.Meta(payer, true, true)},
		Data:      []byte{2, 0, 0, 0},
	}
}

func TestSender_SendRecordsTransaction(t *testing.T) {
	rpc := stub.NewRPCClient()
	payer := newPayer(t)
	sender := solana.NewSender(rpc, payer)

	sig, err := sender.Send(context.Background(), transferIx(payer.PublicKey()))
	require.NoError(t, err)

	sent := rpc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, sent[0].ID(), sig)
	assert.Equal(t, payer.PublicKey(), sender.Payer())
	assert.Equal(t, payer.PublicKey(), sent[0].Message.AccountKeys[0])
}

func TestSender_WaitsForConfirmation(t *testing.T) {
	rpc := stub.NewRPCClient()
	payer := newPayer(t)
	sender := solana.NewSender(rpc, payer,
		solana.WithConfirmation(solana.CommitmentConfirmed, time.Second),
		solana.WithPollInterval(10*time.Millisecond))

	_, err := sender.Send(context.Background(), transferIx(payer.PublicKey()))
	assert.NoError(t, err)
}

func TestSender_ConfirmationFailure(t *testing.T) {
	rpc := stub.NewRPCClient()
	payer := newPayer(t)
	sender := solana.NewSender(rpc, payer,
		solana.WithConfirmation(solana.CommitmentFinalized, 50*time.Millisecond),
		solana.WithPollInterval(10*time.Millisecond))

	// stub confirms at "confirmed", which never reaches finalized
	_, err := sender.Send(context.Background(), transferIx(payer.PublicKey()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, solana.ErrTransactionTimeout))
}

func TestSender_PropagatesRemoteErrors(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Errors["getLatestBlockhash"] = errors.New("node unavailable")
	payer := newPayer(t)

	_, err := solana.NewSender(rpc, payer).Send(context.Background(), transferIx(payer.PublicKey()))
	var remote *solana.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "getLatestBlockhash", remote.Op)
	assert.Empty(t, rpc.Sent())
}

func TestSender_NoInstructions(t *testing.T) {
	rpc := stub.NewRPCClient()
	_, err := solana.NewSender(rpc, newPayer(t)).Send(context.Background())
	assert.ErrorIs(t, err, solana.ErrNoInstructions)
}
