package solana

import (
	"context"
	"fmt"
	"time"
)

// Default confirmation settings.
const (
	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 2 * time.Second
)

// Sender signs instructions with a fee payer and submits them.
type Sender struct {
	rpc          RPCClient
	payer        *Keypair
	commitment   Commitment
	confirm      bool
	timeout      time.Duration
	pollInterval time.Duration
}

// SenderOption configures Sender.
type SenderOption func(*Sender)

// WithConfirmation waits for the transaction to reach commitment before Send returns.
func WithConfirmation(commitment Commitment, timeout time.Duration) SenderOption {
	return func(s *Sender) {
		s.confirm = true
		s.commitment = commitment
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithPollInterval sets how often signature status is polled while confirming.
func WithPollInterval(d time.Duration) SenderOption {
	return func(s *Sender) {
		s.pollInterval = d
	}
}

// NewSender creates a Sender paying fees from payer.
func NewSender(rpc RPCClient, payer *Keypair, opts ...SenderOption) *Sender {
	s := &Sender{
		rpc:          rpc,
		payer:        payer,
		commitment:   CommitmentConfirmed,
		timeout:      DefaultConfirmTimeout,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Payer returns the fee payer's address.
func (s *Sender) Payer() PublicKey {
	return s.payer.PublicKey()
}

// Send builds one transaction from instructions, signs it and submits it.
func (s *Sender) Send(ctx context.Context, instructions ...Instruction) (Signature, error) {
	bh, err := s.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return Signature{}, err
	}

	tx, err := NewTransaction(bh.Blockhash, instructions, s.payer)
	if err != nil {
		return Signature{}, fmt.Errorf("build transaction: %w", err)
	}

	sig, err := s.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return Signature{}, err
	}
	if !s.confirm {
		return sig, nil
	}
	return sig, s.waitForConfirmation(ctx, sig)
}

func (s *Sender) waitForConfirmation(ctx context.Context, sig Signature) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		statuses, err := s.rpc.GetSignatureStatuses(ctx, sig)
		if err == nil && len(statuses) == 1 && statuses[0] != nil {
			st := statuses[0]
			if st.Err != nil {
				return &TransactionError{Signature: sig, Err: st.Err}
			}
			if st.Reached(s.commitment) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return &RemoteError{Op: "confirm " + sig.String(), Err: ErrTransactionTimeout}
		case <-ticker.C:
		}
	}
}
