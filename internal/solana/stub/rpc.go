package stub

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"sync"

	"stablebond-keeper/internal/solana"
)

// RPCClient is an in-memory ledger implementing solana.RPCClient for tests.
// Sent transactions are recorded and confirmed immediately; they never mutate accounts.
type RPCClient struct {
	mu sync.Mutex

	accounts map[solana.PublicKey]solana.AccountInfo
	statuses map[solana.Signature]*solana.SignatureStatus
	sent     []*solana.Transaction

	slot      int64
	blockhash solana.Hash

	// Errors injects a failure for an RPC method name, e.g. "getProgramAccounts".
	Errors map[string]error
	// SendHook, when set, may reject a transaction before it is recorded.
	SendHook func(tx *solana.Transaction) error
}

// NewRPCClient creates an empty ledger at slot 1.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		accounts:  make(map[solana.PublicKey]solana.AccountInfo),
		statuses:  make(map[solana.Signature]*solana.SignatureStatus),
		slot:      1,
		blockhash: sha256.Sum256([]byte("stub-blockhash")),
		Errors:    make(map[string]error),
	}
}

// SetAccount stores data owned by owner at address.
func (c *RPCClient) SetAccount(address, owner solana.PublicKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[address] = solana.AccountInfo{
		Lamports: 1_000_000,
		Owner:    owner,
		Data:     append([]byte(nil), data...),
	}
}

// DeleteAccount removes the account at address.
func (c *RPCClient) DeleteAccount(address solana.PublicKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.accounts, address)
}

// SetSlot sets the value returned by GetSlot.
func (c *RPCClient) SetSlot(slot int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot = slot
}

// Sent returns every transaction accepted so far, in order.
func (c *RPCClient) Sent() []*solana.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*solana.Transaction(nil), c.sent...)
}

// SentInstructions flattens the instructions of every accepted transaction.
func (c *RPCClient) SentInstructions() []solana.Instruction {
	var out []solana.Instruction
	for _, tx := range c.Sent() {
		out = append(out, tx.Message.Decompile()...)
	}
	return out
}

// FailStatus makes a later GetSignatureStatuses report txErr for sig.
func (c *RPCClient) FailStatus(sig solana.Signature, txErr interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.statuses[sig]; ok {
		st.Err = txErr
	}
}

func (c *RPCClient) injected(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.Errors[method]; ok && err != nil {
		return &solana.RemoteError{Op: method, Err: err}
	}
	return nil
}

// GetAccountInfo returns the stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, account solana.PublicKey) (*solana.AccountInfo, error) {
	if err := c.injected("getAccountInfo"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.accounts[account]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

// GetMultipleAccounts returns stored accounts index-aligned with the request.
func (c *RPCClient) GetMultipleAccounts(_ context.Context, accounts []solana.PublicKey) ([]*solana.AccountInfo, error) {
	if err := c.injected("getMultipleAccounts"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*solana.AccountInfo, len(accounts))
	for i, pk := range accounts {
		if info, ok := c.accounts[pk]; ok {
			out[i] = &info
		}
	}
	return out, nil
}

// GetProgramAccounts returns accounts owned by program that match every filter,
// sorted by address for deterministic iteration.
func (c *RPCClient) GetProgramAccounts(_ context.Context, program solana.PublicKey, filters ...solana.AccountFilter) ([]solana.ProgramAccount, error) {
	if err := c.injected("getProgramAccounts"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []solana.ProgramAccount
	for pk, info := range c.accounts {
		if info.Owner != program {
			continue
		}
		match := true
		for _, f := range filters {
			if !f.Matches(info.Data) {
				match = false
				break
			}
		}
		if match {
			out = append(out, solana.ProgramAccount{Pubkey: pk, Account: info})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Pubkey[:], out[j].Pubkey[:]) < 0
	})
	return out, nil
}

// GetLatestBlockhash returns a fixed blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.LatestBlockhash, error) {
	if err := c.injected("getLatestBlockhash"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return &solana.LatestBlockhash{Blockhash: c.blockhash, LastValidBlockHeight: uint64(c.slot) + 150, Slot: c.slot}, nil
}

// SendTransaction records tx and marks it confirmed at the current slot.
func (c *RPCClient) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if err := c.injected("sendTransaction"); err != nil {
		return solana.Signature{}, err
	}
	if c.SendHook != nil {
		if err := c.SendHook(tx); err != nil {
			return solana.Signature{}, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	sig := tx.ID()
	if sig == (solana.Signature{}) {
		// Unsigned transactions still need a distinct key.
		h := sha256.Sum256(binary.BigEndian.AppendUint64(tx.Message.Serialize(), uint64(len(c.sent))))
		copy(sig[:], h[:])
	}
	c.sent = append(c.sent, tx)
	c.statuses[sig] = &solana.SignatureStatus{
		Slot:               c.slot,
		ConfirmationStatus: solana.CommitmentConfirmed,
	}
	return sig, nil
}

// GetSignatureStatuses reports recorded statuses; unknown signatures are nil.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures ...solana.Signature) ([]*solana.SignatureStatus, error) {
	if err := c.injected("getSignatureStatuses"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		if st, ok := c.statuses[sig]; ok {
			cp := *st
			out[i] = &cp
		}
	}
	return out, nil
}

// GetSlot returns the configured slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	if err := c.injected("getSlot"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot, nil
}

var _ solana.RPCClient = (*RPCClient)(nil)
