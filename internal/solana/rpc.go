package solana

import "context"

// RPCClient defines the Solana JSON-RPC surface the keepers and query paths use.
type RPCClient interface {
	// GetAccountInfo returns account data, or nil if the account does not exist.
	GetAccountInfo(ctx context.Context, account PublicKey) (*AccountInfo, error)

	// GetMultipleAccounts fetches several accounts in one round-trip.
	// The result is index-aligned with accounts; missing accounts are nil.
	GetMultipleAccounts(ctx context.Context, accounts []PublicKey) ([]*AccountInfo, error)

	// GetProgramAccounts scans accounts owned by program matching every filter.
	GetProgramAccounts(ctx context.Context, program PublicKey, filters ...AccountFilter) ([]ProgramAccount, error)

	// GetLatestBlockhash returns a blockhash to sign new transactions against.
	GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error)

	// SendTransaction submits a signed transaction and returns its signature.
	SendTransaction(ctx context.Context, tx *Transaction) (Signature, error)

	// GetSignatureStatuses reports confirmation state; unknown signatures are nil.
	GetSignatureStatuses(ctx context.Context, signatures ...Signature) ([]*SignatureStatus, error)

	// GetSlot returns the current slot.
	GetSlot(ctx context.Context) (int64, error)
}
