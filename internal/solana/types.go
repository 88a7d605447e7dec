package solana

import "github.com/mr-tron/base58"

// Commitment is the confirmation level requested from the cluster.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// AccountInfo is a decoded account as returned by getAccountInfo.
type AccountInfo struct {
	Lamports   uint64
	Owner      PublicKey
	Data       []byte
	Executable bool
	RentEpoch  uint64
}

// ProgramAccount pairs an account address with its contents.
type ProgramAccount struct {
	Pubkey  PublicKey
	Account AccountInfo
}

// AccountFilter narrows a getProgramAccounts scan. Exactly one field is set.
type AccountFilter struct {
	Memcmp   *MemcmpFilter
	DataSize *uint64
}

// MemcmpFilter matches accounts whose data at Offset equals Bytes.
type MemcmpFilter struct {
	Offset uint64
	Bytes  []byte
}

// Memcmp builds a byte-match filter.
func Memcmp(offset uint64, b []byte) AccountFilter {
	return AccountFilter{Memcmp: &MemcmpFilter{Offset: offset, Bytes: b}}
}

// DataSize builds an exact-length filter.
func DataSize(n uint64) AccountFilter {
	return AccountFilter{DataSize: &n}
}

func (f AccountFilter) params() map[string]interface{} {
	switch {
	case f.Memcmp != nil:
		return map[string]interface{}{
			"memcmp": map[string]interface{}{
				"offset": f.Memcmp.Offset,
				"bytes":  base58.Encode(f.Memcmp.Bytes),
			},
		}
	case f.DataSize != nil:
		return map[string]interface{}{"dataSize": *f.DataSize}
	}
	return nil
}

// Matches reports whether data satisfies the filter. Used by in-memory ledgers.
func (f AccountFilter) Matches(data []byte) bool {
	switch {
	case f.Memcmp != nil:
		end := f.Memcmp.Offset + uint64(len(f.Memcmp.Bytes))
		if end > uint64(len(data)) {
			return false
		}
		return string(data[f.Memcmp.Offset:end]) == string(f.Memcmp.Bytes)
	case f.DataSize != nil:
		return uint64(len(data)) == *f.DataSize
	}
	return true
}

// LatestBlockhash from getLatestBlockhash.
type LatestBlockhash struct {
	Blockhash            Hash
	LastValidBlockHeight uint64
	Slot                 int64
}

// SignatureStatus from getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *uint64
	Err                interface{}
	ConfirmationStatus Commitment
}

// Reached reports whether the status is at least the wanted commitment.
func (s *SignatureStatus) Reached(want Commitment) bool {
	rank := map[Commitment]int{CommitmentProcessed: 1, CommitmentConfirmed: 2, CommitmentFinalized: 3}
	return rank[s.ConfirmationStatus] >= rank[want]
}
