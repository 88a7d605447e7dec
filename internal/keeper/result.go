package keeper

import (
	"errors"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/solana"
)

// ErrSkipped marks an item the keeper chose not to act on.
var ErrSkipped = errors.New("skipped")

// ItemResult is the outcome of one keeper item.
type ItemResult struct {
	Instruction string
	Target      solana.PublicKey
	BondType    domain.BondType
	Outcome     domain.ActionOutcome
	Signature   *solana.Signature
	Reason      string // why the item was skipped
	Err         error
}

// Result summarizes a tick.
type Result struct {
	Items []ItemResult
}

// ScanResult is a ConversionBot tick.
type ScanResult struct {
	Result
	Found int // pending deposits matched by the scan
}

// UpdateResult is a NavUpdater tick.
type UpdateResult struct {
	Result
	Bonds int // active bonds considered
}

func (r *Result) count(o domain.ActionOutcome) int {
	n := 0
	for _, it := range r.Items {
		if it.Outcome == o {
			n++
		}
	}
	return n
}

func (r *Result) Submitted() int { return r.count(domain.OutcomeSubmitted) }
func (r *Result) Failed() int    { return r.count(domain.OutcomeFailed) }
func (r *Result) Skipped() int   { return r.count(domain.OutcomeSkipped) }

// Errors returns the error of every failed item.
func (r *Result) Errors() []error {
	var errs []error
	for _, it := range r.Items {
		if it.Err != nil {
			errs = append(errs, it.Err)
		}
	}
	return errs
}

func (r *Result) submitted(ix string, target solana.PublicKey, bt domain.BondType, sig solana.Signature) {
	r.Items = append(r.Items, ItemResult{Instruction: ix, Target: target, BondType: bt, Outcome: domain.OutcomeSubmitted, Signature: &sig})
}

func (r *Result) failed(ix string, target solana.PublicKey, bt domain.BondType, err error) {
	r.Items = append(r.Items, ItemResult{Instruction: ix, Target: target, BondType: bt, Outcome: domain.OutcomeFailed, Err: err})
}

func (r *Result) skipped(ix string, target solana.PublicKey, bt domain.BondType, reason string) {
	r.Items = append(r.Items, ItemResult{Instruction: ix, Target: target, BondType: bt, Outcome: domain.OutcomeSkipped, Reason: reason})
}
