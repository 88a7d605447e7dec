package ledger

import (
	"errors"
	"fmt"

	"stablebond-keeper/internal/solana"
)

// ErrAccountNotFound is returned when no account exists at a derived address.
// Read paths treat it as "not created yet" rather than a failure.
var ErrAccountNotFound = errors.New("account not found")

// DecodeError is returned when a buffer is too short or malformed for a record kind.
type DecodeError struct {
	Kind   Kind
	Need   int
	Got    int
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("decode %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("decode %s: need %d bytes, got %d", e.Kind, e.Need, e.Got)
}

// NotFoundError names the missing account. It matches ErrAccountNotFound.
type NotFoundError struct {
	Kind    Kind
	Address solana.PublicKey
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Address, ErrAccountNotFound)
}

func (e *NotFoundError) Unwrap() error {
	return ErrAccountNotFound
}

// IsNotFound reports whether err means the account does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}
