package solana

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// PublicKeyLength is the size of an ed25519 public key / account address.
const PublicKeyLength = 32

// PublicKey is a Solana account address.
type PublicKey [PublicKeyLength]byte

// Well-known program addresses.
var (
	SystemProgramID = MustPublicKey("11111111111111111111111111111111")
	TokenProgramID  = MustPublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	SysvarRentID    = MustPublicKey("SysvarRent111111111111111111111111111111111")
)

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	raw, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("decode public key %q: %w", s, err)
	}
	if len(raw) != PublicKeyLength {
		return pk, fmt.Errorf("public key %q: expected %d bytes, got %d", s, PublicKeyLength, len(raw))
	}
	copy(pk[:], raw)
	return pk, nil
}

// MustPublicKey is ParsePublicKey for constants. It panics on invalid input.
func MustPublicKey(s string) PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PublicKeyFromBytes copies b into a PublicKey. b must be exactly 32 bytes.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeyLength {
		return pk, fmt.Errorf("public key: expected %d bytes, got %d", PublicKeyLength, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// String returns the base58 form.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Bytes returns a copy of the key bytes, suitable for PDA seeds.
func (pk PublicKey) Bytes() []byte {
	b := make([]byte, PublicKeyLength)
	copy(b, pk[:])
	return b
}

// IsZero reports whether pk is the all-zero key.
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// MarshalText implements encoding.TextMarshaler so keys render as base58 in JSON and TOML.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}
