package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	// MaxSeeds is the maximum number of seeds a program address may use, bump included.
	MaxSeeds = 16
	// MaxSeedLength is the maximum length of a single seed.
	MaxSeedLength = 32

	pdaMarker = "ProgramDerivedAddress"
)

var (
	// ErrInvalidSeeds is returned when a seed list violates the runtime's limits.
	ErrInvalidSeeds = errors.New("invalid seeds")
	// ErrOnCurve is returned when a candidate program address lies on the ed25519 curve.
	ErrOnCurve = errors.New("address is on curve")
	// ErrNoViableBump is returned when every bump yields an on-curve point.
	ErrNoViableBump = errors.New("unable to find a viable program address bump")
)

// CreateProgramAddress derives the address for seeds (bump already appended) under programID.
// Returns ErrOnCurve if the hash is a valid ed25519 point.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return PublicKey{}, fmt.Errorf("%w: %d seeds exceeds %d", ErrInvalidSeeds, len(seeds), MaxSeeds)
	}

	h := sha256.New()
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return PublicKey{}, fmt.Errorf("%w: seed %d is %d bytes", ErrInvalidSeeds, i, len(seed))
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var pk PublicKey
	copy(pk[:], h.Sum(nil))
	if isOnCurve(pk[:]) {
		return PublicKey{}, ErrOnCurve
	}
	return pk, nil
}

// FindProgramAddress searches bumps 255 down to 1 and returns the first off-curve address
// together with its bump.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return PublicKey{}, 0, fmt.Errorf("%w: %d seeds leaves no room for bump", ErrInvalidSeeds, len(seeds))
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump > 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		pk, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return pk, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return PublicKey{}, 0, err
		}
	}
	return PublicKey{}, 0, ErrNoViableBump
}

// IsOnCurve reports whether pk is a valid ed25519 point, i.e. could have a private key.
func IsOnCurve(pk PublicKey) bool {
	return isOnCurve(pk[:])
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
