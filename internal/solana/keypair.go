package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
)

// Keypair is an ed25519 signing key with its derived address.
type Keypair struct {
	private ed25519.PrivateKey
	public  PublicKey
}

// NewKeypair generates a random keypair.
func NewKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return keypairFromPrivate(priv), nil
}

// KeypairFromSeed builds a deterministic keypair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keypair seed: expected %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return keypairFromPrivate(ed25519.NewKeyFromSeed(seed)), nil
}

// KeypairFromBytes accepts the 64-byte secret key format used by the Solana CLI.
func KeypairFromBytes(b []byte) (*Keypair, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair: expected %d bytes, got %d", ed25519.PrivateKeySize, len(b))
	}
	kp := keypairFromPrivate(ed25519.NewKeyFromSeed(b[:ed25519.SeedSize]))
	if string(kp.public[:]) != string(b[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("keypair: public half does not match secret")
	}
	return kp, nil
}

// LoadKeypairFile reads a Solana CLI keypair file (a JSON array of 64 byte values).
func LoadKeypairFile(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("parse keypair file %s: %w", path, err)
	}
	raw := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("parse keypair file %s: byte %d out of range", path, i)
		}
		raw[i] = byte(v)
	}
	return KeypairFromBytes(raw)
}

func keypairFromPrivate(priv ed25519.PrivateKey) *Keypair {
	kp := &Keypair{private: priv}
	copy(kp.public[:], priv.Public().(ed25519.PublicKey))
	return kp
}

// PublicKey returns the keypair's address.
func (k *Keypair) PublicKey() PublicKey {
	return k.public
}

// Sign signs msg.
func (k *Keypair) Sign(msg []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(k.private, msg))
	return sig
}
