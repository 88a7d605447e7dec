// Package instruction builds the instructions of the core and yield programs.
package instruction

import (
	"crypto/sha256"
	"encoding/binary"

	"stablebond-keeper/internal/solana"
)

// Discriminator returns the 8-byte prefix Anchor uses to route an
// instruction: sha256("global:<name>")[:8].
func Discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// args accumulates Borsh-encoded instruction data behind a discriminator.
type args struct {
	buf []byte
}

func newArgs(name string) *args {
	d := Discriminator(name)
	return &args{buf: append(make([]byte, 0, 64), d[:]...)}
}

func (a *args) u8(v uint8) *args   { a.buf = append(a.buf, v); return a }
func (a *args) u16(v uint16) *args { a.buf = binary.LittleEndian.AppendUint16(a.buf, v); return a }
func (a *args) u64(v uint64) *args { a.buf = binary.LittleEndian.AppendUint64(a.buf, v); return a }
func (a *args) i64(v int64) *args  { a.buf = binary.LittleEndian.AppendUint64(a.buf, uint64(v)); return a }

func (a *args) boolean(v bool) *args {
	if v {
		return a.u8(1)
	}
	return a.u8(0)
}

func (a *args) pubkey(pk solana.PublicKey) *args {
	a.buf = append(a.buf, pk[:]...)
	return a
}

func (a *args) raw(b []byte) *args {
	a.buf = append(a.buf, b...)
	return a
}

// Option<T> is a presence byte followed by the value when present.

func (a *args) optU16(v *uint16) *args {
	if v == nil {
		return a.u8(0)
	}
	return a.u8(1).u16(*v)
}

func (a *args) optU64(v *uint64) *args {
	if v == nil {
		return a.u8(0)
	}
	return a.u8(1).u64(*v)
}

func (a *args) optBool(v *bool) *args {
	if v == nil {
		return a.u8(0)
	}
	return a.u8(1).boolean(*v)
}

func (a *args) optPubkey(v *solana.PublicKey) *args {
	if v == nil {
		return a.u8(0)
	}
	return a.u8(1).pubkey(*v)
}

func (a *args) bytes() []byte { return a.buf }

func signerMut(pk solana.PublicKey) solana.AccountMeta { return solana.Meta(pk, true, true) }
func signer(pk solana.PublicKey) solana.AccountMeta    { return solana.Meta(pk, true, false) }
func mut(pk solana.PublicKey) solana.AccountMeta       { return solana.Meta(pk, false, true) }
func readonly(pk solana.PublicKey) solana.AccountMeta  { return solana.Meta(pk, false, false) }
