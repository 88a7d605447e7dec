package ledger

import (
	"encoding/binary"

	"stablebond-keeper/internal/solana"
)

// fieldCodec walks a record's fields in wire order. The same schema drives
// decoding, encoding and size computation.
type fieldCodec interface {
	u8(v *uint8)
	boolean(v *bool)
	u16(v *uint16)
	u32(v *uint32)
	u64(v *uint64)
	i64(v *int64)
	pubkey(v *solana.PublicKey)
	bytes(v []byte)
}

// schema is implemented by every account record and event.
type schema interface {
	fields(c fieldCodec)
}

// reader decodes little-endian fields. Reads past the end yield zero values
// and set short.
type reader struct {
	data  []byte
	off   int
	short bool
}

func (r *reader) take(n int) []byte {
	if r.off+n > len(r.data) {
		r.short = true
		r.off = len(r.data)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8(v *uint8) {
	if b := r.take(1); b != nil {
		*v = b[0]
	}
}

func (r *reader) boolean(v *bool) {
	if b := r.take(1); b != nil {
		*v = b[0] != 0
	}
}

func (r *reader) u16(v *uint16) {
	if b := r.take(2); b != nil {
		*v = binary.LittleEndian.Uint16(b)
	}
}

func (r *reader) u32(v *uint32) {
	if b := r.take(4); b != nil {
		*v = binary.LittleEndian.Uint32(b)
	}
}

func (r *reader) u64(v *uint64) {
	if b := r.take(8); b != nil {
		*v = binary.LittleEndian.Uint64(b)
	}
}

func (r *reader) i64(v *int64) {
	if b := r.take(8); b != nil {
		*v = int64(binary.LittleEndian.Uint64(b))
	}
}

func (r *reader) pubkey(v *solana.PublicKey) {
	if b := r.take(solana.PublicKeyLength); b != nil {
		copy(v[:], b)
	}
}

func (r *reader) bytes(v []byte) {
	if b := r.take(len(v)); b != nil {
		copy(v, b)
	}
}

// writer appends fields in wire order.
type writer struct {
	buf []byte
}

func (w *writer) u8(v *uint8) { w.buf = append(w.buf, *v) }

func (w *writer) boolean(v *bool) {
	if *v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *writer) u16(v *uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, *v) }
func (w *writer) u32(v *uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, *v) }
func (w *writer) u64(v *uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, *v) }
func (w *writer) i64(v *int64)  { w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(*v)) }

func (w *writer) pubkey(v *solana.PublicKey) { w.buf = append(w.buf, v[:]...) }
func (w *writer) bytes(v []byte)             { w.buf = append(w.buf, v...) }

// counter measures the encoded size of a schema.
type counter struct {
	n int
}

func (c *counter) u8(*uint8)                { c.n++ }
func (c *counter) boolean(*bool)            { c.n++ }
func (c *counter) u16(*uint16)              { c.n += 2 }
func (c *counter) u32(*uint32)              { c.n += 4 }
func (c *counter) u64(*uint64)              { c.n += 8 }
func (c *counter) i64(*int64)               { c.n += 8 }
func (c *counter) pubkey(*solana.PublicKey) { c.n += solana.PublicKeyLength }
func (c *counter) bytes(v []byte)           { c.n += len(v) }

func sizeOf(s schema) int {
	var c counter
	s.fields(&c)
	return c.n
}
