// Package codec serializes engine records into fixed little-endian layouts.
// Every record starts with a one-byte kind discriminator.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/mr-tron/base58"
)

// Kind discriminates record layouts.
type Kind uint8

// Record kinds.
const (
	KindPool          Kind = 1
	KindPriceSeries   Kind = 2
	KindRewardDay     Kind = 3
	KindUserRewardDay Kind = 4
	KindTokenAccount  Kind = 5
)

// Codec errors.
var (
	// ErrWrongKind is returned when the discriminator does not match the expected layout.
	ErrWrongKind = errors.New("wrong record kind")

	// ErrShortBuffer is returned when data ends before the layout does.
	ErrShortBuffer = errors.New("record data too short")

	// ErrInvalidKey is returned when a key field is not a 32-byte base58 key.
	ErrInvalidKey = errors.New("invalid key field")
)

const keySize = 32

// writer appends little-endian fields.
type writer struct {
	buf []byte
}

func newWriter(kind Kind, capacity int) *writer {
	w := &writer{buf: make([]byte, 0, capacity)}
	w.u8(uint8(kind))
	return w
}

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *writer) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *writer) i64(v int64) { w.u64(uint64(v)) }

func (w *writer) f64(v float64) { w.u64(math.Float64bits(v)) }

func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
		return
	}
	w.u8(0)
}

func (w *writer) key(k string) error {
	raw, err := base58.Decode(k)
	if err != nil || len(raw) != keySize {
		return fmt.Errorf("%w: %q", ErrInvalidKey, k)
	}
	w.buf = append(w.buf, raw...)
	return nil
}

func (w *writer) bytes(b []byte) { w.buf = append(w.buf, b...) }

// reader consumes little-endian fields. The first error sticks.
type reader struct {
	buf []byte
	off int
	err error
}

func newReader(data []byte, kind Kind) *reader {
	r := &reader{buf: data}
	if got := r.u8(); r.err == nil && Kind(got) != kind {
		r.err = fmt.Errorf("%w: got %d, want %d", ErrWrongKind, got, kind)
	}
	return r
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, r.off, len(r.buf))
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) u64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *reader) i64() int64 { return int64(r.u64()) }

func (r *reader) f64() float64 { return math.Float64frombits(r.u64()) }

func (r *reader) bool() bool { return r.u8() != 0 }

func (r *reader) key() string {
	if b := r.take(keySize); b != nil {
		return base58.Encode(b)
	}
	return ""
}

func (r *reader) bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
