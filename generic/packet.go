package generic

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortBuffer is returned when a packet ends before a value is complete.
var ErrShortBuffer = errors.New("packet buffer exhausted")

// Buffer is a binary packet writer and reader. Read errors are sticky: after
// the first failure every read returns a zero value and Err reports the
// failure.
type Buffer struct {
	data []byte
	off  int
	err  error
}

// NewBuffer wraps data for reading. Use &Buffer{} for writing.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes returns the written bytes.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the number of unread bytes.
func (b *Buffer) Len() int { return len(b.data) - b.off }

func (b *Buffer) Err() error { return b.err }

func (b *Buffer) fail(what string, err error) {
	if b.err == nil {
		b.err = fmt.Errorf("failed to read %s at offset %d: %w", what, b.off, err)
	}
}

// =============================================================================
// WRITING
// =============================================================================

func (b *Buffer) WriteUint8(v uint8) { b.data = append(b.data, v) }

func (b *Buffer) WriteBool(v bool) {
	if v {
		b.WriteUint8(1)
	} else {
		b.WriteUint8(0)
	}
}

// WriteVarInt writes a zig-zag varint so small negative values stay small.
func (b *Buffer) WriteVarInt(v int) { b.data = binary.AppendVarint(b.data, int64(v)) }

func (b *Buffer) WriteVarLong(v int64) { b.data = binary.AppendVarint(b.data, v) }

func (b *Buffer) WriteString(s string) {
	b.data = binary.AppendUvarint(b.data, uint64(len(s)))
	b.data = append(b.data, s...)
}

func (b *Buffer) WriteBytes(p []byte) {
	b.data = binary.AppendUvarint(b.data, uint64(len(p)))
	b.data = append(b.data, p...)
}

// WriteCompound writes a length-prefixed compound; nil is written as an
// empty payload.
func (b *Buffer) WriteCompound(c Compound) {
	if len(c) == 0 {
		b.WriteBytes(nil)
		return
	}
	encoded, err := c.Encode()
	if err != nil {
		b.WriteBytes(nil)
		return
	}
	b.WriteBytes(encoded)
}

// =============================================================================
// READING
// =============================================================================

func (b *Buffer) ReadUint8() uint8 {
	if b.err != nil {
		return 0
	}
	if b.off >= len(b.data) {
		b.fail("byte", ErrShortBuffer)
		return 0
	}
	v := b.data[b.off]
	b.off++
	return v
}

func (b *Buffer) ReadBool() bool { return b.ReadUint8() != 0 }

func (b *Buffer) ReadVarInt() int { return int(b.ReadVarLong()) }

func (b *Buffer) ReadVarLong() int64 {
	if b.err != nil {
		return 0
	}
	v, n := binary.Varint(b.data[b.off:])
	if n <= 0 {
		b.fail("varint", ErrShortBuffer)
		return 0
	}
	b.off += n
	return v
}

func (b *Buffer) ReadBytes() []byte {
	if b.err != nil {
		return nil
	}
	size, n := binary.Uvarint(b.data[b.off:])
	if n <= 0 {
		b.fail("length", ErrShortBuffer)
		return nil
	}
	b.off += n
	if uint64(b.Len()) < size {
		b.fail("bytes", ErrShortBuffer)
		return nil
	}
	out := b.data[b.off : b.off+int(size)]
	b.off += int(size)
	return out
}

func (b *Buffer) ReadString() string { return string(b.ReadBytes()) }

// ReadCompound reads a compound written by WriteCompound. A payload that
// does not decode yields nil rather than failing the buffer.
func (b *Buffer) ReadCompound() Compound {
	payload := b.ReadBytes()
	if len(payload) == 0 {
		return nil
	}
	c, err := DecodeCompound(payload)
	if err != nil {
		return nil
	}
	return c
}
