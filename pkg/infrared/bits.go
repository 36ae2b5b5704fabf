package infrared

import "errors"

// MaxBits is the capacity of a bit buffer.
const MaxBits = 64

var ErrBufferFull = errors.New("infrared: bit buffer full")

// Bits is a fixed capacity bit vector filled in wire order.
// Bit 0 is the first bit on the wire.
type Bits struct {
	word uint64
	n    int
}

// Push appends one bit.
func (b *Bits) Push(v bool) error {
	if b.n >= MaxBits {
		return ErrBufferFull
	}
	if v {
		b.word |= 1 << uint(b.n)
	}
	b.n++
	return nil
}

// PushLSB appends the lowest width bits of v, least significant bit first.
func (b *Bits) PushLSB(v uint64, width int) error {
	if b.n+width > MaxBits {
		return ErrBufferFull
	}
	for i := 0; i < width; i++ {
		_ = b.Push(v&(1<<uint(i)) != 0)
	}
	return nil
}

// PushMSB appends the lowest width bits of v, most significant bit first.
func (b *Bits) PushMSB(v uint64, width int) error {
	if b.n+width > MaxBits {
		return ErrBufferFull
	}
	for i := width - 1; i >= 0; i-- {
		_ = b.Push(v&(1<<uint(i)) != 0)
	}
	return nil
}

// Bit returns the bit at index i, false if i is out of range.
func (b Bits) Bit(i int) bool {
	if i < 0 || i >= b.n {
		return false
	}
	return b.word&(1<<uint(i)) != 0
}

func (b Bits) Len() int { return b.n }

func (b *Bits) Reset() {
	b.word, b.n = 0, 0
}

// Uint64 returns all bits, the first bit on the wire in the lowest position.
func (b Bits) Uint64() uint64 { return b.word }

// Field returns width bits starting at offset, the first one as least significant bit.
func (b Bits) Field(offset, width int) uint32 {
	var v uint32
	for i := width - 1; i >= 0; i-- {
		v <<= 1
		if b.Bit(offset + i) {
			v |= 1
		}
	}
	return v
}

// FieldMSB returns width bits starting at offset, the first one as most significant bit.
func (b Bits) FieldMSB(offset, width int) uint32 {
	var v uint32
	for i := 0; i < width; i++ {
		v <<= 1
		if b.Bit(offset + i) {
			v |= 1
		}
	}
	return v
}

// Not returns a copy with every bit inverted.
func (b Bits) Not() Bits {
	mask := ^uint64(0)
	if b.n < MaxBits {
		mask = 1<<uint(b.n) - 1
	}
	return Bits{word: ^b.word & mask, n: b.n}
}
