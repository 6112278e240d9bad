package permission

import "math/bits"

// Mask is a fixed-width permission bitset.
type Mask []uint64

// NewMask returns a zero mask able to hold width bits.
func NewMask(width int) Mask {
	if width <= 0 {
		return Mask{}
	}
	return make(Mask, (width+63)/64)
}

// Set turns bit on. Out-of-range bits are ignored.
func (m Mask) Set(bit int) {
	if bit < 0 || bit/64 >= len(m) {
		return
	}
	m[bit/64] |= 1 << uint(bit%64)
}

// Clear turns bit off.
func (m Mask) Clear(bit int) {
	if bit < 0 || bit/64 >= len(m) {
		return
	}
	m[bit/64] &^= 1 << uint(bit%64)
}

// Has reports whether bit is on.
func (m Mask) Has(bit int) bool {
	if bit < 0 || bit/64 >= len(m) {
		return false
	}
	return m[bit/64]&(1<<uint(bit%64)) != 0
}

// Or merges other into m. Words beyond len(m) are dropped.
func (m Mask) Or(other Mask) {
	for i := 0; i < len(m) && i < len(other); i++ {
		m[i] |= other[i]
	}
}

// Bits returns the set bit positions in ascending order.
func (m Mask) Bits() []int {
	out := make([]int, 0, m.Count())
	for i, w := range m {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, i*64+b)
			w &^= 1 << uint(b)
		}
	}
	return out
}

// Count returns the number of set bits.
func (m Mask) Count() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

// Clone returns an independent copy of m.
func (m Mask) Clone() Mask {
	return append(Mask(nil), m...)
}
