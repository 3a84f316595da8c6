// Package huffman implements the canonical, length-limited Huffman decoder
// shared by RAR5's four code tables (main, distance, length, alignment).
// Codes are at most 15 bits; decoding uses a direct-indexed fast table for
// short codes and a cumulative-threshold search for the rest, exactly the
// two-level scheme spec.md §4.2 describes.
package huffman

import "github.com/RealBurst/unrar5j/bitio"

// MaxCodeLen is the longest code this decoder ever builds.
const MaxCodeLen = 15

// Mode controls how strictly Build validates the Kraft sum of the supplied
// lengths.
type Mode int

const (
	// Full requires a complete code: the Kraft sum must equal 2^MaxCodeLen.
	Full Mode = iota
	// FullOrEmpty accepts a complete code or an all-zero (empty) table.
	FullOrEmpty
	// Partial accepts any code whose Kraft sum does not exceed 2^MaxCodeLen.
	Partial
)

// Decoder is a canonical Huffman decoder built from a per-symbol length
// table. The zero value is not usable; construct with Build.
type Decoder struct {
	fastBits int
	fastSym  []uint16
	fastLen  []uint8

	// length[k] is the smallest 15-bit left-aligned value whose top k bits
	// would decode to a code of length > k (i.e. the exclusive upper bound
	// for codes of length k). pos[k] is the offset into syms where codes of
	// length k begin, in ascending code order.
	length [MaxCodeLen + 1]uint32
	pos    [MaxCodeLen + 1]uint16
	syms   []uint16

	empty bool
}

// Build constructs the decoder from lengths (lengths[sym] is the code
// length of symbol sym, 0 meaning unused). fastBits selects the size of
// the direct-indexed fast table (2^fastBits entries); spec.md §4.2 uses 10
// for main, 7 for dist/len, 6 for align.
//
// Build returns false if any length exceeds MaxCodeLen or the Kraft sum
// disagrees with mode; callers must treat a false return as corrupted
// input and abort the current file.
func (d *Decoder) Build(lengths []uint8, fastBits int, mode Mode) bool {
	var count [MaxCodeLen + 1]int
	for _, l := range lengths {
		if l > MaxCodeLen {
			return false
		}
		count[l]++
	}

	if count[0] == len(lengths) {
		if mode != FullOrEmpty {
			return false
		}
		*d = Decoder{fastBits: fastBits, empty: true}
		d.fastSym = make([]uint16, 1<<uint(fastBits))
		d.fastLen = make([]uint8, 1<<uint(fastBits))
		return true
	}

	var kraft uint64
	for l := 1; l <= MaxCodeLen; l++ {
		kraft += uint64(count[l]) << uint(MaxCodeLen-l)
	}
	switch mode {
	case Full, FullOrEmpty:
		if kraft != 1<<uint(MaxCodeLen) {
			return false
		}
	case Partial:
		if kraft > 1<<uint(MaxCodeLen) {
			return false
		}
	}

	d.fastBits = fastBits
	d.empty = false

	var tmpPos [MaxCodeLen + 1]uint16
	var n, m uint32
	for i := 1; i <= MaxCodeLen; i++ {
		n += uint32(count[i])
		m = n << uint(MaxCodeLen-i)
		if m > 1<<uint(MaxCodeLen) {
			m = 1 << uint(MaxCodeLen)
		}
		d.length[i] = m
		n *= 2
		if i > 1 {
			tmpPos[i] = tmpPos[i-1] + uint16(count[i-1])
		}
		d.pos[i] = tmpPos[i]
	}

	d.syms = make([]uint16, len(lengths)-count[0])
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		d.syms[tmpPos[l]] = uint16(sym)
		tmpPos[l]++
	}

	d.buildFastTable()
	return true
}

func (d *Decoder) buildFastTable() {
	size := 1 << uint(d.fastBits)
	d.fastSym = make([]uint16, size)
	d.fastLen = make([]uint8, size)

	for v := 0; v < size; v++ {
		v15 := uint32(v) << uint(MaxCodeLen-d.fastBits)
		bits := 1
		for bits < MaxCodeLen && v15 >= d.length[bits] {
			bits++
		}
		if bits > d.fastBits {
			d.fastLen[v] = 0 // must fall through to the slow path
			continue
		}
		d.fastSym[v] = d.symbolFor(v15, bits)
		d.fastLen[v] = uint8(bits)
	}
}

func (d *Decoder) symbolFor(v15 uint32, bits int) uint16 {
	var base uint32
	if bits > 1 {
		base = d.length[bits-1]
	}
	idx := int(d.pos[bits]) + int((v15-base)>>uint(MaxCodeLen-bits))
	return d.syms[idx]
}

// Empty reports whether the table was built from an all-zero length array
// (only possible under FullOrEmpty). Decode must never be called on an
// empty decoder.
func (d *Decoder) Empty() bool { return d.empty }

// Decode reads a symbol from br. It always consumes at least one bit and
// never fails: the bit reader's 0xFF padding invariant guarantees some
// code path terminates even at end of stream, though the resulting symbol
// may be meaningless once the caller notices the stream is exhausted.
func (d *Decoder) Decode(br *bitio.Reader) uint16 {
	v := br.GetValue(MaxCodeLen)
	idx := v >> uint(MaxCodeLen-d.fastBits)
	if fl := d.fastLen[idx]; fl != 0 {
		br.MovePos(int(fl))
		return d.fastSym[idx]
	}

	bits := d.fastBits + 1
	for bits < MaxCodeLen && v >= d.length[bits] {
		bits++
	}
	br.MovePos(bits)
	return d.symbolFor(v, bits)
}
