package lz

import (
	"github.com/RealBurst/unrar5j/bitio"
	"github.com/RealBurst/unrar5j/huffman"
)

// decodeLenSlot turns a len-decoder symbol (0..LenSize-1) into a true
// match length (spec.md §4.4).
func decodeLenSlot(br *bitio.Reader, s int) int {
	if s < 8 {
		return s + 2
	}
	shift := uint(s>>2) - 1
	base := (4 | (s & 3)) << shift
	extra := int(br.ReadBits9(int(shift)))
	return base + extra + 2
}

// decodeDistSlot turns a dist-decoder symbol into a match distance,
// applying the LEN_PLUS addend to *length in place. The addend depends on
// where the fully assembled distance falls relative to 0x100/0x2000/0x40000,
// not on how many low bits the slot needed, so it is computed once the
// distance itself is known rather than mid-assembly (spec.md §4.4).
func decodeDistSlot(br *bitio.Reader, align *huffman.Decoder, useAlignBits bool, d int, length *int) uint32 {
	if d < 4 {
		dist := uint32(d) + 1
		*length += lenPlusAddend(dist)
		return dist
	}

	numBits := uint((d - 2) >> 1)
	base := uint32(2|(d&1)) << numBits

	var low uint32
	if numBits < 4 {
		low = br.ReadBits9Fix(int(numBits))
	} else {
		high := br.ReadBitsWide(int(numBits - 4))
		var low4 uint32
		if useAlignBits {
			low4 = uint32(align.Decode(br))
		} else {
			low4 = br.ReadBits9Fix(4)
		}
		low = (high << 4) | low4
		if numBits >= 30 {
			return 0xFFFFFFFE
		}
	}
	dist := base + low + 1
	*length += lenPlusAddend(dist)
	return dist
}
