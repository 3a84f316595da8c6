package lz

import (
	"github.com/RealBurst/unrar5j/bitio"
	"github.com/RealBurst/unrar5j/huffman"
)

// Alphabet sizes (spec.md GLOSSARY: v7 main 312 / dist 80 / align 16 / len 44;
// v6 replaces dist with 64).
const (
	MainSize  = 312
	DistSizeV = 80
	DistSizeW = 64
	AlignSize = 16
	LenSize   = 44

	levelAlphabetSize = 20
)

const (
	mainFastBits  = 10
	distFastBits  = 7
	lenFastBits   = 7
	alignFastBits = 6
	levelFastBits = 7
)

// Main-alphabet symbol values with special meaning (spec.md §4.4).
const (
	SymFilter = 256
	SymRep0   = 257
	SymRep1   = 258
	SymRep2   = 259
	SymRep3   = 260
	SymRep4   = 261
	SymSlots  = 262 // first of 50 length-slot symbols, 262..311
)

// Tables holds the four decoders for one Huffman block, plus whether the
// align decoder supplies the low 4 bits of long distances. UseAlignBits is
// false when every align length is 4 (a fixed 4-bit code), and those bits
// are then read raw.
type Tables struct {
	Main  huffman.Decoder
	Dist  huffman.Decoder
	Align huffman.Decoder
	Len   huffman.Decoder

	UseAlignBits bool
}

// BlockHeader is the parsed 3-byte-plus header that frames a Huffman
// block (spec.md §4.3).
type BlockHeader struct {
	TrailingBits7 int // 1..8
	IsLastBlock   bool
	TablesPresent bool
	BlockEnd      int64
	BlockEndBits7 int
}

// ReadBlockHeader reads and validates the aligned block header at the
// current bit-reader position. minorError is set on the reader if the
// header describes a degenerate zero-length block.
func ReadBlockHeader(br *bitio.Reader) (BlockHeader, error) {
	br.AlignToByte()

	flags := byte(br.ReadBits9Fix(8))
	checksumXor := byte(br.ReadBits9Fix(8))

	num := int((flags >> 3) & 3)
	if num == 3 {
		return BlockHeader{}, ErrCorruptedData
	}

	nsizebytes := 1 + num
	sizeBytes := make([]byte, nsizebytes)
	var size uint32
	xor := flags ^ checksumXor
	for i := 0; i < nsizebytes; i++ {
		b := byte(br.ReadBits9Fix(8))
		sizeBytes[i] = b
		xor ^= b
		size |= uint32(b) << uint(8*i)
	}

	if xor != 0x5A {
		return BlockHeader{}, ErrCorruptedData
	}

	b7 := int(flags & 7)
	if b7 == 0 {
		b7 = 8
	}

	if size == 0 {
		size = 1
		br.SetMinorError()
	}

	h := BlockHeader{
		TrailingBits7: b7,
		IsLastBlock:   flags&0x40 != 0,
		TablesPresent: flags&0x80 != 0,
	}

	base := br.GetProcessedSizeRound()
	h.BlockEnd = base + int64(size) + int64(b7>>3)
	h.BlockEndBits7 = b7 & 7

	br.SetBlockEnd(h.BlockEnd, h.BlockEndBits7)
	return h, nil
}

// readLevelTable reads the 20-entry level alphabet used to Huffman-code
// the four real tables' length arrays, applying the run-length escapes
// described in spec.md §4.3.
func readLevelTable(br *bitio.Reader) (huffman.Decoder, error) {
	var lengths [levelAlphabetSize]uint8
	i := 0
	for i < levelAlphabetSize {
		l := byte(br.ReadBits9Fix(4))
		if l == 15 {
			zeroRun := byte(br.ReadBits9Fix(4))
			if zeroRun != 0 {
				n := int(zeroRun) + 2
				for j := 0; j < n && i < levelAlphabetSize; j++ {
					lengths[i] = 0
					i++
				}
				continue
			}
		}
		lengths[i] = l
		i++
	}

	var dec huffman.Decoder
	if !dec.Build(lengths[:], levelFastBits, huffman.FullOrEmpty) {
		return huffman.Decoder{}, ErrCorruptedData
	}
	return dec, nil
}

// readTableLengths reads count length entries through the level decoder,
// including its 16-19 repetition-run escapes.
func readTableLengths(br *bitio.Reader, level *huffman.Decoder, count int) ([]uint8, error) {
	out := make([]uint8, count)
	i := 0
	var lastNonZero uint8
	for i < count {
		sym := level.Decode(br)
		switch {
		case sym < 16:
			out[i] = uint8(sym)
			if sym != 0 {
				lastNonZero = uint8(sym)
			}
			i++
		case sym == 16:
			if i == 0 {
				return nil, ErrCorruptedData
			}
			extra := 3
			n := int(br.ReadBits9Fix(extra)) + 3
			for j := 0; j < n && i < count; j++ {
				out[i] = lastNonZero
				i++
			}
		case sym == 17:
			extra := 7
			n := int(br.ReadBits9Fix(extra)) + 7
			for j := 0; j < n && i < count; j++ {
				out[i] = lastNonZero
				i++
			}
		case sym == 18:
			extra := 3
			n := int(br.ReadBits9Fix(extra)) + 3
			for j := 0; j < n && i < count; j++ {
				out[i] = 0
				i++
			}
		case sym == 19:
			extra := 7
			n := int(br.ReadBits9Fix(extra)) + 7
			for j := 0; j < n && i < count; j++ {
				out[i] = 0
				i++
			}
		default:
			return nil, ErrCorruptedData
		}
	}
	return out, nil
}

// ReadTables reads and rebuilds all four decoders when the block header's
// tables-present flag is set.
func ReadTables(br *bitio.Reader, v7 bool) (Tables, error) {
	level, err := readLevelTable(br)
	if err != nil {
		return Tables{}, err
	}

	distSize := DistSizeW
	if v7 {
		distSize = DistSizeV
	}

	total := MainSize + distSize + AlignSize + LenSize
	lengths, err := readTableLengths(br, &level, total)
	if err != nil {
		return Tables{}, err
	}

	pos := 0
	mainLen := lengths[pos:][:MainSize]
	pos += MainSize
	distLenRaw := lengths[pos:][:distSize]
	pos += distSize
	alignLen := lengths[pos:][:AlignSize]
	pos += AlignSize
	lenLen := lengths[pos:][:LenSize]

	distLen := make([]uint8, DistSizeV)
	copy(distLen, distLenRaw)

	var t Tables
	if !t.Main.Build(mainLen, mainFastBits, huffman.FullOrEmpty) {
		return Tables{}, ErrCorruptedData
	}
	if !t.Dist.Build(distLen, distFastBits, huffman.FullOrEmpty) {
		return Tables{}, ErrCorruptedData
	}
	if !t.Align.Build(alignLen, alignFastBits, huffman.FullOrEmpty) {
		return Tables{}, ErrCorruptedData
	}
	if !t.Len.Build(lenLen, lenFastBits, huffman.FullOrEmpty) {
		return Tables{}, ErrCorruptedData
	}

	t.UseAlignBits = false
	for _, l := range alignLen {
		if l != 4 {
			t.UseAlignBits = true
			break
		}
	}

	return t, nil
}
