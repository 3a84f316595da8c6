package lz

import (
	"io"
	"log/slog"

	"github.com/RealBurst/unrar5j/bitio"
	"github.com/RealBurst/unrar5j/filter"
)

// ErrUnsupportedFilter is returned when the filter pipeline cannot honor a
// descriptor (unknown type, overlap, saturation).
var ErrUnsupportedFilter = filter.ErrUnsupportedFilter

// Decoder ties the bit reader, Huffman tables, sliding window, and filter
// pipeline together to decode one file's compressed stream into a sink.
// It is the LZEngine + OutputStager of spec.md §4.4/§4.6; block/table
// reading is folded in here rather than split into a separate type
// because the two are never used independently.
type Decoder struct {
	br     *bitio.Reader
	win    *Window
	tables Tables

	haveTables  bool
	isLastBlock bool

	filters filter.Pipeline

	lastMatchLen int

	log *slog.Logger
}

// NewDecoder wraps src (the raw or already-decrypted compressed byte
// stream for one file) around the given window, which may already carry
// state from a preceding solid-chain file.
func NewDecoder(src io.Reader, win *Window, log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	return &Decoder{
		br:  bitio.NewReader(src),
		win: win,
		log: log,
	}
}

type stepResult int

const (
	stepLimit stepResult = iota
	stepFilter
	stepBlockDone
)

// DecodeFile drives the whole per-file decode: reads Huffman blocks, runs
// the symbol loop, applies queued filters as their ranges become
// available, and writes the result to sink. unpackedSize, if non-nil,
// clamps how many bytes actually reach sink (spec.md §4.6's write clamp);
// bytes beyond it are still logically consumed.
func (d *Decoder) DecodeFile(sink io.Writer, unpackedSize *uint64, v7 bool) error {
	if err := d.br.Prepare(); err != nil {
		return err
	}
	d.win.StartFile()

	var written uint64

	for {
		if !d.haveTables || d.br.IsBlockOverRead() {
			if d.isLastBlock {
				break
			}
			if err := d.br.Prepare(); err != nil {
				return err
			}
			hdr, err := ReadBlockHeader(d.br)
			if err != nil {
				return err
			}
			d.isLastBlock = hdr.IsLastBlock
			if hdr.TablesPresent {
				t, err := ReadTables(d.br, v7)
				if err != nil {
					return err
				}
				d.tables = t
				d.haveTables = true
			} else if !d.haveTables {
				return ErrCorruptedData
			}
		}

		limit := d.win.size
		if d.win.pos+WriteStep < limit {
			limit = d.win.pos + WriteStep
		}

		res, err := d.runSymbols(limit)
		if err != nil {
			return err
		}

		switch res {
		case stepFilter:
			dropped, unsupported := d.filters.ReadDescriptor(d.br, d.win.LZPos())
			if unsupported {
				d.log.Warn("unsupported filter arrangement", "lzpos", d.win.LZPos())
				if d.filters.Full() {
					d.filters.Reset()
				}
				return ErrUnsupportedFilter
			}
			_ = dropped
		case stepLimit:
			if err := d.flush(sink, limit, unpackedSize, &written); err != nil {
				return err
			}
			d.win.Wrap()
			if unpackedSize != nil && written >= *unpackedSize {
				return nil
			}
		case stepBlockDone:
			// loop back around to read the next block header
		}

		if d.isLastBlock && d.br.IsBlockOverRead() && d.win.pos == limit {
			break
		}
	}

	if err := d.flush(sink, d.win.pos, unpackedSize, &written); err != nil {
		return err
	}

	if d.br.MinorError() && written == 0 {
		return ErrCorruptedData
	}
	if unpackedSize != nil && written != *unpackedSize {
		return ErrCorruptedData
	}
	return nil
}

// runSymbols executes main-alphabet symbols until the window reaches
// limit, the current block runs out, or a filter descriptor must be read.
func (d *Decoder) runSymbols(limit int) (stepResult, error) {
	for {
		if d.win.pos >= limit {
			return stepLimit, nil
		}
		if d.br.IsBlockOverRead() {
			return stepBlockDone, nil
		}

		sym := int(d.tables.Main.Decode(d.br))
		switch {
		case sym < 256:
			d.win.PutLiteral(byte(sym))

		case sym == SymFilter:
			return stepFilter, nil

		case sym == SymRep0:
			if d.lastMatchLen == 0 {
				continue
			}
			dist := d.win.RepDistances()[0]
			if err := d.copyValidatedMatch(dist, d.lastMatchLen); err != nil {
				return 0, err
			}

		case sym >= SymRep1 && sym <= SymRep4:
			idx := sym - SymRep1
			dist := d.win.UseRep(idx)
			length := decodeLenSlot(d.br, int(d.tables.Len.Decode(d.br)))
			d.lastMatchLen = length
			if err := d.copyValidatedMatch(dist, length); err != nil {
				return 0, err
			}

		case sym >= SymSlots:
			length := decodeLenSlot(d.br, int(d.tables.Len.Decode(d.br)))
			distSlot := int(d.tables.Dist.Decode(d.br))
			dist := decodeDistSlot(d.br, &d.tables.Align, d.tables.UseAlignBits, distSlot, &length)
			d.lastMatchLen = length
			d.win.PushNewDistance(dist)
			if err := d.copyValidatedMatch(dist, length); err != nil {
				return 0, err
			}

		default:
			return 0, ErrCorruptedData
		}
	}
}

func (d *Decoder) copyValidatedMatch(dist uint32, length int) error {
	if dist == DistSentinel {
		return ErrCorruptedData
	}
	if d.win.lzSize == 0 && int(dist) > d.win.pos {
		return ErrCorruptedData
	}
	if int64(dist) > d.win.DictSizeForCheck() {
		return ErrCorruptedData
	}
	d.win.CopyMatch(dist, length)
	return nil
}

// flush routes window bytes in [win.lzWritten-relative start, upTo) through
// any ready filters and on to sink, respecting the unpackedSize clamp.
func (d *Decoder) flush(sink io.Writer, upTo int, unpackedSize *uint64, written *uint64) error {
	upToLZ := d.win.lzSize + int64(upTo)

	for {
		f := d.filters.Front()
		windowStart := int(d.win.lzWritten - d.win.lzSize)

		if f == nil || f.StartPos >= upToLZ {
			// nothing pending in range: flush straight through to upTo
			if windowStart < upTo {
				if err := d.writeClamped(sink, d.win.Bytes(windowStart, upTo), written, unpackedSize); err != nil {
					return err
				}
			}
			d.win.lzWritten = upToLZ
			return nil
		}

		if f.StartPos+int64(f.Size) > upToLZ {
			// filter's range isn't fully buffered yet
			if windowStart < int(f.StartPos-d.win.lzSize) {
				if err := d.writeClamped(sink, d.win.Bytes(windowStart, int(f.StartPos-d.win.lzSize)), written, unpackedSize); err != nil {
					return err
				}
				d.win.lzWritten = f.StartPos
			}
			return nil
		}

		// flush straight bytes up to the filter's start
		fStart := int(f.StartPos - d.win.lzSize)
		if windowStart < fStart {
			if err := d.writeClamped(sink, d.win.Bytes(windowStart, fStart), written, unpackedSize); err != nil {
				return err
			}
		}

		fEnd := fStart + f.Size
		region := make([]byte, f.Size)
		copy(region, d.win.Bytes(fStart, fEnd))
		filter.Apply(*f, region, f.StartPos-d.win.lzFileStart)

		if err := d.writeClamped(sink, region, written, unpackedSize); err != nil {
			return err
		}
		d.win.lzWritten = f.StartPos + int64(f.Size)
		d.filters.Pop()
	}
}

func (d *Decoder) writeClamped(sink io.Writer, data []byte, written *uint64, unpackedSize *uint64) error {
	n := len(data)
	*written += uint64(n)

	if unpackedSize != nil {
		already := *written - uint64(n)
		if already >= *unpackedSize {
			return nil
		}
		allowed := *unpackedSize - already
		if uint64(n) > allowed {
			data = data[:allowed]
		}
	}
	if len(data) == 0 {
		return nil
	}
	_, err := sink.Write(data)
	return err
}
