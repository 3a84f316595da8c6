// Package filter implements the RAR5 post-processing filter pipeline:
// DELTA, x86 E8/E8E9 call/jump unbiasing, and ARM BL rewriting, plus the
// position-ordered queue of pending filters described in spec.md §4.5.
package filter

import (
	"encoding/binary"
	"errors"

	"github.com/RealBurst/unrar5j/bitio"
)

// Type identifies which transform a Pending filter applies.
type Type int

const (
	Delta Type = iota
	E8
	E8E9
	ARM
)

// MaxSize is the largest byte range a single filter may cover.
const MaxSize = 1 << 22

// MaxQueue is the maximum number of filters the pipeline will hold before
// the archive is declared to use an unsupported filter arrangement.
const MaxQueue = 8192

// ErrUnsupportedFilter covers unknown filter types, illegal overlap between
// consecutive filters, and queue saturation.
var ErrUnsupportedFilter = errors.New("filter: unsupported filter arrangement")

// Pending describes a filter queued by the LZ engine but not yet applied,
// because not enough output bytes have accumulated in the window.
type Pending struct {
	StartPos int64 // LZ coordinate of the first affected byte
	Size     int
	Type     Type
	Channels int // only meaningful for Delta
}

// Pipeline is the ordered queue of Pending filters for one file. Filters
// are consumed strictly in ascending StartPos order.
type Pipeline struct {
	queue     []Pending
	filterEnd int64
}

// Len reports the number of filters currently queued.
func (p *Pipeline) Len() int { return len(p.queue) }

// Full reports whether the queue has reached MaxQueue.
func (p *Pipeline) Full() bool { return len(p.queue) >= MaxQueue }

// Front returns the earliest queued filter, or nil if the queue is empty.
func (p *Pipeline) Front() *Pending {
	if len(p.queue) == 0 {
		return nil
	}
	return &p.queue[0]
}

// Pop removes and returns the earliest queued filter.
func (p *Pipeline) Pop() Pending {
	f := p.queue[0]
	p.queue = p.queue[1:]
	return f
}

// Reset discards all queued filters, used when the pipeline has declared
// itself unsupported and the caller is abandoning further filtering.
func (p *Pipeline) Reset() {
	p.queue = p.queue[:0]
	p.filterEnd = 0
}

// readVarLen reads RAR5's 2-bit-selector + 1..4-byte little-endian varint
// used by filter descriptors for startPosDelta and size.
func readVarLen(br *bitio.Reader) uint32 {
	nbytes := int(br.ReadBits9Fix(2)) + 1
	var v uint32
	for i := 0; i < nbytes; i++ {
		v |= br.ReadBits9Fix(8) << uint(8*i)
	}
	return v
}

// ReadDescriptor consumes one filter descriptor from br (the bit reader
// must already be positioned right after the main-alphabet filter symbol,
// 256) and attempts to enqueue it. currentLZPos is lzSize+windowPos at the
// moment the descriptor is read.
//
// It returns unsupported=true (never combined with an error the caller
// must treat as anything but "drop and continue") when the descriptor
// overlaps the previously queued range or the queue is saturated; the
// caller decides whether saturation is itself fatal.
func (p *Pipeline) ReadDescriptor(br *bitio.Reader, currentLZPos int64) (dropped bool, unsupported bool) {
	startPosDelta := readVarLen(br)
	size := readVarLen(br)
	typ := Type(br.ReadBits9Fix(3))

	channels := 0
	if typ == Delta {
		channels = int(br.ReadBits9Fix(5)) + 1
	}

	if size == 0 {
		return true, false
	}
	if size > MaxSize {
		return true, true
	}
	if typ != Delta && typ != E8 && typ != E8E9 && typ != ARM {
		return true, true
	}

	startPos := currentLZPos + int64(startPosDelta)
	if startPos < p.filterEnd {
		return true, true
	}

	if p.Full() {
		return true, true
	}

	p.queue = append(p.queue, Pending{
		StartPos: startPos,
		Size:     int(size),
		Type:     typ,
		Channels: channels,
	})
	p.filterEnd = startPos + int64(size)
	return false, false
}

// Apply transforms data in place. data must be exactly f.Size bytes, taken
// from the window at LZ coordinate f.StartPos. fileOffset/pc is
// f.StartPos - lzFileStart, the byte offset of the filter's start relative
// to the start of the current file, used by E8/E8E9/ARM to compute
// position-dependent addresses.
func Apply(f Pending, data []byte, fileOffset int64) {
	switch f.Type {
	case Delta:
		applyDelta(data, f.Channels)
	case E8:
		applyE8(data, false, fileOffset)
	case E8E9:
		applyE8(data, true, fileOffset)
	case ARM:
		applyARM(data, fileOffset)
	default:
		for i := range data {
			data[i] = 0
		}
	}
}

func applyDelta(data []byte, channels int) {
	size := len(data)
	src := make([]byte, size)
	copy(src, data)

	srcIdx := 0
	for c := 0; c < channels; c++ {
		var prev byte
		for i := c; i < size; i += channels {
			prev = prev - src[srcIdx]
			srcIdx++
			data[i] = prev
		}
	}
}

func applyE8(data []byte, e8e9 bool, fileOffset int64) {
	size := len(data)
	if size < 5 {
		return
	}
	for i := 0; i <= size-5; {
		opcode := data[i]
		if opcode == 0xE8 || (e8e9 && opcode == 0xE9) {
			off := uint32((int64(i) + 1 + fileOffset) & 0xFFFFFF)
			addr := binary.LittleEndian.Uint32(data[i+1:])

			switch {
			case addr < 1<<24:
				addr -= off
			case addr >= uint32(0)-off:
				addr += 1 << 24
			default:
				i += 5
				continue
			}
			binary.LittleEndian.PutUint32(data[i+1:], addr)
			i += 5
		} else {
			i++
		}
	}
}

func applyARM(data []byte, pc int64) {
	size := len(data) &^ 3
	for i := 0; i < size; i += 4 {
		if data[i+3] != 0xEB {
			continue
		}
		instr := binary.LittleEndian.Uint32(data[i:])
		off := uint32((pc + int64(i)) >> 2)
		instr = (instr & 0xFF000000) | ((instr - off) & 0x00FFFFFF)
		binary.LittleEndian.PutUint32(data[i:], instr)
	}
}
