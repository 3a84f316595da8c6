// Package lz implements the RAR5 LZ77 engine: the sliding dictionary, the
// Huffman block/table protocol, the symbol loop, and the output staging
// that routes decoded bytes through the filter pipeline to a sink. This is
// the core described in spec.md §3-4.
package lz

import "errors"

const (
	// MaxMatchLen is the longest match the symbol loop can emit (spec.md
	// §3's 0x1004, one more than the true maximum to keep arithmetic simple
	// when sizing the window's tail region).
	MaxMatchLen = 0x1004

	// MinWindowSize is the smallest legal dictionary size.
	MinWindowSize = 1 << 18

	// WriteStep bounds how much output the outer decode loop produces
	// between flush points.
	WriteStep = 1 << 18

	// SolidRecoverLimit bounds how far a new file's starting LZ coordinate
	// may drift from the previous file's declared end and still reuse the
	// dictionary.
	SolidRecoverLimit = 1 << 20

	// DistSentinel marks an unset repetition-distance register.
	DistSentinel = 0xFFFFFFFF
)

// ErrCorruptedData covers malformed block headers, tables, and invalid
// backreferences.
var ErrCorruptedData = errors.New("lz: corrupted data")

// Window is the sliding dictionary shared by every file in a solid chain.
// Its physical buffer is windowSize bytes plus a tail of at least
// MaxMatchLen bytes, so a single match copy can overrun the logical end of
// the window without a per-byte wrap check; the overrun is folded back to
// the front of the buffer the next time Wrap runs.
type Window struct {
	buf  []byte
	size int

	pos int // windowPos, valid in [0, size+tail)

	lzSize      int64
	lzEnd       int64
	lzWritten   int64
	lzFileStart int64

	rep [4]uint32
}

// NewWindow allocates a window of the given dictionary size (spec.md §3:
// power-of-two preferred, any multiple accepted, minimum MinWindowSize).
func NewWindow(size int) *Window {
	w := &Window{
		buf:  make([]byte, size+MaxMatchLen),
		size: size,
	}
	w.ResetRepDistances()
	return w
}

// Size returns the dictionary size in bytes.
func (w *Window) Size() int { return w.size }

// Pos returns the current write cursor.
func (w *Window) Pos() int { return w.pos }

// LZSize returns the running total of bytes produced by prior wraps.
func (w *Window) LZSize() int64 { return w.lzSize }

// LZPos returns the absolute LZ coordinate of the write cursor.
func (w *Window) LZPos() int64 { return w.lzSize + int64(w.pos) }

// LZWritten returns how far the output stager has pushed downstream.
func (w *Window) LZWritten() int64 { return w.lzWritten }

// SetLZWritten advances the downstream watermark.
func (w *Window) SetLZWritten(v int64) { w.lzWritten = v }

// LZEnd returns the declared end, in LZ coordinates, of the file most
// recently decoded into this window.
func (w *Window) LZEnd() int64 { return w.lzEnd }

// SetLZEnd records the declared end of the current file.
func (w *Window) SetLZEnd(v int64) { w.lzEnd = v }

// LZFileStart returns the LZ coordinate at which the current file began,
// used only as the filter pipeline's position origin.
func (w *Window) LZFileStart() int64 { return w.lzFileStart }

// StartFile records where the next file's bytes begin in LZ coordinates.
func (w *Window) StartFile() { w.lzFileStart = w.LZPos() }

// ResetRepDistances resets the four most-recently-used match distances to
// their sentinel value.
func (w *Window) ResetRepDistances() {
	for i := range w.rep {
		w.rep[i] = DistSentinel
	}
}

// RepDistances returns the four repetition registers.
func (w *Window) RepDistances() [4]uint32 { return w.rep }

// UseRep resolves one of the four repetition-distance symbols (main
// alphabet 258..261) to a distance, applying the move-to-front rule: the
// selected register is rotated to position 0, and registers ahead of it
// shift down by one. Index 0 (symbol 258, "closest rep") is a no-op read.
func (w *Window) UseRep(idx int) uint32 {
	d := w.rep[idx]
	for i := idx; i > 0; i-- {
		w.rep[i] = w.rep[i-1]
	}
	w.rep[0] = d
	return d
}

// PushNewDistance records a freshly decoded (non-repeated) match distance,
// unconditionally shifting all four registers down and installing the new
// value at the front.
func (w *Window) PushNewDistance(dist uint32) {
	w.rep[3] = w.rep[2]
	w.rep[2] = w.rep[1]
	w.rep[1] = w.rep[0]
	w.rep[0] = dist
}

// FullReset discards all dictionary content and LZ counters, used when
// solid continuity does not hold or a prior file failed (spec.md §7: a
// failed file poisons the dictionary).
func (w *Window) FullReset() {
	w.pos = 0
	w.lzSize = 0
	w.lzEnd = 0
	w.lzWritten = 0
	w.lzFileStart = 0
	w.ResetRepDistances()
}

// SolidContinuityOK reports whether the current LZ position is close
// enough to the previous file's declared end to safely continue the
// dictionary into a new file (spec.md §3's solid continuity predicate).
func (w *Window) SolidContinuityOK() bool {
	diff := w.LZPos() - w.lzEnd
	if diff < 0 {
		diff = -diff
	}
	return diff <= SolidRecoverLimit
}

// PutLiteral writes a single decoded byte and advances the cursor.
func (w *Window) PutLiteral(b byte) {
	w.buf[w.pos] = b
	w.pos++
}

// DictSizeForCheck is the largest legal match distance right now: the full
// window once at least one wrap has happened, or however much of the
// window has actually been filled otherwise.
func (w *Window) DictSizeForCheck() int64 {
	if w.lzSize > 0 {
		return int64(w.size)
	}
	return int64(w.pos)
}

// CopyMatch appends a length-byte match at the given distance, both in
// window-relative terms. Distances greater than the current position
// reference content from before the last Wrap, still held at the end of
// the buffer; the copy may straddle the end of the window and continue
// from the front, and is split accordingly. Distances less than length are legal (RLE-style
// extension) and are always resolved byte by byte so that already-copied
// output feeds subsequent bytes of the same match.
func (w *Window) CopyMatch(dist uint32, length int) {
	d := int(dist)
	if d > w.pos {
		src := w.pos + w.size - d
		remaining := length
		if chunk := w.size - src; chunk > 0 {
			if chunk > remaining {
				chunk = remaining
			}
			copy(w.buf[w.pos:w.pos+chunk], w.buf[src:src+chunk])
			w.pos += chunk
			remaining -= chunk
			src = 0
		}
		for i := 0; i < remaining; i++ {
			w.buf[w.pos] = w.buf[src+i]
			w.pos++
		}
		return
	}

	src := w.pos - d
	for i := 0; i < length; i++ {
		w.buf[w.pos] = w.buf[src]
		w.pos++
		src++
	}
}

// Bytes returns the window-relative slice [from, to) of already-written
// output, for the output stager and filter pipeline to read.
func (w *Window) Bytes(from, to int) []byte { return w.buf[from:to] }

// Wrap folds an overrun past Size() back to the front of the buffer and
// advances lzSize accordingly. It is a no-op if the cursor has not yet
// reached the end of the logical window.
func (w *Window) Wrap() {
	if w.pos < w.size {
		return
	}
	overflow := w.pos - w.size
	if overflow > 0 {
		copy(w.buf[:overflow], w.buf[w.size:w.pos])
	}
	w.lzSize += int64(w.size)
	w.pos = overflow
}
