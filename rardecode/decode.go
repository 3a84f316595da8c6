package rardecode

import (
	"errors"
	"io"
	"log/slog"

	"github.com/RealBurst/unrar5j/lz"
)

// Orchestrator owns the dictionary window across a sequence of Decode
// calls, deciding per file whether solid continuity is honored or the
// window is thrown away and rebuilt from scratch. One Orchestrator maps to
// one solid chain: the single-instance-per-chain invariant is expressed by
// simply not sharing an Orchestrator between chains.
type Orchestrator struct {
	win        *lz.Window
	haveWindow bool
	log        *slog.Logger
}

// NewOrchestrator returns an Orchestrator with no window yet allocated;
// the first Decode call always builds one from that file's properties.
func NewOrchestrator(log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{log: log}
}

// Decode runs the decompression core for one file block. compressionMethod
// 0 (store) bypasses the LZ engine entirely and copies input to output
// unchanged; methods 1..5 all use the same LZ77/Huffman/filter core
// described by properties (spec.md draws no protocol distinction between
// compression levels, only encoder-side heuristics).
//
// unpackedSize, when known, clamps output and is checked for an exact
// match at end of file. properties is the file block's raw two-byte
// compression properties field.
func (o *Orchestrator) Decode(input io.Reader, output io.Writer, compressionMethod int, properties [2]byte, unpackedSize *uint64) *DecodeError {
	if compressionMethod == 0 {
		return o.decodeStore(input, output, unpackedSize)
	}

	props, err := DecodeProperties(properties)
	if err != nil {
		return newErr(CorruptedData, err)
	}
	windowSize := props.WindowSize
	if windowSize < lz.MinWindowSize {
		windowSize = lz.MinWindowSize
	}

	continuityOK := props.Solid && o.haveWindow && o.win.Size() == windowSize && o.win.SolidContinuityOK()
	if !continuityOK {
		if props.Solid && o.haveWindow {
			o.log.Warn("solid continuity broken, resetting dictionary",
				"window_size", windowSize, "prior_size", o.win.Size())
		}
		win, aerr := allocWindow(windowSize)
		if aerr != nil {
			return newErr(OutOfMemory, aerr)
		}
		o.win = win
		o.haveWindow = true
	}

	dec := lz.NewDecoder(input, o.win, o.log)
	if derr := dec.DecodeFile(output, unpackedSize, props.V7); derr != nil {
		// A failed file poisons the dictionary: force a reset before any
		// file that follows, solid or not.
		o.win.FullReset()
		return classify(derr)
	}

	o.win.SetLZEnd(o.win.LZPos())
	return nil
}

func (o *Orchestrator) decodeStore(input io.Reader, output io.Writer, unpackedSize *uint64) *DecodeError {
	var r io.Reader = input
	if unpackedSize != nil {
		r = io.LimitReader(input, int64(*unpackedSize))
	}
	n, err := io.Copy(output, r)
	if err != nil {
		return newErr(Io, err)
	}
	if unpackedSize != nil && uint64(n) != *unpackedSize {
		return newErr(CorruptedData, errors.New("rardecode: stored size mismatch"))
	}
	return nil
}

// allocWindow is the only allocation point the OutOfMemory kind can
// realistically trigger from in a Go build (window sizes are bounded to
// 2^31 bytes by DecodeProperties, well within addressable memory on any
// real target, but a hostile size or a genuinely exhausted heap must still
// surface as OutOfMemory rather than panicking the process).
func allocWindow(size int) (win *lz.Window, err error) {
	defer func() {
		if r := recover(); r != nil {
			win = nil
			err = errors.New("rardecode: window allocation failed")
		}
	}()
	return lz.NewWindow(size), nil
}

func classify(err error) *DecodeError {
	switch {
	case errors.Is(err, lz.ErrCorruptedData):
		return newErr(CorruptedData, err)
	case errors.Is(err, lz.ErrUnsupportedFilter):
		return newErr(UnsupportedFilter, err)
	default:
		return newErr(Io, err)
	}
}
