// Package rardecode is the per-file orchestrator: it decodes the two-byte
// properties block, decides whether solid continuity holds, drives the LZ
// engine, and maps its failures onto the closed error taxonomy a caller
// can branch on.
package rardecode

import "errors"

// Kind is the closed error taxonomy: every failure the orchestrator
// surfaces is exactly one of these.
type Kind int

const (
	// CorruptedData covers bad checksums, table over-reads, invalid
	// distances, and a size mismatch at end of file. Fatal to the current
	// file; like every Decode failure, it resets the dictionary.
	CorruptedData Kind = iota
	// UnsupportedFilter covers unknown filter types, filter overlap, and
	// filter queue saturation. Fatal to the current file.
	UnsupportedFilter
	// MinorError is a soft-recoverable bit inconsistency. Decode does not
	// return this kind: when no output was produced the inconsistency is
	// reported as CorruptedData; otherwise it is folded into a successful
	// result.
	MinorError
	// Io covers a read or write failure from the caller's source or sink.
	Io
	// OutOfMemory covers a window or filter buffer allocation the runtime
	// refused.
	OutOfMemory
)

func (k Kind) String() string {
	switch k {
	case CorruptedData:
		return "corrupted data"
	case UnsupportedFilter:
		return "unsupported filter"
	case MinorError:
		return "minor error"
	case Io:
		return "io"
	case OutOfMemory:
		return "out of memory"
	default:
		return "unknown"
	}
}

// DecodeError is the error type every Decode failure is returned as.
type DecodeError struct {
	Kind Kind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *DecodeError) Unwrap() error { return e.Err }

func newErr(k Kind, err error) *DecodeError { return &DecodeError{Kind: k, Err: err} }

// ErrMultiVolume is the error for an archive that spans multiple volumes.
// No function in this module detects multi-volume archives or returns it;
// Decode does not check for them.
var ErrMultiVolume = errors.New("rardecode: multi-volume archives are not supported")

// ErrWindowTooLarge is returned by DecodeProperties when the encoded
// dictionary size would exceed 2^31 bytes.
var ErrWindowTooLarge = errors.New("rardecode: window size exceeds 2^31")
