// Package resumedb is a durable, embedded ledger of per-file extraction
// outcomes, keyed by archive path and file index, so a re-run of the
// extractor can skip files it already verified good. It is the multi-run,
// multi-file analogue of the teacher's single-process, in-memory
// checkpoint list (internal/decompressioncache/decompressioncache.go's
// []checkpoint), made durable with the same embedded store the teacher
// declares on its filesystem type (fs.go's FS.db *pebble.DB) but never
// exercises.
package resumedb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble/v2"
)

// Status is the outcome recorded for one file.
type Status int

const (
	StatusUnknown Status = iota
	StatusOK
	StatusCorrupted
	StatusUnsupportedFilter
	StatusBadPassword
)

// Record is the value stored per archive+file key.
type Record struct {
	CRC32           uint32 `json:"crc32"`
	UnpackedSize    uint64 `json:"unpackedSize"`
	Status          Status `json:"status"`
	SolidGeneration uint64 `json:"solidGeneration"`
}

// DB wraps a pebble instance with the archive-extraction key schema.
type DB struct {
	pdb *pebble.DB
}

// Open opens (creating if absent) the ledger at dir.
func Open(dir string) (*DB, error) {
	pdb, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("resumedb: open %s: %w", dir, err)
	}
	return &DB{pdb: pdb}, nil
}

// Close releases the underlying store.
func (d *DB) Close() error { return d.pdb.Close() }

func key(archivePath string, fileIndex uint64) []byte {
	k := make([]byte, 0, len(archivePath)+9)
	k = append(k, archivePath...)
	k = append(k, 0)
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], fileIndex)
	return append(k, idx[:]...)
}

// Put records the outcome of extracting one file.
func (d *DB) Put(archivePath string, fileIndex uint64, rec Record) error {
	v, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return d.pdb.Set(key(archivePath, fileIndex), v, pebble.Sync)
}

// Get returns the recorded outcome for one file, or ok=false if this
// archive+file has never been recorded.
func (d *DB) Get(archivePath string, fileIndex uint64) (Record, bool, error) {
	v, closer, err := d.pdb.Get(key(archivePath, fileIndex))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	defer closer.Close()

	var rec Record
	if err := json.Unmarshal(v, &rec); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// NeedsExtraction reports whether fileIndex in archivePath must be
// (re-)extracted: it does unless a prior run recorded StatusOK for the
// same CRC32/size/solid generation, which lets a batch re-run skip
// everything it already verified without touching the archive bytes.
func (d *DB) NeedsExtraction(archivePath string, fileIndex uint64, expectCRC32 uint32, expectSize uint64, solidGeneration uint64) (bool, error) {
	rec, ok, err := d.Get(archivePath, fileIndex)
	if err != nil {
		return true, err
	}
	if !ok {
		return true, nil
	}
	if rec.Status != StatusOK {
		return true, nil
	}
	if rec.CRC32 != expectCRC32 || rec.UnpackedSize != expectSize || rec.SolidGeneration != solidGeneration {
		return true, nil
	}
	return false, nil
}
