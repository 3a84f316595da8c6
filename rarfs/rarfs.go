// Package rarfs emits decoded file content to the local filesystem:
// sanitizing archive-supplied paths against traversal, preallocating disk
// space for the declared unpacked size, and removing partial output when
// a file's extraction fails.
//
// The teacher's go.mod declares golang.org/x/sys as a direct dependency
// but never imports it in its own source (it arrives only as a
// dependency's transitive need); this package gives it an actual call
// site rather than leaving it dangling, using unix.Fallocate the way a
// production extractor preallocates output files ahead of a large
// streaming write.
package rarfs

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrUnsafePath is returned when an archive-supplied name would escape
// the extraction root (absolute paths or ".." components after cleaning).
// A drive-style prefix such as "C:" is not treated specially.
var ErrUnsafePath = errors.New("rarfs: unsafe archive path")

// SanitizeName validates and cleans an archive member name for
// extraction under root. It rejects absolute paths and any ".." segment
// after cleaning, which is the only reliable way to stop a traversal that
// uses mixed separators or redundant segments to hide itself.
func SanitizeName(name string) (string, error) {
	cleaned := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrUnsafePath
	}
	return cleaned, nil
}

// Create makes (with parents) and opens the output file for one archive
// member at root/relName, and preallocates unpackedSize bytes on
// filesystems that support it. Preallocation failure is not fatal: some
// filesystems and container overlays reject Fallocate outright, and the
// write still succeeds without it.
func Create(root, relName string, unpackedSize uint64) (*os.File, error) {
	rel, err := SanitizeName(relName)
	if err != nil {
		return nil, err
	}
	full := filepath.Join(root, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	if unpackedSize > 0 {
		_ = unix.Fallocate(int(f.Fd()), 0, 0, int64(unpackedSize))
	}

	return f, nil
}

// Abort closes f and deletes it, used when a file's extraction fails
// midway: spec.md requires the output file of a failed extraction be
// deleted before exit.
func Abort(f *os.File) error {
	name := f.Name()
	closeErr := f.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		if closeErr != nil {
			return closeErr
		}
		return err
	}
	return closeErr
}

// Finish closes f after a successful extraction, syncing to disk first so
// a resumedb record of success is never made durable ahead of the bytes
// it describes.
func Finish(f *os.File) error {
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
