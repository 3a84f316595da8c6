package blockformat

import "bytes"

// FileBlock is the type-specific payload of a TypeFile header: the
// compression method, the raw properties bytes (which carry solid, v7 and
// the window size), unpackedSize, the encrypted flag, and the name. It
// carries no expected CRC32; ParseFileBlock does not read one.
//
// spec.md deliberately leaves the on-disk file-block layout as an
// out-of-core-scope collaborator contract, so the concrete byte order
// below (flags, size, attributes, method, two raw properties bytes,
// name) is this package's own reasonable design rather than a spec- or
// corpus-verified wire format.
type FileBlock struct {
	UnpackedSize      uint64
	CompressionMethod int // 0..5, 0 = store
	Properties        [2]byte
	Encrypted         bool
	Name              string
}

const fileFlagEncrypted = 1 << 0

// ParseFileBlock reads a file block's type-specific area, following
// ReadHeader for a Header with Type == TypeFile. payload is exactly
// h.PayloadLen bytes.
func ParseFileBlock(h Header, payload []byte) (FileBlock, error) {
	r := bytes.NewReader(payload)

	fileFlags, err := ReadVInt(r)
	if err != nil {
		return FileBlock{}, err
	}

	unpackedSize, err := ReadVInt(r)
	if err != nil {
		return FileBlock{}, err
	}

	if _, err := ReadVInt(r); err != nil { // attributes, unused by the decompression core
		return FileBlock{}, err
	}

	method, err := ReadVInt(r)
	if err != nil {
		return FileBlock{}, err
	}

	var props [2]byte
	if method != 0 {
		if props[0], err = r.ReadByte(); err != nil {
			return FileBlock{}, err
		}
		if props[1], err = r.ReadByte(); err != nil {
			return FileBlock{}, err
		}
	}

	nameLen, err := ReadVInt(r)
	if err != nil {
		return FileBlock{}, err
	}
	name := make([]byte, nameLen)
	if _, err := r.Read(name); err != nil {
		return FileBlock{}, err
	}

	return FileBlock{
		UnpackedSize:      unpackedSize,
		CompressionMethod: int(method),
		Properties:        props,
		Name:              string(name),
		Encrypted:         fileFlags&fileFlagEncrypted != 0,
	}, nil
}
