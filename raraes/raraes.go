// Package raraes implements the RAR5 encryption layer: PBKDF2-derived
// AES-256-CBC decryption of file data and the HMAC-SHA256-folded CRC32
// check used to verify a password against plaintext-checksummed files
// without decompressing anything.
//
// Nothing in the retrieved corpus implements archive encryption (the
// teacher and the rest of the example repos have no cryptographic code at
// all), so this package is built directly on the standard library rather
// than grounded on a corpus file; see DESIGN.md for the explicit
// justification this project's rules require for a standard-library
// fallback.
package raraes

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/pbkdf2"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"
)

const (
	saltSize = 16
	keySize  = 32
	blockLen = aes.BlockSize
)

// ErrShortCiphertext is returned when a ciphertext is not a whole number
// of AES blocks, which the CBC mode requires.
var ErrShortCiphertext = errors.New("raraes: ciphertext is not block-aligned")

// DeriveKey runs PBKDF2-HMAC-SHA256 over password and salt for the given
// iteration count (RAR5 encodes this as 2^(4+n) in the archive; the
// caller resolves that before calling in), producing the AES-256 key and
// the separate hash key used for the plaintext-checksum HMAC fold.
func DeriveKey(password []byte, salt [saltSize]byte, iterations int) (aesKey [keySize]byte, hashKey [keySize]byte, err error) {
	// RAR5 derives two independent 32-byte values from the same PBKDF2
	// stream by requesting 64 bytes and splitting it, rather than running
	// PBKDF2 twice with different info strings.
	derived, err := pbkdf2.Key(sha256.New, string(password), salt[:], iterations, 2*keySize)
	if err != nil {
		return aesKey, hashKey, err
	}
	copy(aesKey[:], derived[:keySize])
	copy(hashKey[:], derived[keySize:])
	return aesKey, hashKey, nil
}

// NewCBCDecrypter returns a stream that decrypts src with AES-256-CBC
// under key and iv. It reads and decrypts one ciphertext block at a time;
// wrap it in bufio for anything but block-sized reads.
func NewCBCDecrypter(key [keySize]byte, iv [blockLen]byte, src io.Reader) (io.Reader, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	mode := cipher.NewCBCDecrypter(block, iv[:])
	return &cbcReader{mode: mode, src: src}, nil
}

type cbcReader struct {
	mode cipher.BlockMode
	src  io.Reader
	buf  [blockLen]byte
}

func (r *cbcReader) Read(p []byte) (int, error) {
	if len(p) < blockLen {
		p = p[:0]
	}
	n, err := io.ReadFull(r.src, r.buf[:])
	if n == 0 {
		return 0, err
	}
	if n != blockLen {
		return 0, ErrShortCiphertext
	}
	r.mode.CryptBlocks(r.buf[:], r.buf[:])
	copy(p, r.buf[:])
	if len(p) < blockLen {
		return len(p), nil
	}
	return blockLen, nil
}

// VerifyPassword checks a candidate password against a file's
// plaintext-checksum HMAC without decompressing it: RAR5 stores
// HMAC-SHA256(hashKey, crc32_le) folded by XOR into 4 bytes alongside the
// real CRC32, so a wrong password almost always produces a fold mismatch.
func VerifyPassword(hashKey [keySize]byte, crc32Value uint32, storedFold [4]byte) bool {
	return computeFold(hashKey, crc32Value) == storedFold
}

func computeFold(hashKey [keySize]byte, crc32Value uint32) [4]byte {
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc32Value)

	mac := hmac.New(sha256.New, hashKey[:])
	mac.Write(crcBuf[:])
	sum := mac.Sum(nil)

	var fold [4]byte
	for i, b := range sum {
		fold[i%4] ^= b
	}
	return fold
}
