// Package windowcache caches dictionary-window checkpoints for random
// access into an already-decoded solid chain, so a second read of a file
// deep in the chain does not force redecoding everything before it. It
// generalizes the teacher's decompressioncache.ReaderAt checkpoint list
// (internal/decompressioncache/decompressioncache.go) from an unbounded
// slice to a bounded admission cache, and its checkpoint keying from a
// debug-name string to an xxhash of the chain identity and byte offset.
package windowcache

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
)

// Checkpoint is a saved dictionary snapshot: the window contents and
// repetition-distance registers at a specific LZ coordinate in one solid
// chain, sufficient to resume decoding from that point without replaying
// everything before it.
type Checkpoint struct {
	LZPos int64
	Rep   [4]uint32
	Dict  []byte
}

func (c Checkpoint) size() int64 { return int64(len(c.Dict)) + 48 }

// key identifies a checkpoint by chain and LZ coordinate.
type key struct {
	chain uint64
	pos   int64
}

func hashKey(k key) uint64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], k.chain)
	binary.BigEndian.PutUint64(buf[8:], uint64(k.pos))
	return xxhash.Sum64(buf[:])
}

// Cache admits and evicts Checkpoints under a byte budget using
// tinylfu's admission policy, the same structure the teacher uses for its
// block and reader caches (internal/spinner/concurrent.go).
type Cache struct {
	t         *tinylfu.T[key, Checkpoint]
	budget    int64
	used      int64
	perEntry  int64
	nextChain uint64
}

// New returns a Cache holding at most budgetBytes/avgCheckpointBytes
// checkpoints (at least one); the bound is on the number of entries, not
// on their actual sizes. The tinylfu sample window is sized to 10x that
// capacity, following the teacher's convention.
func New(budgetBytes int64, avgCheckpointBytes int64) *Cache {
	if avgCheckpointBytes <= 0 {
		avgCheckpointBytes = 1 << 20
	}
	capacity := int(budgetBytes / avgCheckpointBytes)
	if capacity < 1 {
		capacity = 1
	}
	c := &Cache{budget: budgetBytes, perEntry: avgCheckpointBytes}
	c.t = tinylfu.New[key, Checkpoint](capacity, capacity*10, hashKey, tinylfu.OnEvict(c.onEvict))
	return c
}

func (c *Cache) onEvict(_ key, v Checkpoint) {
	c.used -= v.size()
	if c.used < 0 {
		c.used = 0
	}
}

// NewChain returns an opaque identity to key checkpoints for one solid
// chain's decode session; two chains never collide even if their LZ
// coordinates overlap numerically.
func (c *Cache) NewChain() uint64 {
	c.nextChain++
	return c.nextChain
}

// Get returns the checkpoint stored for the given chain at exactly pos, or
// ok=false if there is none. It does not search for an earlier checkpoint.
func (c *Cache) Get(chain uint64, pos int64) (Checkpoint, bool) {
	if cp, ok := c.t.Get(key{chain, pos}); ok {
		return cp, true
	}
	return Checkpoint{}, false
}

// Put admits a checkpoint, subject to tinylfu's frequency-based admission
// policy; a low-value checkpoint under memory pressure may be silently
// rejected, which is safe because callers always fall back to redecoding
// from the chain's start on a cache miss.
func (c *Cache) Put(chain uint64, cp Checkpoint) {
	c.used += cp.size()
	c.t.Add(key{chain, cp.LZPos}, cp)
}

// Used reports the approximate number of bytes currently retained.
func (c *Cache) Used() int64 { return c.used }
