package patchy

import (
	"crypto/subtle"
	"hash"
	"sync"

	"lukechampine.com/blake3"
)

// StrongHashSize is the length in bytes of a StrongHash digest.
const StrongHashSize = 16

// StrongHash is an opaque 128-bit collision-resistant digest, truncated
// from a BLAKE3 output. It is used both as a hash-map key (matching is
// keyed on its raw bytes) and as the end-to-end verification value
// stored in a Container.
type StrongHash [StrongHashSize]byte

// hasherPool recycles BLAKE3 hasher state across the many small calls
// ComputeBlocks and the Differ make per block/window, the same way a
// streaming hash accumulator pools its underlying hash.Hash instead of
// allocating one per call.
var hasherPool = sync.Pool{New: func() interface{} { return blake3.New(32, nil) }}

// ComputeStrongHash hashes input with BLAKE3 and keeps the first 16
// bytes of the digest.
func ComputeStrongHash(input []byte) StrongHash {
	h := hasherPool.Get().(hash.Hash)
	h.Reset()
	h.Write(input)
	full := h.Sum(make([]byte, 0, 32))
	hasherPool.Put(h)

	var out StrongHash
	copy(out[:], full[:StrongHashSize])
	return out
}

// Equal reports whether two digests are identical. The comparison runs
// in constant time so that repeated probing of a hash map keyed on
// StrongHash cannot be used as a timing oracle.
func (h StrongHash) Equal(other StrongHash) bool {
	return subtle.ConstantTimeCompare(h[:], other[:]) == 1
}

// Bytes returns the digest's raw 16 bytes.
func (h StrongHash) Bytes() []byte {
	return h[:]
}
