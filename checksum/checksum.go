// Package checksum is a thin collaborator adapter over a byte-store: it is
// not part of the chunk lifecycle, just a convenience for callers that want
// a keyed integrity digest of a region they already hold a reservation on.
//
// MappedFile's core makes no integrity claims of its own (spec Non-goals:
// "no encryption or compression"); this is the stated external contract for
// callers who want one anyway.
package checksum

import "github.com/dchest/siphash"

// Keyed returns the SipHash-2-4 digest of data under (k0, k1). It performs
// no I/O and holds no reference — callers are responsible for keeping the
// backing ChunkStore reserved for the duration of the call.
func Keyed(k0, k1 uint64, data []byte) uint64 {
	return siphash.Hash(k0, k1, data)
}
