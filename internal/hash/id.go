// Package hash provides the stable 64-bit hashes used for trace column IDs and
// random stream derivation.
package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// ColumnID computes the xxHash64 of a posterior column name.
func ColumnID(name string) uint64 {
	return xxhash.Sum64String(name)
}

// Mix hashes a sequence of integers into one 64-bit value.
//
// It is a pure function of its arguments, so random streams seeded from it are
// independent of goroutine scheduling.
func Mix(values ...uint64) uint64 {
	var buf [8]byte
	d := xxhash.New()
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}

	return d.Sum64()
}
