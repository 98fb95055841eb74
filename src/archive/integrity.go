package archive

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
)

// newHasher returns the checksum implementation for the configured
// integrity algorithm.
func newHasher(algo string) (hash.Hash, error) {
	switch algo {
	case "sha256":
		return sha256.New(), nil
	case "blake3":
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("archive: unsupported integrity algorithm %q", algo)
	}
}
