// Package checksum provides content digests: SHA-256 for on-disk change
// detection and a fast xxhash fingerprint for suggestion staleness.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fingerprint returns a 16-char hex xxhash64 of body. It is a change
// detector only and carries no collision-resistance guarantee.
func Fingerprint(body string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(body))
}
