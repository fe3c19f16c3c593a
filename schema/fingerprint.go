package schema

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint generates a stable hash of a raw schema blob. The
// fingerprint changes when schema content changes, keying both recipe
// retrieval and search-index cache invalidation.
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
