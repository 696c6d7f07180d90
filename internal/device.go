package internal

import "crypto/sha256"

// HashFingerprint reduces an opaque device fingerprint to its stored form.
// Raw fingerprints never reach a store or an audit entry.
func HashFingerprint(v string) [32]byte {
	return sha256.Sum256([]byte(v))
}
