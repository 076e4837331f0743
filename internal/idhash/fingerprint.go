package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeFingerprint computes a deterministic discovery fingerprint using SHA256.
// Formula: SHA256(source|source_id)
// Returns hex-encoded hash (64 characters).
//
// The fingerprint is stable across repeated polls of the same underlying item:
// it depends only on the producing source and the item's natural key, never on
// mutable fields such as engagement metrics or fetch time.
func ComputeFingerprint(source, sourceID string) string {
	data := fmt.Sprintf("%s|%s", source, sourceID)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
