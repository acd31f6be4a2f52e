package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePositionID computes a deterministic position_id using SHA256.
// Formula: SHA256(owner|pool|tick_lower|tick_upper)
// Returns hex-encoded hash (64 characters).
func ComputePositionID(owner, pool string, tickLower, tickUpper int32) string {
	data := fmt.Sprintf("%s|%s|%d|%d", owner, pool, tickLower, tickUpper)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
