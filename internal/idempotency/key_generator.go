package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// UpdateKey builds a deterministic key from the update identity parts, usually
// the update ID and the sender ID.
func UpdateKey(parts ...interface{}) string {
	h := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(h, "%v:", part)
	}

	return hex.EncodeToString(h.Sum(nil))
}
