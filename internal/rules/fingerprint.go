package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"runway/internal/core"
)

// Fingerprint derives a stable cache key from everything a forecast depends
// on. Two requests with the same rules and parameters always hash the same, so
// repeated dashboard loads hit the memoized result instead of re-simulating.
func Fingerprint(rules []core.Rule, p core.Parameters) string {
	payload, err := json.Marshal(struct {
		Rules      []core.Rule     `json:"rules"`
		Parameters core.Parameters `json:"parameters"`
	}{Rules: rules, Parameters: p})
	if err != nil {
		// Marshaling these types cannot fail; an empty key just skips the cache.
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
