package tie

import (
	"encoding/json"
	"fmt"
)

// Reputation is a typed view of a single provider reputation entry inside
// an unwrapped newReputations or oldReputations table.
type Reputation struct {
	// Attributes holds provider-specific attributes keyed by attribute ID.
	Attributes map[string]string `json:"attributes"`

	// CreateDate is when the reputation was created (epoch seconds).
	CreateDate int64 `json:"createDate"`

	// ProviderID identifies the provider that scored the reputation.
	ProviderID int `json:"providerId"`

	// TrustLevel is the provider's trust score, 0-100.
	TrustLevel int `json:"trustLevel"`
}

// DecodeReputations converts an unwrapped reputations mapping (provider ID
// string to reputation object) from the parsed JSON tree into typed
// entries. Pass the value stored under PropNewReputations or
// PropOldReputations after normalization.
func DecodeReputations(v any) (map[string]Reputation, error) {
	if v == nil {
		return nil, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode reputations: %w", err)
	}

	var out map[string]Reputation
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode reputations: %w", err)
	}
	return out, nil
}

// primaryHashOrder is the preference order for identifying an artifact by
// a single digest.
var primaryHashOrder = []string{HashSHA1, HashSHA256, HashMD5}

// PrimaryHash returns the preferred identifying digest from a normalized
// change (sha1, then sha256, then md5). It returns empty strings when the
// change carries no usable hashes.
func PrimaryHash(change ReputationChange) (algo, digest string) {
	v, ok := change[PropHashes]
	if !ok {
		return "", ""
	}
	hashes, ok := v.(map[string]any)
	if !ok {
		return "", ""
	}
	for _, a := range primaryHashOrder {
		if d, ok := hashes[a].(string); ok && d != "" {
			return a, d
		}
	}
	return "", ""
}
