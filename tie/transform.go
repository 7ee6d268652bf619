package tie

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Base64ToHex decodes a standard base64 string and re-encodes the bytes as
// lowercase hexadecimal. Non-base64 input fails.
func Base64ToHex(s string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// TransformHashes re-encodes every digest in a hashes mapping to lowercase
// hexadecimal. The observed wire format already carries hex digests, so for
// real traffic this is a validating pass-through; the round trip keeps the
// step a generic re-encode should a different wire encoding ever appear.
// Key names are preserved exactly. The returned map is a new map; the input
// is not modified.
func TransformHashes(hashes map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(hashes))
	for algo, v := range hashes {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("hash %q: expected string digest, got %T", algo, v)
		}
		raw, err := hex.DecodeString(strings.ToLower(s))
		if err != nil {
			return nil, fmt.Errorf("hash %q: %w", algo, err)
		}
		out[algo] = hex.EncodeToString(raw)
	}
	return out, nil
}

// unwrapReputations removes the single "reputations" nesting level the wire
// format wraps around reputation tables. Values that are not objects, or
// objects without the wrapper key, are returned unchanged, which makes
// re-application a no-op.
func unwrapReputations(v any) any {
	wrapper, ok := v.(map[string]any)
	if !ok {
		return v
	}
	inner, ok := wrapper["reputations"]
	if !ok {
		return v
	}
	return inner
}
