package sink

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/tie-bridge/tie"
)

func TestIndexName(t *testing.T) {
	ts := time.Date(2016, 12, 8, 17, 53, 1, 0, time.UTC)

	assert.Equal(t, "tie-repchange-2016.12.08", IndexName("tie-repchange", ts))
}

func TestIndexName_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+13", 13*60*60)
	ts := time.Date(2016, 12, 8, 23, 0, 0, 0, loc) // Dec 8 local, Dec 8 10:00 UTC

	assert.Equal(t, "tie-repchange-2016.12.08", IndexName("tie-repchange", ts))
}

func TestChangeDocument_JSONShape(t *testing.T) {
	doc := ChangeDocument{
		ID:        "should-not-appear",
		Timestamp: time.Date(2016, 12, 8, 17, 53, 1, 0, time.UTC),
		Subject:   "tie.event.file.repchange",
		Kind:      "file",
		Hashes: map[string]string{
			tie.HashSHA1: "7eb0139d2175739b3ccb0d1110067820be6abd29",
		},
		NewReputations: map[string]tie.Reputation{
			"1": {ProviderID: tie.FileProviderEnterprise, TrustLevel: tie.TrustKnownTrusted},
		},
		UpdateTime: 1481219581,
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.NotContains(t, decoded, "ID", "document id travels in the request, not the body")
	assert.Contains(t, decoded, "@timestamp")
	assert.Equal(t, "file", decoded["kind"])
	assert.NotContains(t, decoded, "public_key_sha1", "empty optional fields are omitted")
	assert.NotContains(t, decoded, "old_reputations")
}
