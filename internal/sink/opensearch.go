// Package sink indexes normalized reputation changes into OpenSearch for
// search and dashboarding alongside other security events.
package sink

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/telhawk-systems/tie-bridge/internal/config"
	"github.com/telhawk-systems/tie-bridge/tie"
)

// ChangeDocument is the indexed representation of one reputation change.
type ChangeDocument struct {
	ID             string                    `json:"-"`
	Timestamp      time.Time                 `json:"@timestamp"`
	Subject        string                    `json:"subject"`
	Kind           string                    `json:"kind"`
	Hashes         map[string]string         `json:"hashes,omitempty"`
	PublicKeySHA1  string                    `json:"public_key_sha1,omitempty"`
	NewReputations map[string]tie.Reputation `json:"new_reputations,omitempty"`
	OldReputations map[string]tie.Reputation `json:"old_reputations,omitempty"`
	UpdateTime     int64                     `json:"update_time,omitempty"`
}

// OpenSearch indexes change documents into date-suffixed indices.
type OpenSearch struct {
	client      *opensearch.Client
	indexPrefix string
}

// New creates an OpenSearch sink and verifies connectivity.
func New(cfg config.OpenSearchConfig) (*OpenSearch, error) {
	osCfg := opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.TLSSkipVerify,
			},
		},
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	info, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return nil, fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	return &OpenSearch{client: client, indexPrefix: cfg.IndexPrefix}, nil
}

// IndexChange writes one document into the index for the document's day.
// A missing document ID is generated.
func (s *OpenSearch) IndexChange(ctx context.Context, doc *ChangeDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Timestamp.IsZero() {
		doc.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode change document: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      IndexName(s.indexPrefix, doc.Timestamp),
		DocumentID: doc.ID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index change document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch rejected document: %s", res.Status())
	}
	return nil
}

// IndexName returns the date-suffixed index for a document timestamp,
// e.g. "tie-repchange-2016.12.08".
func IndexName(prefix string, ts time.Time) string {
	return fmt.Sprintf("%s-%s", prefix, ts.UTC().Format("2006.01.02"))
}
