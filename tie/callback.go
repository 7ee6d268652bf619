package tie

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/telhawk-systems/tie-bridge/messaging"
)

// ErrNotImplemented is returned when OnReputationChange is invoked on the
// embedded UnimplementedReputationChangeHandler. Receiving it means the
// integrator registered a handler without implementing the method.
var ErrNotImplemented = errors.New("tie: OnReputationChange must be implemented by the registered handler")

// ReputationChange is the normalized reputation change record. It is a
// parsed JSON tree rather than a fixed schema because the file and
// certificate variants differ in shape; key presence distinguishes them.
// See the Prop* constants for the recognized keys.
type ReputationChange map[string]any

// ReputationChangeHandler receives normalized reputation change records.
// Implementations are invoked once per event with the normalized change and
// the original fabric message; they may be called concurrently from
// multiple goroutines depending on the broker client's dispatch model.
type ReputationChangeHandler interface {
	OnReputationChange(ctx context.Context, change ReputationChange, event *messaging.Message) error
}

// UnimplementedReputationChangeHandler can be embedded for forward
// compatibility. Its OnReputationChange fails with ErrNotImplemented so a
// missing override surfaces loudly instead of silently dropping events.
type UnimplementedReputationChangeHandler struct{}

func (UnimplementedReputationChangeHandler) OnReputationChange(context.Context, ReputationChange, *messaging.Message) error {
	return ErrNotImplemented
}

// ReputationChangeCallback adapts a ReputationChangeHandler to the fabric's
// message dispatch. Handle performs the normalization pipeline and then
// delegates to the handler; the pipeline itself is not overridable.
//
// The callback holds no state across invocations and is safe for
// concurrent use.
type ReputationChangeCallback struct {
	handler ReputationChangeHandler
}

// NewReputationChangeCallback wraps handler for registration on a
// reputation change subject.
func NewReputationChangeCallback(handler ReputationChangeHandler) *ReputationChangeCallback {
	return &ReputationChangeCallback{handler: handler}
}

// Handle decodes the event payload, normalizes it, and invokes the handler.
// Decode and transform failures are terminal for the invocation: the
// handler is never called with a partially normalized record.
//
// Handle matches messaging.MessageHandler and can be passed directly to
// Subscribe.
func (c *ReputationChangeCallback) Handle(ctx context.Context, msg *messaging.Message) error {
	var change ReputationChange
	if err := json.Unmarshal(msg.Data, &change); err != nil {
		return fmt.Errorf("decode reputation change payload: %w", err)
	}

	if err := Normalize(change); err != nil {
		return err
	}

	return c.handler.OnReputationChange(ctx, change, msg)
}

// Normalize applies the reputation change transforms in place. Every
// transform is conditional on field presence: absent optional fields are
// skipped, never defaulted. Key names are preserved exactly; only values
// are re-encoded.
func Normalize(change ReputationChange) error {
	if v, ok := change[PropHashes]; ok {
		hashes, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("field %q: expected object, got %T", PropHashes, v)
		}
		transformed, err := TransformHashes(hashes)
		if err != nil {
			return fmt.Errorf("field %q: %w", PropHashes, err)
		}
		change[PropHashes] = transformed
	}

	if v, ok := change[PropNewReputations]; ok {
		change[PropNewReputations] = unwrapReputations(v)
	}
	if v, ok := change[PropOldReputations]; ok {
		change[PropOldReputations] = unwrapReputations(v)
	}

	if v, ok := change[PropRelationships]; ok {
		if err := normalizeRelationships(v); err != nil {
			return err
		}
	}

	if v, ok := change[PropPublicKeySHA1]; ok {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("field %q: expected string, got %T", PropPublicKeySHA1, v)
		}
		hexKey, err := Base64ToHex(s)
		if err != nil {
			return fmt.Errorf("field %q: %w", PropPublicKeySHA1, err)
		}
		change[PropPublicKeySHA1] = hexKey
	}

	return nil
}

// normalizeRelationships transforms the certificate sub-object of a file
// change in place: its hashes get the hash transform, its publicKeySha1 the
// base64-to-hex transform. Sibling fields are untouched.
func normalizeRelationships(v any) error {
	relationships, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	cv, ok := relationships["certificate"]
	if !ok {
		return nil
	}
	cert, ok := cv.(map[string]any)
	if !ok {
		return nil
	}

	if hv, ok := cert[PropHashes]; ok {
		hashes, ok := hv.(map[string]any)
		if !ok {
			return fmt.Errorf("field %q: expected object, got %T", "relationships.certificate.hashes", hv)
		}
		transformed, err := TransformHashes(hashes)
		if err != nil {
			return fmt.Errorf("field %q: %w", "relationships.certificate.hashes", err)
		}
		cert[PropHashes] = transformed
	}

	if pv, ok := cert[PropPublicKeySHA1]; ok {
		s, ok := pv.(string)
		if !ok {
			return fmt.Errorf("field %q: expected string, got %T", "relationships.certificate.publicKeySha1", pv)
		}
		hexKey, err := Base64ToHex(s)
		if err != nil {
			return fmt.Errorf("field %q: %w", "relationships.certificate.publicKeySha1", err)
		}
		cert[PropPublicKeySHA1] = hexKey
	}

	return nil
}
