package parsing

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	timelineapi "github.com/cloudx-io/auctiontimeline/timelineapi"
)

// ExtractEnvelopePayload extracts the payload from a snapshot envelope 4-element array
// Envelope structure: [version, content type, payload, digest]
// The digest must be the SHA256 of the payload
func ExtractEnvelopePayload(envelopeBytes []byte) ([]byte, error) {
	var envelopeArray []any
	err := cbor.Unmarshal(envelopeBytes, &envelopeArray)
	if err != nil {
		return nil, fmt.Errorf("parse envelope array: %w", err)
	}

	if len(envelopeArray) != 4 {
		return nil, fmt.Errorf("invalid snapshot envelope: expected 4 elements, got %d", len(envelopeArray))
	}

	version, ok := envelopeArray[0].(uint64)
	if !ok || version != timelineapi.SnapshotEnvelopeVersion {
		return nil, fmt.Errorf("unsupported snapshot envelope version: %v", envelopeArray[0])
	}

	payload, ok := envelopeArray[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid payload in snapshot envelope")
	}

	digest, ok := envelopeArray[3].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid digest in snapshot envelope")
	}

	computed := sha256.Sum256(payload)
	if !bytes.Equal(computed[:], digest) {
		return nil, fmt.Errorf("snapshot digest mismatch: computed %s, envelope has %s", FormatDigest(computed[:]), FormatDigest(digest))
	}

	return payload, nil
}

// DecodeSnapshot opens the envelope and decodes the snapshot inside it.
func DecodeSnapshot(data timelineapi.SnapshotCBOR) (*timelineapi.Snapshot, error) {
	payload, err := ExtractEnvelopePayload(data)
	if err != nil {
		return nil, err
	}

	var snapshot timelineapi.Snapshot
	if err := cbor.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("parse snapshot payload: %w", err)
	}
	return &snapshot, nil
}

// FormatDigest formats digest bytes as hex string
func FormatDigest(digest []byte) string {
	if len(digest) == 0 {
		return ""
	}
	return fmt.Sprintf("%x", digest)
}
