package timelineapi

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// SnapshotEnvelopeVersion is the envelope layout written by EncodeSnapshot.
const SnapshotEnvelopeVersion = 1

// SnapshotContentType labels the envelope payload.
const SnapshotContentType = "application/vnd.auction-timeline.snapshot+cbor"

// SnapshotEnvelope wraps an encoded snapshot as a 4-element CBOR array:
// [version, content type, payload, sha256(payload)].
type SnapshotEnvelope struct {
	_           struct{} `cbor:",toarray"`
	Version     uint
	ContentType string
	Payload     []byte
	Digest      []byte
}

// SnapshotCBOR is a CBOR-encoded snapshot envelope.
type SnapshotCBOR []byte

// SnapshotCBORBase64 is a base64-encoded SnapshotCBOR (standard or URL-safe).
type SnapshotCBORBase64 string

// SnapshotCBORGzip is a gzipped SnapshotCBOR in URL-safe base64 without padding.
type SnapshotCBORGzip string

var snapshotEncMode = mustCanonicalEncMode()

func mustCanonicalEncMode() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor canonical enc mode: %v", err))
	}
	return mode
}

// EncodeSnapshot encodes the snapshot and wraps it in an envelope.
// Encoding is canonical, so equal snapshots produce equal bytes.
func EncodeSnapshot(snapshot *Snapshot) (SnapshotCBOR, error) {
	payload, err := snapshotEncMode.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	digest := sha256.Sum256(payload)
	envelope := SnapshotEnvelope{
		Version:     SnapshotEnvelopeVersion,
		ContentType: SnapshotContentType,
		Payload:     payload,
		Digest:      digest[:],
	}

	data, err := snapshotEncMode.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot envelope: %w", err)
	}
	return SnapshotCBOR(data), nil
}

// EncodeBase64 encodes raw CBOR bytes to standard base64.
func (s SnapshotCBOR) EncodeBase64() SnapshotCBORBase64 {
	return SnapshotCBORBase64(base64.StdEncoding.EncodeToString(s))
}

// EncodeURLSafe encodes raw CBOR bytes to URL-safe base64 without padding.
func (s SnapshotCBOR) EncodeURLSafe() SnapshotCBORBase64 {
	return SnapshotCBORBase64(base64.RawURLEncoding.EncodeToString(s))
}

// CompressGzip gzips the CBOR bytes and encodes them URL-safe.
func (s SnapshotCBOR) CompressGzip() (SnapshotCBORGzip, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(s); err != nil {
		return "", fmt.Errorf("gzip write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("gzip close: %w", err)
	}
	return SnapshotCBORGzip(base64.RawURLEncoding.EncodeToString(buf.Bytes())), nil
}

// Decode decodes base64 to raw CBOR bytes. Standard and URL-safe alphabets are accepted.
func (s SnapshotCBORBase64) Decode() (SnapshotCBOR, error) {
	if data, err := base64.StdEncoding.DecodeString(string(s)); err == nil {
		return SnapshotCBOR(data), nil
	}
	data, err := base64.RawURLEncoding.DecodeString(string(s))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot base64: %w", err)
	}
	return SnapshotCBOR(data), nil
}

func (s SnapshotCBORBase64) String() string {
	return string(s)
}

// Decompress reverses CompressGzip.
func (s SnapshotCBORGzip) Decompress() (SnapshotCBOR, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(string(s))
	if err != nil {
		return nil, fmt.Errorf("decode gzip base64: %w", err)
	}

	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return SnapshotCBOR(data), nil
}

func (s SnapshotCBORGzip) String() string {
	return string(s)
}
