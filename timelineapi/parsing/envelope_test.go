package parsing

import (
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/auctiontimeline/core"
	timelineapi "github.com/cloudx-io/auctiontimeline/timelineapi"
)

func encodedSnapshot(t *testing.T) timelineapi.SnapshotCBOR {
	t.Helper()
	data, err := timelineapi.EncodeSnapshot(&timelineapi.Snapshot{
		SessionID:   "session-1",
		AdUnit:      "div-200-1",
		TimeBucket:  "10:00:00",
		Step:        core.Step{Title: "GENERATE_BID", SSP: "https://ssp-a.example"},
		Fingerprint: "f00d",
		Tree: core.AuctionTree{
			"div-200-1": {"10:00:00": {"https://ssp-top.example": {"https://ssp-a.example": {
				{Type: core.EventBid, OwnerOrigin: "https://dsp-a.example", Bid: 17, BidCurrency: "USD", TimestampAssigned: true, Time: 5},
			}}}},
			"div-200-2": {},
			"div-200-3": {},
		},
		CreatedAtMs: 42,
	})
	assert.NoError(t, err)
	return data
}

func TestDecodeSnapshot_RoundTrip(t *testing.T) {
	snapshot, err := DecodeSnapshot(encodedSnapshot(t))
	assert.NoError(t, err)

	check.Equal(t, "session-1", snapshot.SessionID)
	check.Equal(t, "https://ssp-a.example", snapshot.Step.SSP)
	check.Equal(t, int64(42), snapshot.CreatedAtMs)
	check.Equal(t, 3, len(snapshot.Tree))

	events := snapshot.Tree.Branch("div-200-1", "10:00:00", "https://ssp-top.example")["https://ssp-a.example"]
	check.Equal(t, 1, len(events))
	check.Equal(t, 17.0, events[0].Bid)
	check.True(t, events[0].TimestampAssigned)
}

func TestExtractEnvelopePayload_WrongArity(t *testing.T) {
	data, err := cbor.Marshal([]any{uint64(1), "x", []byte("payload")})
	assert.NoError(t, err)

	_, err = ExtractEnvelopePayload(data)
	check.NotNil(t, err)
	check.True(t, strings.Contains(err.Error(), "expected 4 elements, got 3"))
}

func TestExtractEnvelopePayload_UnsupportedVersion(t *testing.T) {
	data, err := cbor.Marshal([]any{uint64(9), "x", []byte("payload"), []byte("digest")})
	assert.NoError(t, err)

	_, err = ExtractEnvelopePayload(data)
	check.NotNil(t, err)
	check.True(t, strings.Contains(err.Error(), "unsupported snapshot envelope version"))
}

func TestExtractEnvelopePayload_DigestMismatch(t *testing.T) {
	data, err := cbor.Marshal([]any{uint64(1), timelineapi.SnapshotContentType, []byte("payload"), []byte("digest")})
	assert.NoError(t, err)

	_, err = ExtractEnvelopePayload(data)
	check.NotNil(t, err)
	check.True(t, strings.Contains(err.Error(), "snapshot digest mismatch"))
}

func TestExtractEnvelopePayload_NotCBOR(t *testing.T) {
	_, err := ExtractEnvelopePayload([]byte{0xff, 0x00})
	check.NotNil(t, err)
}

func TestFormatDigest(t *testing.T) {
	check.Equal(t, "", FormatDigest(nil))
	check.Equal(t, "0aff", FormatDigest([]byte{0x0a, 0xff}))
}
