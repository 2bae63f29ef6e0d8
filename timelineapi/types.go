package timelineapi

import (
	"time"

	"github.com/cloudx-io/auctiontimeline/core"
)

// Request and response type tags carried in the "type" field of every message.
const (
	TypePing          = "ping"
	TypePong          = "pong"
	TypeBuildRequest  = "build_request"
	TypeBuildResponse = "build_response"
	TypeError         = "error"
)

// BuildRequest asks the timeline server to apply one driver step.
type BuildRequest struct {
	Type string `json:"type"`

	// SessionID lets the server keep the previous tree between requests.
	// When PreviousTree is set it takes precedence over the session's tree.
	SessionID string `json:"session_id,omitempty"`

	AdUnit         string               `json:"ad_unit"`
	TimeBucket     string               `json:"time_bucket"`
	InterestGroups []core.InterestGroup `json:"interest_groups"`
	Advertisers    []string             `json:"advertisers"`
	IsMultiSeller  bool                 `json:"is_multi_seller"`
	CurrentStep    core.Step            `json:"current_step"`
	PreviousTree   core.AuctionTree     `json:"previous_tree,omitempty"`
	StartTime      int64                `json:"start_time,omitempty"` // ms; zero derives it
	Timestamp      time.Time            `json:"timestamp"`
}

// BuildResponse carries the tree and its derived views back to the driver.
type BuildResponse struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message"`

	AuctionData   core.AuctionTree      `json:"auction_data"`
	ReceivedBids  []core.ReceivedBid    `json:"received_bids"`
	NoBids        map[string]core.NoBid `json:"no_bids"`
	AdsAndBidders *core.AdsAndBidders   `json:"ads_and_bidders"`

	// Fingerprint changes only when the tree changes, so drivers can diff cheaply.
	Fingerprint string `json:"fingerprint,omitempty"`

	Snapshot       SnapshotCBORBase64 `json:"snapshot,omitempty"`
	ProcessingTime int64              `json:"processing_time_ms"`
}

// PingResponse answers a health check.
type PingResponse struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorResponse reports a request that could not be processed.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewErrorResponse builds an ErrorResponse with the error type tag set.
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Type: TypeError, Message: message}
}

// Snapshot is the persisted form of one build.
type Snapshot struct {
	SessionID     string           `json:"session_id" cbor:"session_id"`
	AdUnit        string           `json:"ad_unit" cbor:"ad_unit"`
	TimeBucket    string           `json:"time_bucket" cbor:"time_bucket"`
	IsMultiSeller bool             `json:"is_multi_seller" cbor:"is_multi_seller"`
	Step          core.Step        `json:"step" cbor:"step"`
	Fingerprint   string           `json:"fingerprint" cbor:"fingerprint"`
	Tree          core.AuctionTree `json:"tree" cbor:"tree"`
	CreatedAtMs   int64            `json:"created_at_ms" cbor:"created_at_ms"`
}

// CreatedAt returns the snapshot creation time.
func (s *Snapshot) CreatedAt() time.Time {
	return time.UnixMilli(s.CreatedAtMs)
}
