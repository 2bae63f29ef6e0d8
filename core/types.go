package core

// AuctionEventType tags one lifecycle occurrence of an auction.
type AuctionEventType string

const (
	EventStarted        AuctionEventType = "started"
	EventConfigResolved AuctionEventType = "config-resolved"
	EventLoaded         AuctionEventType = "loaded"
	EventFetchStart     AuctionEventType = "fetch-start"
	EventFetchFinish    AuctionEventType = "fetch-finish"
	EventBid            AuctionEventType = "bid"
	EventTopLevelBid    AuctionEventType = "top-level-bid"
	EventWin            AuctionEventType = "win"
)

// DefaultCurrency is the currency attached to every synthesized bid.
const DefaultCurrency = "USD"

// AuctionConfig holds a seller's identity and the resources it publishes.
// A config is built fresh for every event that carries one.
type AuctionConfig struct {
	Seller                     string   `json:"seller" cbor:"seller"`
	DecisionLogicURL           string   `json:"decision_logic_url" cbor:"decision_logic_url"`
	TrustedScoringSignalsURL   string   `json:"trusted_scoring_signals_url" cbor:"trusted_scoring_signals_url"`
	DirectFromSellerSignalsURL string   `json:"direct_from_seller_signals_url" cbor:"direct_from_seller_signals_url"`
	InterestGroupBuyers        []string `json:"interest_group_buyers,omitempty" cbor:"interest_group_buyers,omitempty"`
}

// AuctionEvent represents one synthesized auction lifecycle event.
type AuctionEvent struct {
	Type          AuctionEventType `json:"type" cbor:"type"`
	Time          int64            `json:"time" cbor:"time"`                     // absolute clock value in milliseconds
	FormattedTime string           `json:"formatted_time" cbor:"formatted_time"` // elapsed since auction start

	// TimestampAssigned is false until the synthesizer has placed the event on the timeline.
	TimestampAssigned bool `json:"timestamp_assigned" cbor:"timestamp_assigned"`

	OwnerOrigin string `json:"owner_origin,omitempty" cbor:"owner_origin,omitempty"`
	Name        string `json:"name,omitempty" cbor:"name,omitempty"`

	Bid         float64 `json:"bid,omitempty" cbor:"bid,omitempty"`
	BidCurrency string  `json:"bid_currency,omitempty" cbor:"bid_currency,omitempty"`

	AuctionConfig *AuctionConfig `json:"auction_config,omitempty" cbor:"auction_config,omitempty"`
	FetchURL      string         `json:"fetch_url,omitempty" cbor:"fetch_url,omitempty"`

	// ComponentSellerOrigin links a top-level bid back to the component auction it came from.
	ComponentSellerOrigin string `json:"component_seller_origin,omitempty" cbor:"component_seller_origin,omitempty"`

	UniqueAuctionID string `json:"unique_auction_id" cbor:"unique_auction_id"`
	Phase           string `json:"phase" cbor:"phase"` // step that emitted the event
}

// IsBid reports whether the event carries a bid that can be scored.
func (e AuctionEvent) IsBid() bool {
	return e.Type == EventBid || e.Type == EventTopLevelBid
}

// InterestGroup identifies a bidder's interest group.
type InterestGroup struct {
	OwnerOrigin       string `json:"owner_origin" cbor:"owner_origin"`
	InterestGroupName string `json:"interest_group_name" cbor:"interest_group_name"`
}

// Step is the phase selected by the external driver.
type Step struct {
	Title       string `json:"title" cbor:"title"`
	Description string `json:"description,omitempty" cbor:"description,omitempty"`
	SSP         string `json:"ssp,omitempty" cbor:"ssp,omitempty"`
}

// SellerEvents maps a seller URL to its ordered event history.
type SellerEvents map[string][]AuctionEvent

// SellerAuctions maps a top-level seller URL to the auctions it ran.
type SellerAuctions map[string]SellerEvents

// AdUnitAuctions maps a time bucket to the auctions run in it.
type AdUnitAuctions map[string]SellerAuctions

// AuctionTree is the nested index adUnitCode -> timeBucket -> topLevelSeller -> seller -> events.
type AuctionTree map[string]AdUnitAuctions

// Branch returns the seller events stored under the given coordinates, or nil.
func (t AuctionTree) Branch(adUnit, timeBucket, topLevelSeller string) SellerEvents {
	return t[adUnit][timeBucket][topLevelSeller]
}

// MediaSize is a width/height pair.
type MediaSize [2]int

// AdUnit describes one display slot.
type AdUnit struct {
	Code               string      `json:"code"`
	MediaContainerSize []MediaSize `json:"media_container_size"`
	MediaType          string      `json:"media_type"`
}

// ReceivedBid is a bid event tagged with its ad unit.
type ReceivedBid struct {
	AuctionEvent
	Seller             string      `json:"seller"`
	AdUnitCode         string      `json:"ad_unit_code"`
	MediaContainerSize []MediaSize `json:"media_container_size"`
	MediaType          string      `json:"media_type"`
}

// NoBid records a bidder that had an interest group but did not bid.
type NoBid struct {
	Bidder             string      `json:"bidder"`
	AdUnitCode         string      `json:"ad_unit_code"`
	MediaContainerSize []MediaSize `json:"media_container_size"`
	UniqueAuctionID    string      `json:"unique_auction_id"`
}

// AdsAndBidders summarises one ad unit's auction.
type AdsAndBidders struct {
	AdUnitCode         string      `json:"ad_unit_code"`
	Bidders            []string    `json:"bidders"`
	MediaContainerSize []MediaSize `json:"media_container_size"`
	WinningBid         float64     `json:"winning_bid"`
	BidCurrency        string      `json:"bid_currency,omitempty"`
	WinningBidder      string      `json:"winning_bidder,omitempty"`
}

// AuctionResult contains the outcome of scoring a seller's bids.
type AuctionResult struct {
	// Winner is the highest-scoring eligible bid (nil if no bid survived)
	Winner *AuctionEvent

	// RunnerUp is the second-highest-scoring eligible bid
	RunnerUp *AuctionEvent

	// Ranked contains eligible bids in ascending score order
	Ranked []ScoredBid

	// FloorRejected contains bids whose score fell below the seller floor
	FloorRejected []ScoredBid
}

// ScoredBid pairs a bid event with the desirability score the seller assigned it.
type ScoredBid struct {
	Event AuctionEvent
	Score float64
}
