package core

import (
	"net/url"
	"slices"
	"strings"
)

const (
	MinBid = 1
	MaxBid = 100
)

// Resource templates; {host} is replaced with the seller or bidder host.
const (
	decisionLogicTemplate           = "https://{host}/js/decision-logic.js"
	trustedScoringSignalsTemplate   = "https://{host}/signals/scoring"
	directFromSellerSignalsTemplate = "https://{host}/signals/direct-from-seller"
	biddingLogicTemplate            = "https://{host}/js/bidding-logic.js"
	trustedBiddingSignalsTemplate   = "https://{host}/signals/bidding"
)

// originHost extracts the host of an origin, falling back to the raw value.
func originHost(origin string) string {
	if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return strings.TrimSuffix(origin, "/")
}

func expandTemplate(template, origin string) string {
	return strings.ReplaceAll(template, "{host}", originHost(origin))
}

// NewAuctionConfig builds a fresh auction config for seller.
// The advertiser list is copied so configs never share backing arrays.
func NewAuctionConfig(seller string, advertisers []string) *AuctionConfig {
	return &AuctionConfig{
		Seller:                     seller,
		DecisionLogicURL:           expandTemplate(decisionLogicTemplate, seller),
		TrustedScoringSignalsURL:   expandTemplate(trustedScoringSignalsTemplate, seller),
		DirectFromSellerSignalsURL: expandTemplate(directFromSellerSignalsTemplate, seller),
		InterestGroupBuyers:        slices.Clone(advertisers),
	}
}

// BiddingLogicURL returns the bidding script URL of a bidder.
func BiddingLogicURL(owner string) string {
	return expandTemplate(biddingLogicTemplate, owner)
}

// TrustedBiddingSignalsURL returns the key-value signals URL of a bidder.
func TrustedBiddingSignalsURL(owner string) string {
	return expandTemplate(trustedBiddingSignalsTemplate, owner)
}

func NewStartedEvent(seller string, advertisers []string) AuctionEvent {
	return AuctionEvent{
		Type:          EventStarted,
		AuctionConfig: NewAuctionConfig(seller, advertisers),
	}
}

func NewConfigResolvedEvent(seller string, advertisers []string) AuctionEvent {
	return AuctionEvent{
		Type:          EventConfigResolved,
		AuctionConfig: NewAuctionConfig(seller, advertisers),
	}
}

func NewLoadedEvent(interestGroup InterestGroup) AuctionEvent {
	return AuctionEvent{
		Type:        EventLoaded,
		OwnerOrigin: interestGroup.OwnerOrigin,
		Name:        interestGroup.InterestGroupName,
	}
}

func NewFetchStartEvent(seller string, advertisers []string, fetchURL string) AuctionEvent {
	return AuctionEvent{
		Type:          EventFetchStart,
		AuctionConfig: NewAuctionConfig(seller, advertisers),
		FetchURL:      fetchURL,
	}
}

func NewFetchFinishEvent(seller string, advertisers []string, fetchURL string) AuctionEvent {
	return AuctionEvent{
		Type:          EventFetchFinish,
		AuctionConfig: NewAuctionConfig(seller, advertisers),
		FetchURL:      fetchURL,
	}
}

// NewBidEvent creates a bid for the interest group with a uniform random value in [MinBid, MaxBid].
func NewBidEvent(interestGroup InterestGroup, randSource RandSource) AuctionEvent {
	return AuctionEvent{
		Type:        EventBid,
		OwnerOrigin: interestGroup.OwnerOrigin,
		Name:        interestGroup.InterestGroupName,
		Bid:         float64(RandomIntInRange(randSource, MinBid, MaxBid)),
		BidCurrency: DefaultCurrency,
	}
}

// NewTopLevelBidEvent carries a component auction's winning bid into the top-level auction.
func NewTopLevelBidEvent(componentWin AuctionEvent, componentSeller string) AuctionEvent {
	return AuctionEvent{
		Type:                  EventTopLevelBid,
		OwnerOrigin:           componentWin.OwnerOrigin,
		Name:                  componentWin.Name,
		Bid:                   componentWin.Bid,
		BidCurrency:           componentWin.BidCurrency,
		ComponentSellerOrigin: componentSeller,
	}
}

func NewWinEvent(winningBid AuctionEvent) AuctionEvent {
	return AuctionEvent{
		Type:        EventWin,
		OwnerOrigin: winningBid.OwnerOrigin,
		Name:        winningBid.Name,
		Bid:         winningBid.Bid,
		BidCurrency: winningBid.BidCurrency,
	}
}

// CloneEvent returns a copy of e that shares no mutable state with it.
func CloneEvent(e AuctionEvent) AuctionEvent {
	if e.AuctionConfig != nil {
		config := *e.AuctionConfig
		config.InterestGroupBuyers = slices.Clone(e.AuctionConfig.InterestGroupBuyers)
		e.AuctionConfig = &config
	}
	return e
}

// CloneEvents deep-copies a slice of events. A nil slice yields an empty one.
func CloneEvents(events []AuctionEvent) []AuctionEvent {
	cloned := make([]AuctionEvent, len(events))
	for i, e := range events {
		cloned[i] = CloneEvent(e)
	}
	return cloned
}
