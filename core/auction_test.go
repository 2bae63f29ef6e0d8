package core

import (
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestScoreAuction_HighestBidWins(t *testing.T) {
	bids := []AuctionEvent{
		{Type: EventBid, OwnerOrigin: "https://dsp-a.example", Name: "shoes", Bid: 40},
		{Type: EventBid, OwnerOrigin: "https://dsp-b.example", Name: "books", Bid: 85},
	}

	result := ScoreAuction(bids, nil, 0)

	check.NotNil(t, result.Winner)
	check.Equal(t, 85.0, result.Winner.Bid)
	check.Equal(t, "https://dsp-b.example", result.Winner.OwnerOrigin)

	check.NotNil(t, result.RunnerUp)
	check.Equal(t, 40.0, result.RunnerUp.Bid)
}

func TestScoreAuction_NoBids(t *testing.T) {
	result := ScoreAuction([]AuctionEvent{}, nil, 0)

	check.NotNil(t, result)
	check.Nil(t, result.Winner)
	check.Nil(t, result.RunnerUp)
	check.Equal(t, 0, len(result.Ranked))
	check.Equal(t, 0, len(result.FloorRejected))
}

func TestScoreAuction_IgnoresNonBidEvents(t *testing.T) {
	events := []AuctionEvent{
		{Type: EventStarted},
		{Type: EventLoaded, OwnerOrigin: "https://dsp-a.example"},
		{Type: EventBid, OwnerOrigin: "https://dsp-a.example", Bid: 12},
		{Type: EventWin, OwnerOrigin: "https://dsp-z.example", Bid: 99},
	}

	result := ScoreAuction(events, nil, 0)

	check.Equal(t, 1, len(result.Ranked))
	check.Equal(t, 12.0, result.Winner.Bid)
}

func TestScoreAuction_TopLevelBidsCompete(t *testing.T) {
	events := []AuctionEvent{
		{Type: EventTopLevelBid, OwnerOrigin: "https://dsp-a.example", Bid: 60, ComponentSellerOrigin: "https://ssp-a.example"},
		{Type: EventTopLevelBid, OwnerOrigin: "https://dsp-b.example", Bid: 70, ComponentSellerOrigin: "https://ssp-b.example"},
	}

	result := ScoreAuction(events, nil, 0)

	check.Equal(t, "https://ssp-b.example", result.Winner.ComponentSellerOrigin)
}

func TestScoreAuction_AdjustmentChangesWinner(t *testing.T) {
	bids := []AuctionEvent{
		{Type: EventBid, OwnerOrigin: "https://dsp-a.example", Bid: 50},
		{Type: EventBid, OwnerOrigin: "https://dsp-b.example", Bid: 40},
	}

	result := ScoreAuction(bids, map[string]float64{"https://dsp-b.example": 1.5}, 0)

	// dsp-b scores 60 and wins, but keeps its raw bid
	check.Equal(t, "https://dsp-b.example", result.Winner.OwnerOrigin)
	check.Equal(t, 40.0, result.Winner.Bid)
}

func TestScoreAuction_AllBidsBelowFloor(t *testing.T) {
	bids := []AuctionEvent{
		{Type: EventBid, OwnerOrigin: "https://dsp-a.example", Bid: 10},
		{Type: EventBid, OwnerOrigin: "https://dsp-b.example", Bid: 5},
	}

	result := ScoreAuction(bids, nil, 20)

	check.Nil(t, result.Winner)
	check.Equal(t, 2, len(result.FloorRejected))
}
