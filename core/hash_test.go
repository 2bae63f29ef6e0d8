package core

import (
	"testing"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestComputeSeed_Deterministic(t *testing.T) {
	seed1 := ComputeSeed("auction", "https://ssp-a.example", "GENERATE_BID")
	seed2 := ComputeSeed("auction", "https://ssp-a.example", "GENERATE_BID")
	check.Equal(t, seed1, seed2)

	seed3 := ComputeSeed("auction", "https://ssp-b.example", "GENERATE_BID")
	check.NotEqual(t, seed1, seed3)
}

func TestComputeSeed_SeparatorMatters(t *testing.T) {
	// "a|bc" and "ab|c" must not collide
	check.NotEqual(t, ComputeSeed("a", "bc"), ComputeSeed("ab", "c"))
}

func TestNewAuctionID(t *testing.T) {
	id := NewAuctionID("div-200-1", "10:00:00", "https://ssp-top.example")

	parsed, err := uuid.Parse(id)
	assert.NoError(t, err)
	check.Equal(t, uuid.Version(5), parsed.Version())

	check.Equal(t, id, NewAuctionID("div-200-1", "10:00:00", "https://ssp-top.example"))
	check.NotEqual(t, id, NewAuctionID("div-200-2", "10:00:00", "https://ssp-top.example"))
}

func TestFingerprint_ValueEquality(t *testing.T) {
	build := func() AuctionTree {
		return AuctionTree{
			"div-200-1": AdUnitAuctions{
				"10:00:00": SellerAuctions{
					"https://ssp-top.example": SellerEvents{
						"https://ssp-top.example": {{Type: EventStarted, Time: 10}},
						"https://ssp-a.example":   {{Type: EventStarted, Time: 11}},
					},
				},
			},
			"div-200-2": AdUnitAuctions{},
			"div-200-3": AdUnitAuctions{},
		}
	}

	fp1, err := Fingerprint(build())
	assert.NoError(t, err)
	fp2, err := Fingerprint(build())
	assert.NoError(t, err)
	check.Equal(t, fp1, fp2)
	check.Equal(t, 64, len(fp1))

	changed := build()
	changed["div-200-1"]["10:00:00"]["https://ssp-top.example"]["https://ssp-a.example"][0].Time = 12
	fp3, err := Fingerprint(changed)
	assert.NoError(t, err)
	check.NotEqual(t, fp1, fp3)
}
