package core

import (
	"errors"
	"fmt"
	"slices"
)

// AdUnitSlots is the fixed number of ad units an auction tree holds.
const AdUnitSlots = 3

// Catalog lists the fixed ad units, time buckets and sellers the engine knows about.
type Catalog struct {
	AdUnits         []AdUnit
	TimeBuckets     []string
	Sellers         []string
	PublisherSeller string
}

// DefaultCatalog returns the built-in catalog used when no configuration is supplied.
func DefaultCatalog() Catalog {
	return Catalog{
		AdUnits: []AdUnit{
			{Code: "div-200-1", MediaContainerSize: []MediaSize{{320, 320}}, MediaType: "BANNER"},
			{Code: "div-200-2", MediaContainerSize: []MediaSize{{728, 90}}, MediaType: "BANNER"},
			{Code: "div-200-3", MediaContainerSize: []MediaSize{{300, 250}}, MediaType: "BANNER"},
		},
		TimeBuckets:     []string{"10:00:00", "10:05:00", "10:10:00"},
		Sellers:         []string{"https://ssp-a.example", "https://ssp-b.example", "https://ssp-top.example"},
		PublisherSeller: "https://ssp-top.example",
	}
}

// Validate checks the catalog shape.
func (c Catalog) Validate() error {
	if len(c.AdUnits) != AdUnitSlots {
		return fmt.Errorf("catalog must define exactly %d ad units, got %d", AdUnitSlots, len(c.AdUnits))
	}
	seen := make(map[string]bool, len(c.AdUnits))
	for _, unit := range c.AdUnits {
		if unit.Code == "" {
			return errors.New("ad unit code must not be empty")
		}
		if seen[unit.Code] {
			return fmt.Errorf("duplicate ad unit code %q", unit.Code)
		}
		seen[unit.Code] = true
	}
	if c.PublisherSeller == "" {
		return errors.New("publisher seller must be set")
	}
	return nil
}

// AdUnit looks up an ad unit by code.
func (c Catalog) AdUnit(code string) (AdUnit, bool) {
	for _, unit := range c.AdUnits {
		if unit.Code == code {
			return unit, true
		}
	}
	return AdUnit{}, false
}

// HasTimeBucket reports whether the bucket is part of the catalog.
func (c Catalog) HasTimeBucket(bucket string) bool {
	return bucket != "" && slices.Contains(c.TimeBuckets, bucket)
}

// RotatedSellers returns the seller list rotated so the publisher's own seller is last.
// The publisher seller is appended when the list does not contain it.
func (c Catalog) RotatedSellers() []string {
	return RotateSellers(c.Sellers, c.PublisherSeller)
}

// RotateSellers rotates sellers so that publisher ends up in the last position.
func RotateSellers(sellers []string, publisher string) []string {
	idx := slices.Index(sellers, publisher)
	if idx < 0 {
		rotated := slices.Clone(sellers)
		return append(rotated, publisher)
	}

	rotated := make([]string, 0, len(sellers))
	rotated = append(rotated, sellers[idx+1:]...)
	rotated = append(rotated, sellers[:idx+1]...)
	return rotated
}
