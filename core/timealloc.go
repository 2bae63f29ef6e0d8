package core

import (
	"fmt"
	"slices"
	"time"
)

// AllocateOffsets returns count independent uniform random offsets in [low, high], sorted ascending.
// A zero or negative count yields an empty slice; low == high yields a constant slice.
func AllocateOffsets(randSource RandSource, count int, low, high int64) []int64 {
	if count <= 0 {
		return []int64{}
	}
	if high < low {
		low, high = high, low
	}

	offsets := make([]int64, count)
	span := high - low
	for i := range offsets {
		if span == 0 {
			offsets[i] = low
			continue
		}
		offsets[i] = low + int64(randSource.Intn(int(span)+1))
	}

	slices.Sort(offsets)
	return offsets
}

// FormatElapsed renders the time elapsed between start and at (both in milliseconds).
func FormatElapsed(start, at int64) string {
	elapsed := time.Duration(at-start) * time.Millisecond
	if elapsed < 0 {
		return fmt.Sprintf("-%s", -elapsed)
	}
	return elapsed.String()
}
