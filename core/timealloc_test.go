package core

import (
	"slices"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestAllocateOffsets_SortedWithinBounds(t *testing.T) {
	offsets := AllocateOffsets(NewSeededRandSource(42), 20, 100, 250)

	check.Equal(t, 20, len(offsets))
	check.True(t, slices.IsSorted(offsets))
	for _, offset := range offsets {
		check.True(t, offset >= 100 && offset <= 250)
	}
}

func TestAllocateOffsets_SortsDrawnValues(t *testing.T) {
	rnd := &mockRandSource{sequence: []int{7, 2, 5}}

	offsets := AllocateOffsets(rnd, 3, 10, 20)

	check.Equal(t, []int64{12, 15, 17}, offsets)
}

func TestAllocateOffsets_ZeroCount(t *testing.T) {
	offsets := AllocateOffsets(NewSeededRandSource(1), 0, 0, 100)

	check.NotNil(t, offsets)
	check.Equal(t, 0, len(offsets))
}

func TestAllocateOffsets_ConstantRange(t *testing.T) {
	offsets := AllocateOffsets(NewSeededRandSource(1), 4, 30, 30)

	check.Equal(t, []int64{30, 30, 30, 30}, offsets)
}

func TestAllocateOffsets_SwappedBounds(t *testing.T) {
	offsets := AllocateOffsets(NewSeededRandSource(3), 5, 50, 10)

	for _, offset := range offsets {
		check.True(t, offset >= 10 && offset <= 50)
	}
}

func TestAllocateOffsets_SameSeedSameOffsets(t *testing.T) {
	first := AllocateOffsets(NewSeededRandSource(99), 6, 0, 1000)
	second := AllocateOffsets(NewSeededRandSource(99), 6, 0, 1000)

	check.Equal(t, first, second)
}

func TestFormatElapsed(t *testing.T) {
	check.Equal(t, "0s", FormatElapsed(1000, 1000))
	check.Equal(t, "120ms", FormatElapsed(1000, 1120))
	check.Equal(t, "1.25s", FormatElapsed(1000, 2250))
	check.Equal(t, "-5ms", FormatElapsed(1000, 995))
}
