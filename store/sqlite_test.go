package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/auctiontimeline/core"
	timelineapi "github.com/cloudx-io/auctiontimeline/timelineapi"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "timeline.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func snapshotAt(session, adUnit, bucket, title string, bid float64) *timelineapi.Snapshot {
	return &timelineapi.Snapshot{
		SessionID:   session,
		AdUnit:      adUnit,
		TimeBucket:  bucket,
		Step:        core.Step{Title: title},
		Fingerprint: fmt.Sprintf("fp-%s-%v", title, bid),
		Tree: core.AuctionTree{
			adUnit: {bucket: {"https://ssp-top.example": {"https://ssp-top.example": {
				{Type: core.EventBid, OwnerOrigin: "https://dsp-a.example", Bid: bid, BidCurrency: "USD", Time: 10, TimestampAssigned: true},
			}}}},
		},
		CreatedAtMs: 1_700_000_000_000,
	}
}

func TestSQLiteStore_SaveAndLatest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.SaveSnapshot(ctx, snapshotAt("s1", "div-200-1", "10:00:00", "RUN_AD_AUCTION", 1))
	assert.NoError(t, err)
	id, err := store.SaveSnapshot(ctx, snapshotAt("s1", "div-200-1", "10:00:00", "GENERATE_BID", 55))
	assert.NoError(t, err)

	latest, err := store.LatestSnapshot(ctx, "div-200-1", "10:00:00")
	assert.NoError(t, err)

	check.Equal(t, id, latest.ID)
	check.Equal(t, "GENERATE_BID", latest.Snapshot.Step.Title)
	check.Equal(t, "fp-GENERATE_BID-55", latest.Snapshot.Fingerprint)

	events := latest.Snapshot.Tree.Branch("div-200-1", "10:00:00", "https://ssp-top.example")["https://ssp-top.example"]
	check.Equal(t, 1, len(events))
	check.Equal(t, 55.0, events[0].Bid)
}

func TestSQLiteStore_ListSnapshotsOldestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, title := range []string{"RUN_AD_AUCTION", "LOAD_INTEREST_GROUP", "GENERATE_BID"} {
		_, err := store.SaveSnapshot(ctx, snapshotAt("s1", "div-200-2", "10:05:00", title, float64(i)))
		assert.NoError(t, err)
	}
	_, err := store.SaveSnapshot(ctx, snapshotAt("s2", "div-200-3", "10:05:00", "SCORE_AD", 9))
	assert.NoError(t, err)

	records, err := store.ListSnapshots(ctx, "div-200-2", "10:05:00", 0)
	assert.NoError(t, err)

	check.Equal(t, 3, len(records))
	check.Equal(t, "RUN_AD_AUCTION", records[0].Snapshot.Step.Title)
	check.Equal(t, "GENERATE_BID", records[2].Snapshot.Step.Title)

	limited, err := store.ListSnapshots(ctx, "div-200-2", "10:05:00", 2)
	assert.NoError(t, err)
	check.Equal(t, 2, len(limited))
}

func TestSQLiteStore_LatestNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.LatestSnapshot(context.Background(), "div-200-1", "10:10:00")

	check.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_LatestSessionSnapshot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.SaveSnapshot(ctx, snapshotAt("s1", "div-200-1", "10:00:00", "RUN_AD_AUCTION", 1))
	assert.NoError(t, err)
	_, err = store.SaveSnapshot(ctx, snapshotAt("s2", "div-200-2", "10:00:00", "SCORE_AD", 2))
	assert.NoError(t, err)

	record, err := store.LatestSessionSnapshot(ctx, "s1")
	assert.NoError(t, err)
	check.Equal(t, "div-200-1", record.Snapshot.AdUnit)

	_, err = store.LatestSessionSnapshot(ctx, "missing")
	check.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.db")
	ctx := context.Background()

	first, err := Open(path)
	assert.NoError(t, err)
	_, err = first.SaveSnapshot(ctx, snapshotAt("s1", "div-200-1", "10:00:00", "SCORE_AD", 77))
	assert.NoError(t, err)
	assert.NoError(t, first.Close())

	second, err := Open(path)
	assert.NoError(t, err)
	defer second.Close()

	latest, err := second.LatestSnapshot(ctx, "div-200-1", "10:00:00")
	assert.NoError(t, err)
	check.Equal(t, "SCORE_AD", latest.Snapshot.Step.Title)
}
