package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cloudx-io/auctiontimeline/core"
	"github.com/cloudx-io/auctiontimeline/store"
	"github.com/cloudx-io/auctiontimeline/timeline"
	timelineapi "github.com/cloudx-io/auctiontimeline/timelineapi"
)

// SnapshotStore persists build snapshots. *store.SQLiteStore satisfies it.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot *timelineapi.Snapshot) (int64, error)
	LatestSessionSnapshot(ctx context.Context, sessionID string) (store.SnapshotRecord, error)
}

func failedBuildResponse(message string, startTime time.Time) timelineapi.BuildResponse {
	return timelineapi.BuildResponse{
		Type:           timelineapi.TypeBuildResponse,
		Success:        false,
		Message:        message,
		ProcessingTime: time.Since(startTime).Milliseconds(),
	}
}

// ProcessBuildRequest applies one driver step and returns the tree with its views.
// snapshots may be nil, in which case nothing is persisted.
func ProcessBuildRequest(ctx context.Context, builder *timeline.Builder, sessions *SessionManager, snapshots SnapshotStore, req timelineapi.BuildRequest) timelineapi.BuildResponse {
	startTime := time.Now()
	log.Printf("INFO: Processing build request: ad_unit=%s time_bucket=%s step=%s multi_seller=%t",
		req.AdUnit, req.TimeBucket, req.CurrentStep.Title, req.IsMultiSeller)

	if req.StartTime < 0 {
		return failedBuildResponse(fmt.Sprintf("Invalid negative start time %d", req.StartTime), startTime)
	}

	previous := req.PreviousTree
	if previous == nil && req.SessionID != "" {
		previous = restoreSessionTree(ctx, sessions, snapshots, req.SessionID)
	}

	result := builder.Build(ctx, timeline.BuildInput{
		Selection:      timeline.Selection{AdUnit: req.AdUnit, TimeBucket: req.TimeBucket},
		InterestGroups: req.InterestGroups,
		Advertisers:    req.Advertisers,
		IsMultiSeller:  req.IsMultiSeller,
		CurrentStep:    req.CurrentStep,
		PreviousTree:   previous,
		StartTime:      req.StartTime,
	})

	response := timelineapi.BuildResponse{
		Type:          timelineapi.TypeBuildResponse,
		Success:       true,
		AuctionData:   result.AuctionData,
		ReceivedBids:  result.ReceivedBids,
		NoBids:        result.NoBids,
		AdsAndBidders: result.AdsAndBidders,
	}

	if result.AuctionData == nil {
		response.Message = fmt.Sprintf("No known ad unit selected: %q", req.AdUnit)
		response.ProcessingTime = time.Since(startTime).Milliseconds()
		return response
	}

	fingerprint, err := core.Fingerprint(result.AuctionData)
	if err != nil {
		log.Printf("ERROR: Failed to fingerprint tree: %v", err)
		return failedBuildResponse(fmt.Sprintf("Failed to fingerprint tree: %v", err), startTime)
	}
	response.Fingerprint = fingerprint

	if req.SessionID != "" {
		sessions.Put(req.SessionID, result.AuctionData)
	}

	snapshot := &timelineapi.Snapshot{
		SessionID:     req.SessionID,
		AdUnit:        req.AdUnit,
		TimeBucket:    req.TimeBucket,
		IsMultiSeller: req.IsMultiSeller,
		Step:          req.CurrentStep,
		Fingerprint:   fingerprint,
		Tree:          result.AuctionData,
		CreatedAtMs:   startTime.UnixMilli(),
	}

	encoded, err := timelineapi.EncodeSnapshot(snapshot)
	if err != nil {
		log.Printf("ERROR: Failed to encode snapshot: %v", err)
	} else {
		response.Snapshot = encoded.EncodeBase64()
	}

	if snapshots != nil {
		if id, err := snapshots.SaveSnapshot(ctx, snapshot); err != nil {
			log.Printf("ERROR: Failed to save snapshot: %v", err)
		} else {
			log.Printf("INFO: Saved snapshot %d for %s/%s", id, req.AdUnit, req.TimeBucket)
		}
	}

	response.Message = fmt.Sprintf("Applied step %s", req.CurrentStep.Title)
	response.ProcessingTime = time.Since(startTime).Milliseconds()

	log.Printf("INFO: Build complete: fingerprint=%s received_bids=%d no_bids=%d processing=%dms",
		fingerprint[:12], len(result.ReceivedBids), len(result.NoBids), response.ProcessingTime)

	return response
}

// restoreSessionTree returns the session's last tree from memory, falling back
// to the newest stored snapshot so sessions survive a restart.
func restoreSessionTree(ctx context.Context, sessions *SessionManager, snapshots SnapshotStore, sessionID string) core.AuctionTree {
	if tree := sessions.Get(sessionID); tree != nil {
		return tree
	}
	if snapshots == nil {
		return nil
	}

	record, err := snapshots.LatestSessionSnapshot(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("ERROR: Failed to restore session %s: %v", sessionID, err)
		}
		return nil
	}

	log.Printf("INFO: Restored session %s from snapshot %d", sessionID, record.ID)
	return record.Snapshot.Tree
}
