package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// auctionNamespace scopes the deterministic auction ids produced by NewAuctionID.
var auctionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://auction-timeline.example/auctions"))

// ComputeSeed derives a 64-bit seed from the given parts.
//
// Formula: first 8 bytes (big endian) of SHA256(part1 + "|" + part2 + ...)
//
// The same parts always produce the same seed, which keeps synthesis repeatable.
func ComputeSeed(parts ...string) uint64 {
	data := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(data))
	return binary.BigEndian.Uint64(hash[:8])
}

// NewAuctionID returns a stable UUIDv5 identifying the auction keyed by parts.
func NewAuctionID(parts ...string) string {
	return uuid.NewSHA1(auctionNamespace, []byte(strings.Join(parts, "|"))).String()
}

// Fingerprint returns the SHA256 hex digest of the tree's JSON encoding.
// Map keys are encoded in sorted order, so value-equal trees share a fingerprint.
func Fingerprint(tree AuctionTree) (string, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return "", fmt.Errorf("marshal auction tree: %w", err)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}
