package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cloudx-io/auctiontimeline/core"
)

type session struct {
	tree      core.AuctionTree
	updatedAt time.Time
}

// SessionManager keeps the last tree built for each driver session so a
// driver can send only the next step instead of echoing the whole tree.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]session
	now      func() time.Time
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]session),
		now:      time.Now,
	}
}

// Get returns the session's last tree, or nil when the session is unknown.
func (m *SessionManager) Get(id string) core.AuctionTree {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	return s.tree
}

// Put replaces the session's tree and refreshes its expiry.
func (m *SessionManager) Put(id string, tree core.AuctionTree) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[id] = session{tree: tree, updatedAt: m.now()}
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// RemoveExpired drops sessions idle for longer than maxAge and returns how many were removed.
func (m *SessionManager) RemoveExpired(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	removed := 0
	for id, s := range m.sessions {
		if s.updatedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartExpirationCleanup removes idle sessions every interval until ctx is done.
func (m *SessionManager) StartExpirationCleanup(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := m.RemoveExpired(maxAge); removed > 0 {
					log.Printf("INFO: Expired %d idle sessions", removed)
				}
			}
		}
	}()
}
