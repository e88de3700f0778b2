package service

import (
	"time"

	"github.com/adviserops/chaser/internal/domain"
	gocache "github.com/patrickmn/go-cache"
)

// ScoredSnapshot is one firm's scored chase book at a single instant
type ScoredSnapshot struct {
	Scored  []*domain.ScoredChase
	TakenAt time.Time
}

// SnapshotCache holds the latest scored snapshot per firm. Snapshots are
// replaced wholesale on every cycle; dashboard reads never trigger scoring
// of their own while a snapshot is live.
type SnapshotCache struct {
	cache *gocache.Cache
}

// NewSnapshotCache creates a SnapshotCache with the given snapshot lifetime
func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{cache: gocache.New(ttl, 2*ttl)}
}

// Set replaces the firm's snapshot
func (s *SnapshotCache) Set(firmID string, snapshot *ScoredSnapshot) {
	s.cache.SetDefault(firmID, snapshot)
}

// Get returns the firm's live snapshot, if any
func (s *SnapshotCache) Get(firmID string) (*ScoredSnapshot, bool) {
	v, ok := s.cache.Get(firmID)
	if !ok {
		return nil, false
	}
	snapshot, ok := v.(*ScoredSnapshot)
	return snapshot, ok
}
