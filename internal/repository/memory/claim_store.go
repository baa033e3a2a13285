package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ClaimStore provides in-memory dispatch claims with TTL-based expiration. The
// alert pipeline claims "dispatch:<reportID>" before resolving recipients so
// that a retried or duplicated trigger cannot alert the same report twice.
//
// It only de-duplicates within one process; multi-instance deployments use
// redisstore.ClaimStore instead.
//
// Go Learning Note — Atomic Check-and-Set:
// go-cache's Add fails if the key already exists and has not expired, and it
// performs the check and the write under one lock. That is the same contract
// as Redis `SET key value NX PX ttl`. A Get followed by a Set would let two
// goroutines both see "absent" and both proceed.
type ClaimStore struct {
	cache *gocache.Cache
}

// NewClaimStore creates a ClaimStore whose expired claims are swept every
// cleanupInterval by go-cache's janitor goroutine.
func NewClaimStore(cleanupInterval time.Duration) *ClaimStore {
	return &ClaimStore{
		cache: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Claim returns (true, nil) if the key was free and is now held for ttl, and
// (false, nil) if another holder still owns it.
func (s *ClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := s.cache.Add(key, time.Now(), ttl); err != nil {
		return false, nil
	}
	return true, nil
}

// Release drops a claim before its TTL expires.
func (s *ClaimStore) Release(ctx context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// IsClaimed reports whether a claim is currently held.
func (s *ClaimStore) IsClaimed(ctx context.Context, key string) bool {
	_, held := s.cache.Get(key)
	return held
}
