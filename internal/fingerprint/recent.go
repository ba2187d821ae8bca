// Package fingerprint implements the approximate duplicate and low-value
// message gates that run before classification.
//
// Duplicate suppression is best-effort: fingerprints live in small bounded
// FIFO sets held in process memory. They are lost on restart and are not
// shared between instances. Structural uniqueness of a message is enforced
// by the database, not here.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// RecentSet is a fixed-capacity set of strings with FIFO eviction: once
// full, adding a new entry forgets the oldest one. It is safe for
// concurrent use.
type RecentSet struct {
	mu    sync.Mutex
	cap   int
	ring  []string
	next  int
	items map[string]struct{}
}

// NewRecentSet returns an empty set holding at most capacity entries.
// A capacity below 1 is treated as 1.
func NewRecentSet(capacity int) *RecentSet {
	if capacity < 1 {
		capacity = 1
	}
	return &RecentSet{
		cap:   capacity,
		ring:  make([]string, 0, capacity),
		items: make(map[string]struct{}, capacity),
	}
}

// SeenOrAdd reports whether key is already present. If it is not, key is
// inserted, evicting the oldest entry when the set is full. The check and
// insert happen under one lock, so concurrent callers never both see a key
// as new.
func (s *RecentSet) SeenOrAdd(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; ok {
		return true
	}
	if len(s.ring) < s.cap {
		s.ring = append(s.ring, key)
	} else {
		delete(s.items, s.ring[s.next])
		s.ring[s.next] = key
		s.next = (s.next + 1) % s.cap
	}
	s.items[key] = struct{}{}
	return false
}

// Contains reports whether key is present without inserting it.
func (s *RecentSet) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[key]
	return ok
}

// Len returns the number of entries currently held.
func (s *RecentSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Hash returns the hex SHA-256 of s.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
