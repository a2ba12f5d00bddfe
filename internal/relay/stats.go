package relay

import (
	"sync"
	"time"
)

// ProviderStats is a snapshot of one provider's lifetime counters.
type ProviderStats struct {
	Successes   uint64    `json:"successes"`
	Failures    uint64    `json:"failures"`
	Skips       uint64    `json:"skips"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitempty"`
}

// Stats tracks per-provider outcomes across requests. Counters are keyed
// by route and provider so a provider appearing in both the chat and image
// chains is tracked separately. Stats are observational only: routing
// order stays fixed regardless of history.
type Stats struct {
	mu        sync.RWMutex
	providers map[string]*ProviderStats
}

func NewStats() *Stats {
	return &Stats{providers: make(map[string]*ProviderStats)}
}

// StatsKey is the snapshot key for one provider on one route.
func StatsKey(route, provider string) string {
	return route + "/" + provider
}

func (s *Stats) get(route, provider string) *ProviderStats {
	key := StatsKey(route, provider)
	ps, ok := s.providers[key]
	if !ok {
		ps = &ProviderStats{}
		s.providers[key] = ps
	}
	return ps
}

func (s *Stats) RecordSuccess(route, provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(route, provider).Successes++
}

func (s *Stats) RecordFailure(route, provider string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := s.get(route, provider)
	ps.Failures++
	if err != nil {
		ps.LastError = err.Error()
		ps.LastErrorAt = time.Now()
	}
}

func (s *Stats) RecordSkip(route, provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(route, provider).Skips++
}

// Snapshot returns a copy of all counters, keyed by StatsKey.
func (s *Stats) Snapshot() map[string]ProviderStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]ProviderStats, len(s.providers))
	for key, ps := range s.providers {
		out[key] = *ps
	}
	return out
}
