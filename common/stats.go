package common

import (
	"sync"
)

// Stats is a set of named counters. The pool keeps its hit, miss, eviction and flush counts in one.
type Stats struct {
	counts map[string]uint64
	mu     sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		counts: map[string]uint64{},
		mu:     sync.Mutex{},
	}
}

func (s *Stats) Inc(key string) {
	s.mu.Lock()
	s.counts[key]++
	s.mu.Unlock()
}

func (s *Stats) Get(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key]
}
