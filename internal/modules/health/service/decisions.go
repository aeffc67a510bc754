package service

import (
	"sort"
	"sync"

	"multisignal_bot/internal/models"
)

// DecisionStore: последнее решение по каждой паре.
type DecisionStore struct {
	mu     sync.RWMutex
	latest map[string]models.Decision
}

func NewDecisionStore() *DecisionStore {
	return &DecisionStore{latest: make(map[string]models.Decision)}
}

func (s *DecisionStore) Publish(d models.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[d.Pair] = d
}

func (s *DecisionStore) Get(pair string) (models.Decision, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.latest[pair]
	return d, ok
}

func (s *DecisionStore) All() []models.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Decision, 0, len(s.latest))
	for _, d := range s.latest {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pair < out[j].Pair })
	return out
}

// Feed раздаёт решение всем подписчикам по очереди.
type Feed []models.DecisionSink

func (f Feed) Publish(d models.Decision) {
	for _, s := range f {
		s.Publish(d)
	}
}
