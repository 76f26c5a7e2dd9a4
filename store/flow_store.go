package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nilotpaul/meetsync/types"
	"github.com/nilotpaul/meetsync/util"
)

// FlowStore keeps the server-side half of in-flight authorizations. Records
// are one-shot: Take removes them whether or not they have expired.
type FlowStore struct {
	flows  map[string]*types.FlowState
	mu     sync.Mutex
	now    func() time.Time
	logger *slog.Logger
}

func NewFlowStore(logger *slog.Logger) *FlowStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &FlowStore{
		flows:  make(map[string]*types.FlowState),
		now:    time.Now,
		logger: logger,
	}
}

func (s *FlowStore) Save(f types.FlowState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flows[f.ID] = &f
	s.logger.Debug("saved flow state",
		"flow_id", f.ID,
		"provider", f.Provider,
		"expires_at", f.ExpiresAt,
	)
}

// Take returns and deletes the flow with the given id.
func (s *FlowStore) Take(id string) (*types.FlowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, exists := s.flows[id]
	if !exists {
		return nil, util.ErrFlowNotFound
	}
	delete(s.flows, id)

	if s.now().After(f.ExpiresAt) {
		return nil, util.ErrExpiredToken
	}

	return f, nil
}

func (s *FlowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.flows)
}

// Run removes expired flows every interval until ctx is done.
func (s *FlowStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupExpired()
		}
	}
}

func (s *FlowStore) cleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	deleted := 0
	for id, f := range s.flows {
		if now.After(f.ExpiresAt) {
			delete(s.flows, id)
			deleted++
		}
	}

	if deleted > 0 {
		s.logger.Debug("cleaned up flow states", "deleted", deleted)
	}

	return deleted
}
