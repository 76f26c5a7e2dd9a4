package store

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/nilotpaul/meetsync/service"
	"github.com/nilotpaul/meetsync/types"
)

// prepareAutomation fills the server-owned fields of a new automation. Ids are
// ULIDs so they sort by creation time.
func prepareAutomation(a *types.Automation, now time.Time) {
	if len(a.ID) == 0 {
		a.ID = ulid.Make().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
}

type MemoryAutomationStore struct {
	automations map[string][]*types.Automation
	mu          sync.RWMutex
}

func NewMemoryAutomationStore() *MemoryAutomationStore {
	return &MemoryAutomationStore{
		automations: make(map[string][]*types.Automation),
	}
}

func (s *MemoryAutomationStore) Create(_ context.Context, a *types.Automation) error {
	prepareAutomation(a, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.automations[a.UserID] = append(s.automations[a.UserID], a.Clone())

	return nil
}

func (s *MemoryAutomationStore) List(_ context.Context, userID string) ([]*types.Automation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*types.Automation, 0, len(s.automations[userID]))
	for _, a := range s.automations[userID] {
		list = append(list, a.Clone())
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})

	return list, nil
}

type PGAutomationStore struct {
	db *sql.DB
}

func NewPGAutomationStore(db *sql.DB) *PGAutomationStore {
	return &PGAutomationStore{db: db}
}

func (s *PGAutomationStore) Create(ctx context.Context, a *types.Automation) error {
	prepareAutomation(a, time.Now())
	return service.CreateAutomation(ctx, s.db, a)
}

func (s *PGAutomationStore) List(ctx context.Context, userID string) ([]*types.Automation, error) {
	return service.ListAutomations(ctx, s.db, userID)
}
