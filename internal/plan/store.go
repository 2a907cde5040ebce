package plan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/wielermanager/internal/contracts"
)

// ErrPlanNotFound is returned when no plan has the requested id
var ErrPlanNotFound = errors.New("plan not found")

// Store persists produced plans
type Store interface {
	Save(ctx context.Context, plan *contracts.Plan, req *contracts.PlanRequest) error
	Get(ctx context.Context, id string) (*contracts.Plan, error)
	Latest(ctx context.Context, strategy contracts.Strategy) (*contracts.Plan, error)
}

// MemoryStore keeps plans in process, used when no database is configured
type MemoryStore struct {
	mu    sync.RWMutex
	plans map[string]*contracts.Plan
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{plans: make(map[string]*contracts.Plan)}
}

// Save stores the plan under its id
func (s *MemoryStore) Save(_ context.Context, plan *contracts.Plan, _ *contracts.PlanRequest) error {
	if plan.ID == "" {
		return errors.New("plan has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = plan
	return nil
}

// Get returns a stored plan
func (s *MemoryStore) Get(_ context.Context, id string) (*contracts.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plan, ok := s.plans[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	return plan, nil
}

// Latest returns the newest plan of a strategy
func (s *MemoryStore) Latest(_ context.Context, strategy contracts.Strategy) (*contracts.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*contracts.Plan
	for _, p := range s.plans {
		if p.Strategy == strategy {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no %s plan", ErrPlanNotFound, strategy)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches[0], nil
}
