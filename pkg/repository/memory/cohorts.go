package memory

import (
	"context"
	"sync"

	"github.com/edulab-tools/usersync/pkg/domain/interfaces"
	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
)

type cohortMember struct {
	cohortID types.CohortID
	userID   types.UserID
}

type cohortsRepository struct {
	mu      sync.RWMutex
	cohorts map[types.CohortID]*model.Cohort
	members []cohortMember
	nextID  types.CohortID
}

var _ interfaces.CohortsRepository = &cohortsRepository{}

func newCohortsRepository() *cohortsRepository {
	return &cohortsRepository{
		cohorts: make(map[types.CohortID]*model.Cohort),
		nextID:  1,
	}
}

func (r *cohortsRepository) GetByID(ctx context.Context, id types.CohortID) (*model.Cohort, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cohorts[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (r *cohortsRepository) FindByKey(ctx context.Context, key string) (*model.Cohort, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.cohorts {
		if c.Key == key {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *cohortsRepository) Create(ctx context.Context, c *model.Cohort) (types.CohortID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := *c
	created.ID = r.nextID
	r.nextID++
	r.cohorts[created.ID] = &created
	return created.ID, nil
}

func (r *cohortsRepository) HasMember(ctx context.Context, cohortID types.CohortID, userID types.UserID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.members {
		if m.cohortID == cohortID && m.userID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *cohortsRepository) AddMember(ctx context.Context, cohortID types.CohortID, userID types.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m.cohortID == cohortID && m.userID == userID {
			return nil
		}
	}
	r.members = append(r.members, cohortMember{cohortID: cohortID, userID: userID})
	return nil
}

// SeedCohort registers a cohort for tests and development runs.
func (m *Memory) SeedCohort(c model.Cohort) types.CohortID {
	m.cohorts.mu.Lock()
	defer m.cohorts.mu.Unlock()

	if c.ID == 0 {
		c.ID = m.cohorts.nextID
	}
	if c.ID >= m.cohorts.nextID {
		m.cohorts.nextID = c.ID + 1
	}
	stored := c
	m.cohorts.cohorts[c.ID] = &stored
	return c.ID
}

// CohortMemberCount returns the membership count of a cohort, for tests.
func (m *Memory) CohortMemberCount(id types.CohortID) int {
	m.cohorts.mu.RLock()
	defer m.cohorts.mu.RUnlock()

	n := 0
	for _, member := range m.cohorts.members {
		if member.cohortID == id {
			n++
		}
	}
	return n
}
