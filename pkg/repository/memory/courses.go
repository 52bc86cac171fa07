package memory

import (
	"context"
	"sync"

	"github.com/edulab-tools/usersync/pkg/domain/interfaces"
	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
)

type coursesRepository struct {
	mu        sync.RWMutex
	courses   map[types.CourseID]*model.Course
	instances map[types.CourseID]*model.EnrolInstance
	nextID    types.CourseID
	nextInst  types.EnrolInstanceID
}

var _ interfaces.CoursesRepository = &coursesRepository{}

func newCoursesRepository() *coursesRepository {
	return &coursesRepository{
		courses:   make(map[types.CourseID]*model.Course),
		instances: make(map[types.CourseID]*model.EnrolInstance),
		nextID:    1,
		nextInst:  1,
	}
}

func (r *coursesRepository) FindByShortname(ctx context.Context, shortname string) (*model.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.courses {
		if c.Shortname == shortname {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *coursesRepository) ManualInstance(ctx context.Context, courseID types.CourseID) (*model.EnrolInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[courseID]
	if !ok {
		return nil, nil
	}
	copied := *inst
	return &copied, nil
}

// SeedCourse registers a course for tests and development runs.
func (m *Memory) SeedCourse(c model.Course) types.CourseID {
	m.courses.mu.Lock()
	defer m.courses.mu.Unlock()

	if c.ID == 0 {
		c.ID = m.courses.nextID
	}
	if c.ID >= m.courses.nextID {
		m.courses.nextID = c.ID + 1
	}
	stored := c
	m.courses.courses[c.ID] = &stored
	return c.ID
}

// SeedManualInstance attaches a manual enrolment instance to a course.
func (m *Memory) SeedManualInstance(inst model.EnrolInstance) types.EnrolInstanceID {
	m.courses.mu.Lock()
	defer m.courses.mu.Unlock()

	if inst.ID == 0 {
		inst.ID = m.courses.nextInst
	}
	if inst.ID >= m.courses.nextInst {
		m.courses.nextInst = inst.ID + 1
	}
	stored := inst
	m.courses.instances[inst.CourseID] = &stored
	return inst.ID
}
