package memory

import (
	"context"
	"sync"

	"github.com/edulab-tools/usersync/pkg/domain/interfaces"
	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
)

type enrolmentsRepository struct {
	mu         sync.RWMutex
	enrolments []model.Enrolment
}

var _ interfaces.EnrolmentsRepository = &enrolmentsRepository{}

func newEnrolmentsRepository() *enrolmentsRepository {
	return &enrolmentsRepository{}
}

func (r *enrolmentsRepository) Enrol(ctx context.Context, e *model.Enrolment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-enrolling through the same instance updates the membership.
	for i, existing := range r.enrolments {
		if existing.InstanceID == e.InstanceID && existing.UserID == e.UserID {
			r.enrolments[i] = *e
			return nil
		}
	}
	r.enrolments = append(r.enrolments, *e)
	return nil
}

func (r *enrolmentsRepository) IsEnrolled(ctx context.Context, courseID types.CourseID, userID types.UserID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.enrolments {
		if e.CourseID == courseID && e.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// AllEnrolments returns a copy of all enrolments, for tests.
func (m *Memory) AllEnrolments() []model.Enrolment {
	m.enrolments.mu.RLock()
	defer m.enrolments.mu.RUnlock()

	out := make([]model.Enrolment, len(m.enrolments.enrolments))
	copy(out, m.enrolments.enrolments)
	return out
}
