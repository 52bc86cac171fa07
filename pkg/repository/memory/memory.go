package memory

import (
	"github.com/edulab-tools/usersync/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is the in-memory repository backend. It serves development runs
// and tests; the batch assumes a single writer, so the locking here only
// guards against the async notification path.
type Memory struct {
	users      *usersRepository
	courses    *coursesRepository
	roles      *rolesRepository
	cohorts    *cohortsRepository
	groups     *groupsRepository
	enrolments *enrolmentsRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	groupsRepo := newGroupsRepository()
	enrolRepo := newEnrolmentsRepository()

	return &Memory{
		users:      newUsersRepository(),
		courses:    newCoursesRepository(),
		roles:      newRolesRepository(),
		cohorts:    newCohortsRepository(),
		groups:     groupsRepo,
		enrolments: enrolRepo,
	}
}

func (m *Memory) Users() interfaces.UsersRepository {
	return m.users
}

func (m *Memory) Courses() interfaces.CoursesRepository {
	return m.courses
}

func (m *Memory) Roles() interfaces.RolesRepository {
	return m.roles
}

func (m *Memory) Cohorts() interfaces.CohortsRepository {
	return m.cohorts
}

func (m *Memory) Groups() interfaces.GroupsRepository {
	return m.groups
}

func (m *Memory) Enrolments() interfaces.EnrolmentsRepository {
	return m.enrolments
}

// Close is a no-op for the in-memory backend.
func (m *Memory) Close() error {
	return nil
}
