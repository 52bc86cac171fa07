package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/edulab-tools/usersync/pkg/domain/interfaces"
	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
)

type roleAssignment struct {
	roleID   types.RoleID
	userID   types.UserID
	courseID types.CourseID // zero for system scope
}

type rolesRepository struct {
	mu          sync.RWMutex
	courseRoles []model.Role
	systemRoles []model.Role
	assignments []roleAssignment
}

var _ interfaces.RolesRepository = &rolesRepository{}

func newRolesRepository() *rolesRepository {
	return &rolesRepository{}
}

func (r *rolesRepository) AssignableCourseRoles(ctx context.Context) ([]model.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Role, len(r.courseRoles))
	copy(out, r.courseRoles)
	return out, nil
}

func (r *rolesRepository) AssignableSystemRoles(ctx context.Context) ([]model.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Role, len(r.systemRoles))
	copy(out, r.systemRoles)
	return out, nil
}

func (r *rolesRepository) hasAssignment(roleID types.RoleID, userID types.UserID, courseID types.CourseID) bool {
	for _, a := range r.assignments {
		if a.roleID == roleID && a.userID == userID && a.courseID == courseID {
			return true
		}
	}
	return false
}

func (r *rolesRepository) AssignSystem(ctx context.Context, roleID types.RoleID, userID types.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hasAssignment(roleID, userID, 0) {
		return nil
	}
	r.assignments = append(r.assignments, roleAssignment{roleID: roleID, userID: userID})
	return nil
}

func (r *rolesRepository) UnassignSystem(ctx context.Context, roleID types.RoleID, userID types.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, a := range r.assignments {
		if a.roleID == roleID && a.userID == userID && a.courseID == 0 {
			r.assignments = append(r.assignments[:i], r.assignments[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *rolesRepository) HasSystemRole(ctx context.Context, userID types.UserID, roleID types.RoleID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.hasAssignment(roleID, userID, 0), nil
}

func (r *rolesRepository) AssignCourse(ctx context.Context, roleID types.RoleID, userID types.UserID, courseID types.CourseID) error {
	if courseID == 0 {
		return goerr.New("course role assignment requires a course", goerr.V("role", roleID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hasAssignment(roleID, userID, courseID) {
		return nil
	}
	r.assignments = append(r.assignments, roleAssignment{roleID: roleID, userID: userID, courseID: courseID})
	return nil
}

// SeedCourseRole registers an assignable course-scope role.
func (m *Memory) SeedCourseRole(role model.Role) {
	m.roles.mu.Lock()
	defer m.roles.mu.Unlock()

	m.roles.courseRoles = append(m.roles.courseRoles, role)
}

// SeedSystemRole registers an assignable system-scope role.
func (m *Memory) SeedSystemRole(role model.Role) {
	m.roles.mu.Lock()
	defer m.roles.mu.Unlock()

	m.roles.systemRoles = append(m.roles.systemRoles, role)
}

// HasCourseRole reports a course-context role assignment, for tests.
func (m *Memory) HasCourseRole(userID types.UserID, roleID types.RoleID, courseID types.CourseID) bool {
	m.roles.mu.RLock()
	defer m.roles.mu.RUnlock()

	return m.roles.hasAssignment(roleID, userID, courseID)
}
