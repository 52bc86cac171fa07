package interfaces

import (
	"context"

	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
)

// CoursesRepository resolves courses and their manual enrolment mechanism.
type CoursesRepository interface {
	// FindByShortname returns nil, nil when no course matches.
	FindByShortname(ctx context.Context, shortname string) (*model.Course, error)

	// ManualInstance returns the course's manual enrolment instance, or
	// nil, nil when the course has none.
	ManualInstance(ctx context.Context, courseID types.CourseID) (*model.EnrolInstance, error)
}

// RolesRepository lists assignable roles and mutates role assignments. The
// course-scope and system-scope role namespaces are distinct even when role
// names coincide.
type RolesRepository interface {
	AssignableCourseRoles(ctx context.Context) ([]model.Role, error)
	AssignableSystemRoles(ctx context.Context) ([]model.Role, error)

	// AssignSystem grants a system-scope role. Assigning an already-held
	// role is a no-op.
	AssignSystem(ctx context.Context, roleID types.RoleID, userID types.UserID) error

	// UnassignSystem revokes a system-scope role. Revoking an unassigned
	// role is a no-op.
	UnassignSystem(ctx context.Context, roleID types.RoleID, userID types.UserID) error

	// HasSystemRole reports whether the user holds the system-scope role.
	HasSystemRole(ctx context.Context, userID types.UserID, roleID types.RoleID) (bool, error)

	// AssignCourse grants a role in a course's context. Used for the
	// site-wide course where enrolments do not exist.
	AssignCourse(ctx context.Context, roleID types.RoleID, userID types.UserID, courseID types.CourseID) error
}

// CohortsRepository resolves cohorts and mutates membership.
type CohortsRepository interface {
	// GetByID returns nil, nil when no cohort has the id.
	GetByID(ctx context.Context, id types.CohortID) (*model.Cohort, error)

	// FindByKey returns nil, nil when no cohort has the key.
	FindByKey(ctx context.Context, key string) (*model.Cohort, error)

	// Create persists a new cohort and returns its id.
	Create(ctx context.Context, c *model.Cohort) (types.CohortID, error)

	// HasMember reports whether the user already belongs to the cohort.
	HasMember(ctx context.Context, cohortID types.CohortID, userID types.UserID) (bool, error)

	// AddMember adds the user to the cohort. Adding an existing member is
	// a no-op.
	AddMember(ctx context.Context, cohortID types.CohortID, userID types.UserID) error
}

// GroupsRepository resolves course groups and mutates membership.
type GroupsRepository interface {
	ListByCourse(ctx context.Context, courseID types.CourseID) ([]model.Group, error)

	// Create persists a new group. Duplicate names within a course fail.
	Create(ctx context.Context, g *model.Group) (types.GroupID, error)

	// AddMember adds the user to the group, reporting whether a new
	// membership was created. Adding an existing member is a no-op with
	// added=false.
	AddMember(ctx context.Context, groupID types.GroupID, userID types.UserID) (added bool, err error)
}

// EnrolmentsRepository performs enrolment mutations and queries.
type EnrolmentsRepository interface {
	// Enrol enrols the user with role, period and status through a manual
	// enrolment instance. Re-enrolling updates the existing membership.
	Enrol(ctx context.Context, e *model.Enrolment) error

	// IsEnrolled reports whether the user is enrolled in the course by any
	// mechanism.
	IsEnrolled(ctx context.Context, courseID types.CourseID, userID types.UserID) (bool, error)
}
