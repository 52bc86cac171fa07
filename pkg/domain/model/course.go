package model

import (
	"time"

	"github.com/edulab-tools/usersync/pkg/domain/types"
)

// Course is the enrolment target referenced by course{i} directives.
type Course struct {
	ID        types.CourseID
	Shortname string
	// Site marks the designated site-wide course. It has no enrolments;
	// role{i} against it is a role assignment in its context instead.
	Site bool
}

// Role is a role definition. The same role name may exist in both the
// course-scope and system-scope namespaces; the caches keep them apart.
type Role struct {
	ID   types.RoleID
	Name string
}

// Cohort is a site-wide grouping referenced by cohort{i} directives.
type Cohort struct {
	ID   types.CohortID
	Key  string
	Name string
	// Component names the external source synchronizing this cohort.
	// Non-empty means membership must not be mutated here.
	Component string
}

// External reports whether the cohort is synchronized from an external
// source.
func (c *Cohort) External() bool {
	return c.Component != ""
}

// Group is a named group within one course.
type Group struct {
	ID       types.GroupID
	CourseID types.CourseID
	Name     string
}

// EnrolInstance is a per-course manual enrolment mechanism with its default
// role and default enrolment duration.
type EnrolInstance struct {
	ID            types.EnrolInstanceID
	CourseID      types.CourseID
	DefaultRoleID types.RoleID
	// DefaultPeriod is the configured enrolment duration; zero means open
	// ended.
	DefaultPeriod time.Duration
}

// Enrolment is one user's membership in a course through an enrol instance.
type Enrolment struct {
	InstanceID types.EnrolInstanceID
	CourseID   types.CourseID
	UserID     types.UserID
	RoleID     types.RoleID
	Start      time.Time
	End        time.Time
	Status     types.EnrolStatus
}
