package usecase

import (
	"context"
	"strconv"

	"github.com/m-mizutani/goerr/v2"

	"github.com/edulab-tools/usersync/pkg/domain/interfaces"
	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
)

// lookups memoizes backend reads that repeat across rows: courses by
// shortname, manual enrolment instances, cohorts (including their failure
// reason), role namespaces and per-course group name maps. One instance
// lives for exactly one batch.
type lookups struct {
	repo interfaces.Repository

	courses map[string]*model.Course
	manual  map[types.CourseID]*model.EnrolInstance

	cohorts map[string]cohortEntry

	courseRoles       map[string]model.Role
	courseRolesLoaded bool
	systemRoles       map[string]model.Role
	systemRolesLoaded bool

	groups map[types.CourseID]map[string]model.Group
}

type cohortEntry struct {
	cohort *model.Cohort
	fail   error
}

func newLookups(repo interfaces.Repository) *lookups {
	return &lookups{
		repo:    repo,
		courses: make(map[string]*model.Course),
		manual:  make(map[types.CourseID]*model.EnrolInstance),
		cohorts: make(map[string]cohortEntry),
		groups:  make(map[types.CourseID]map[string]model.Group),
	}
}

// course resolves a course by shortname, caching misses as nil.
func (l *lookups) course(ctx context.Context, shortname string) (*model.Course, error) {
	if c, ok := l.courses[shortname]; ok {
		return c, nil
	}
	c, err := l.repo.Courses().FindByShortname(ctx, shortname)
	if err != nil {
		return nil, err
	}
	l.courses[shortname] = c
	return c, nil
}

// manualInstance resolves a course's manual enrolment instance, caching the
// absence as nil.
func (l *lookups) manualInstance(ctx context.Context, courseID types.CourseID) (*model.EnrolInstance, error) {
	if inst, ok := l.manual[courseID]; ok {
		return inst, nil
	}
	inst, err := l.repo.Courses().ManualInstance(ctx, courseID)
	if err != nil {
		return nil, err
	}
	l.manual[courseID] = inst
	return inst, nil
}

// cohort resolves a cohort reference, by numeric id or by key. A missing
// cohort is created on demand when canCreate allows it. Directive failures
// are cached so repeated references report once per distinct reason without
// re-querying; backend failures are never cached.
func (l *lookups) cohort(ctx context.Context, ref string, canCreate bool) (*model.Cohort, error) {
	if e, ok := l.cohorts[ref]; ok {
		return e.cohort, e.fail
	}

	var c *model.Cohort
	var err error
	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		c, err = l.repo.Cohorts().GetByID(ctx, types.CohortID(id))
	} else {
		c, err = l.repo.Cohorts().FindByKey(ctx, ref)
		if err == nil && c == nil && canCreate {
			created := &model.Cohort{Key: ref, Name: ref}
			var id types.CohortID
			id, err = l.repo.Cohorts().Create(ctx, created)
			if err == nil {
				created.ID = id
				c = created
			}
		}
	}
	if err != nil {
		return nil, goerr.Wrap(err, "cohort lookup failed", goerr.V(model.CohortKey, ref))
	}

	e := cohortEntry{cohort: c}
	switch {
	case c == nil:
		e.fail = goerr.Wrap(model.ErrUnknownCohort, "cohort "+ref, goerr.V(model.CohortKey, ref))
	case c.External():
		e.fail = goerr.Wrap(model.ErrExternalCohort, "cohort "+ref, goerr.V(model.CohortKey, ref))
	}
	l.cohorts[ref] = e
	return e.cohort, e.fail
}

// courseRole resolves a course-scope role by name, loading the namespace
// once on first use.
func (l *lookups) courseRole(ctx context.Context, name string) (model.Role, bool, error) {
	if !l.courseRolesLoaded {
		roles, err := l.repo.Roles().AssignableCourseRoles(ctx)
		if err != nil {
			return model.Role{}, false, err
		}
		l.courseRoles = make(map[string]model.Role, len(roles))
		for _, r := range roles {
			l.courseRoles[r.Name] = r
		}
		l.courseRolesLoaded = true
	}
	r, ok := l.courseRoles[name]
	return r, ok, nil
}

// systemRole resolves a system-scope role by name. The namespace is loaded
// separately from the course one; identical names stay distinct.
func (l *lookups) systemRole(ctx context.Context, name string) (model.Role, bool, error) {
	if !l.systemRolesLoaded {
		roles, err := l.repo.Roles().AssignableSystemRoles(ctx)
		if err != nil {
			return model.Role{}, false, err
		}
		l.systemRoles = make(map[string]model.Role, len(roles))
		for _, r := range roles {
			l.systemRoles[r.Name] = r
		}
		l.systemRolesLoaded = true
	}
	r, ok := l.systemRoles[name]
	return r, ok, nil
}

// group resolves a group by name inside a course, creating it when absent.
// The per-course name map is loaded lazily on first group directive.
func (l *lookups) group(ctx context.Context, courseID types.CourseID, name string) (model.Group, error) {
	byName, ok := l.groups[courseID]
	if !ok {
		listed, err := l.repo.Groups().ListByCourse(ctx, courseID)
		if err != nil {
			return model.Group{}, err
		}
		byName = make(map[string]model.Group, len(listed))
		for _, g := range listed {
			byName[g.Name] = g
		}
		l.groups[courseID] = byName
	}
	if g, ok := byName[name]; ok {
		return g, nil
	}

	g := model.Group{CourseID: courseID, Name: name}
	id, err := l.repo.Groups().Create(ctx, &g)
	if err != nil {
		return model.Group{}, err
	}
	g.ID = id
	byName[name] = g
	return g, nil
}
