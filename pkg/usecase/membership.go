package usecase

import (
	"context"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
	"github.com/edulab-tools/usersync/pkg/utils/logging"
)

// applyCohorts handles the cohort{i} directives. Failures are reported in
// the enrolments cell and never change the row's outcome.
func (uc *UseCases) applyCohorts(ctx context.Context, row *model.Row, userID types.UserID, lk *lookups, upt *Tracker) {
	for _, idx := range row.Directives.Indexes() {
		ref := row.Directives.Get(idx, model.DirectiveCohort)
		if ref == "" {
			continue
		}
		cohort, err := lk.cohort(ctx, ref, uc.policy.CanManageCohorts)
		if err != nil {
			upt.Track("enrolments", err.Error(), types.SeverityError, false)
			continue
		}
		member, err := uc.repo.Cohorts().HasMember(ctx, cohort.ID, userID)
		if err != nil {
			upt.Track("enrolments", "cohort lookup failed: "+err.Error(), types.SeverityError, false)
			continue
		}
		if member {
			continue
		}
		if err := uc.repo.Cohorts().AddMember(ctx, cohort.ID, userID); err != nil {
			upt.Track("enrolments", "could not add to cohort "+cohort.Name, types.SeverityError, false)
			continue
		}
		upt.Track("enrolments", "added to cohort "+cohort.Name, types.SeverityNormal, false)
	}
}

// applyDirectives handles the per-index sysrole, course, enrolment and
// group directives after the account itself is settled.
func (uc *UseCases) applyDirectives(ctx context.Context, row *model.Row, userID types.UserID, lk *lookups, upt *Tracker) {
	for _, idx := range row.Directives.Indexes() {
		if name := row.Directives.Get(idx, model.DirectiveSysRole); name != "" {
			uc.applySysRole(ctx, name, userID, lk, upt)
		}
		if shortname := row.Directives.Get(idx, model.DirectiveCourse); shortname != "" {
			uc.applyCourse(ctx, row, idx, shortname, userID, lk, upt)
		}
	}
}

// applySysRole assigns or, with a leading "-", unassigns a system-scope
// role.
func (uc *UseCases) applySysRole(ctx context.Context, name string, userID types.UserID, lk *lookups, upt *Tracker) {
	removing := false
	if name[0] == '-' {
		removing = true
		name = name[1:]
	}
	role, ok, err := lk.systemRole(ctx, name)
	if err != nil {
		upt.Track("enrolments", "role lookup failed: "+err.Error(), types.SeverityError, false)
		return
	}
	if !ok {
		err := goerr.Wrap(model.ErrUnknownRole, "system role "+name, goerr.V(model.RoleKey, name))
		upt.Track("enrolments", err.Error(), types.SeverityError, false)
		return
	}

	held, err := uc.repo.Roles().HasSystemRole(ctx, userID, role.ID)
	if err != nil {
		upt.Track("enrolments", "role lookup failed: "+err.Error(), types.SeverityError, false)
		return
	}
	if removing {
		if !held {
			return
		}
		if err := uc.repo.Roles().UnassignSystem(ctx, role.ID, userID); err != nil {
			upt.Track("enrolments", "could not unassign system role "+name, types.SeverityError, false)
			return
		}
		upt.Track("enrolments", "unassigned system role "+name, types.SeverityNormal, false)
		return
	}
	if held {
		return
	}
	if err := uc.repo.Roles().AssignSystem(ctx, role.ID, userID); err != nil {
		upt.Track("enrolments", "could not assign system role "+name, types.SeverityError, false)
		return
	}
	upt.Track("enrolments", "assigned system role "+name, types.SeverityNormal, false)
}

// applyCourse handles one course{i} directive with its sibling role, type,
// enrolperiod, enrolstatus and group values.
func (uc *UseCases) applyCourse(ctx context.Context, row *model.Row, idx int, shortname string, userID types.UserID, lk *lookups, upt *Tracker) {
	course, err := lk.course(ctx, shortname)
	if err != nil {
		upt.Track("enrolments", "course lookup failed: "+err.Error(), types.SeverityError, false)
		return
	}
	if course == nil {
		err := goerr.Wrap(model.ErrUnknownCourse, "course "+shortname, goerr.V(model.CourseKey, shortname))
		upt.Track("enrolments", err.Error(), types.SeverityError, false)
		return
	}

	if course.Site {
		uc.applySiteRole(ctx, row, idx, course, userID, lk, upt)
	} else {
		uc.applyEnrolment(ctx, row, idx, course, userID, lk, upt)
	}

	if groupName := row.Directives.Get(idx, model.DirectiveGroup); groupName != "" {
		uc.applyGroup(ctx, course, groupName, userID, lk, upt)
	}
}

// applySiteRole covers the site-wide course, which has no enrolments; a
// role{i} there is a plain role assignment in its context.
func (uc *UseCases) applySiteRole(ctx context.Context, row *model.Row, idx int, course *model.Course, userID types.UserID, lk *lookups, upt *Tracker) {
	roleName := row.Directives.Get(idx, model.DirectiveRole)
	if roleName == "" {
		return
	}
	role, ok, err := lk.courseRole(ctx, roleName)
	if err != nil {
		upt.Track("enrolments", "role lookup failed: "+err.Error(), types.SeverityError, false)
		return
	}
	if !ok {
		err := goerr.Wrap(model.ErrUnknownRole, "role "+roleName, goerr.V(model.RoleKey, roleName))
		upt.Track("enrolments", err.Error(), types.SeverityError, false)
		return
	}
	if err := uc.repo.Roles().AssignCourse(ctx, role.ID, userID, course.ID); err != nil {
		upt.Track("enrolments", "could not assign role in "+course.Shortname, types.SeverityError, false)
		return
	}
	upt.Track("enrolments", "assigned role "+role.Name+" in "+course.Shortname, types.SeverityNormal, false)
}

func (uc *UseCases) applyEnrolment(ctx context.Context, row *model.Row, idx int, course *model.Course, userID types.UserID, lk *lookups, upt *Tracker) {
	inst, err := lk.manualInstance(ctx, course.ID)
	if err != nil {
		upt.Track("enrolments", "enrolment lookup failed: "+err.Error(), types.SeverityError, false)
		return
	}
	if inst == nil {
		// No manual enrolment mechanism in this course. The sibling
		// group directive still runs against whatever enrolment exists.
		return
	}

	roleID, ok := uc.resolveEnrolRole(ctx, row, idx, inst, lk, upt)
	if !ok || roleID == 0 {
		return
	}

	status, known := types.ParseEnrolStatus(row.Directives.Get(idx, model.DirectiveEnrolStatus))
	if !known {
		logging.From(ctx).Debug("unknown enrolment status, leaving unspecified",
			"value", row.Directives.Get(idx, model.DirectiveEnrolStatus))
	}

	start := uc.today()
	var end time.Time
	if days := row.Directives.Get(idx, model.DirectiveEnrolPeriod); days != "" {
		if d, err := strconv.Atoi(days); err == nil && d > 0 {
			end = start.Add(time.Duration(d) * 24 * time.Hour)
		}
	} else if inst.DefaultPeriod > 0 {
		end = start.Add(inst.DefaultPeriod)
	}

	e := &model.Enrolment{
		InstanceID: inst.ID,
		CourseID:   course.ID,
		UserID:     userID,
		RoleID:     roleID,
		Start:      start,
		End:        end,
		Status:     status,
	}
	if err := uc.repo.Enrolments().Enrol(ctx, e); err != nil {
		upt.Track("enrolments", "could not enrol in "+course.Shortname, types.SeverityError, false)
		return
	}
	upt.Track("enrolments", "enrolled in "+course.Shortname, types.SeverityNormal, false)
}

// resolveEnrolRole picks the enrolment role: an explicit role{i} name wins,
// then the numeric legacy type{i}, then the instance default.
func (uc *UseCases) resolveEnrolRole(ctx context.Context, row *model.Row, idx int, inst *model.EnrolInstance, lk *lookups, upt *Tracker) (types.RoleID, bool) {
	if roleName := row.Directives.Get(idx, model.DirectiveRole); roleName != "" {
		role, ok, err := lk.courseRole(ctx, roleName)
		if err != nil {
			upt.Track("enrolments", "role lookup failed: "+err.Error(), types.SeverityError, false)
			return 0, false
		}
		if !ok {
			err := goerr.Wrap(model.ErrUnknownRole, "role "+roleName, goerr.V(model.RoleKey, roleName))
			upt.Track("enrolments", err.Error(), types.SeverityError, false)
			return 0, false
		}
		return role.ID, true
	}

	if legacy := row.Directives.Get(idx, model.DirectiveType); legacy != "" {
		t, err := strconv.Atoi(legacy)
		if err != nil || t < 1 || t > 3 {
			upt.Track("enrolments", "enrolment type must be 1, 2 or 3", types.SeverityError, false)
			return 0, false
		}
		roleName := uc.policy.LegacyRoles[t]
		if roleName == "" {
			return 0, true
		}
		role, ok, err := lk.courseRole(ctx, roleName)
		if err != nil {
			upt.Track("enrolments", "role lookup failed: "+err.Error(), types.SeverityError, false)
			return 0, false
		}
		if !ok {
			err := goerr.Wrap(model.ErrUnknownRole, "role "+roleName, goerr.V(model.RoleKey, roleName))
			upt.Track("enrolments", err.Error(), types.SeverityError, false)
			return 0, false
		}
		return role.ID, true
	}

	return inst.DefaultRoleID, true
}

func (uc *UseCases) applyGroup(ctx context.Context, course *model.Course, name string, userID types.UserID, lk *lookups, upt *Tracker) {
	enrolled, err := uc.repo.Enrolments().IsEnrolled(ctx, course.ID, userID)
	if err != nil {
		upt.Track("enrolments", "enrolment lookup failed: "+err.Error(), types.SeverityError, false)
		return
	}
	if !enrolled {
		err := goerr.Wrap(model.ErrNotEnrolled, "cannot add to group "+name,
			goerr.V(model.CourseKey, course.Shortname), goerr.V(model.GroupKey, name))
		upt.Track("enrolments", err.Error(), types.SeverityError, false)
		return
	}
	group, err := lk.group(ctx, course.ID, name)
	if err != nil {
		upt.Track("enrolments", "could not resolve group "+name, types.SeverityError, false)
		return
	}
	added, err := uc.repo.Groups().AddMember(ctx, group.ID, userID)
	if err != nil {
		upt.Track("enrolments", "could not add to group "+name, types.SeverityError, false)
		return
	}
	if added {
		upt.Track("enrolments", "added to group "+name, types.SeverityNormal, false)
	}
}
