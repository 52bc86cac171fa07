package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
	"github.com/edulab-tools/usersync/pkg/repository/memory"
)

func TestUsersRepository(t *testing.T) {
	t.Run("Create assigns sequential ids and rejects duplicates", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		id1, err := repo.Users().Create(ctx, &model.User{Username: "a.lee", Auth: types.AuthManual})
		gt.NoError(t, err).Required()
		gt.Value(t, id1).NotEqual(types.UserID(0))

		id2, err := repo.Users().Create(ctx, &model.User{Username: "b.kim", Auth: types.AuthManual})
		gt.NoError(t, err).Required()
		gt.Value(t, id2).NotEqual(id1)

		_, err = repo.Users().Create(ctx, &model.User{Username: "a.lee", Auth: types.AuthManual})
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, memory.ErrDuplicate)).True()
	})

	t.Run("same username in another realm is allowed", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		_, err := repo.Users().Create(ctx, &model.User{Username: "a.lee", Auth: types.AuthManual})
		gt.NoError(t, err).Required()
		_, err = repo.Users().Create(ctx, &model.User{Username: "a.lee", Realm: "partner", Auth: types.AuthManual})
		gt.NoError(t, err).Required()

		u, err := repo.Users().FindByUsername(ctx, "a.lee", "partner")
		gt.NoError(t, err).Required()
		gt.Value(t, u).NotNil().Required()
		gt.Value(t, u.Realm).Equal(types.RealmID("partner"))
	})

	t.Run("FindByUsername returns nil for missing account", func(t *testing.T) {
		repo := memory.New()
		u, err := repo.Users().FindByUsername(context.Background(), "nobody", types.RealmLocal)
		gt.NoError(t, err)
		gt.Value(t, u).Nil()
	})

	t.Run("mutations do not leak through returned copies", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		id, err := repo.Users().Create(ctx, &model.User{Username: "a.lee", Email: "ada@example.edu", Auth: types.AuthManual})
		gt.NoError(t, err).Required()

		u, err := repo.Users().Get(ctx, id)
		gt.NoError(t, err).Required()
		u.Email = "mutated@example.edu"

		again, err := repo.Users().Get(ctx, id)
		gt.NoError(t, err).Required()
		gt.Value(t, again.Email).Equal("ada@example.edu")
	})

	t.Run("Rename changes only the username", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		id, err := repo.Users().Create(ctx, &model.User{Username: "a.lee", Email: "ada@example.edu", Auth: types.AuthManual})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Users().Rename(ctx, id, "ada.lee"))

		u, err := repo.Users().Get(ctx, id)
		gt.NoError(t, err).Required()
		gt.Value(t, u.Username).Equal("ada.lee")
		gt.Value(t, u.Email).Equal("ada@example.edu")
	})

	t.Run("EmailExists is case-insensitive, exact is not", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		_, err := repo.Users().Create(ctx, &model.User{Username: "a.lee", Email: "Ada@Example.edu", Auth: types.AuthManual})
		gt.NoError(t, err).Required()

		loose, err := repo.Users().EmailExists(ctx, "ada@example.edu")
		gt.NoError(t, err)
		gt.Bool(t, loose).True()

		exact, err := repo.Users().EmailExistsExact(ctx, "ada@example.edu")
		gt.NoError(t, err)
		gt.Bool(t, exact).False()
	})

	t.Run("preferences can be set and unset", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		id, err := repo.Users().Create(ctx, &model.User{Username: "a.lee", Auth: types.AuthManual})
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.Users().SetPreference(ctx, id, "create_password", "1"))
		v, ok := repo.Preference(id, "create_password")
		gt.Bool(t, ok).True()
		gt.Value(t, v).Equal("1")

		gt.NoError(t, repo.Users().UnsetPreference(ctx, id, "create_password"))
		_, ok = repo.Preference(id, "create_password")
		gt.Bool(t, ok).False()
	})
}

func TestEnrolmentRepositories(t *testing.T) {
	t.Run("Enrol upserts per instance and user", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		courseID := repo.SeedCourse(model.Course{Shortname: "CS101"})
		instID := repo.SeedManualInstance(model.EnrolInstance{CourseID: courseID, DefaultRoleID: 10})

		e := &model.Enrolment{InstanceID: instID, CourseID: courseID, UserID: 1, RoleID: 10}
		gt.NoError(t, repo.Enrolments().Enrol(ctx, e))
		e.RoleID = 11
		gt.NoError(t, repo.Enrolments().Enrol(ctx, e))

		all := repo.AllEnrolments()
		gt.Array(t, all).Length(1)
		gt.Value(t, all[0].RoleID).Equal(types.RoleID(11))

		enrolled, err := repo.Enrolments().IsEnrolled(ctx, courseID, 1)
		gt.NoError(t, err)
		gt.Bool(t, enrolled).True()
	})

	t.Run("group membership reports added once", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		courseID := repo.SeedCourse(model.Course{Shortname: "CS101"})
		gid := repo.SeedGroup(model.Group{CourseID: courseID, Name: "blue"})

		added, err := repo.Groups().AddMember(ctx, gid, 1)
		gt.NoError(t, err)
		gt.Bool(t, added).True()

		added, err = repo.Groups().AddMember(ctx, gid, 1)
		gt.NoError(t, err)
		gt.Bool(t, added).False()
		gt.Value(t, repo.GroupMemberCount(gid)).Equal(1)
	})

	t.Run("duplicate group names in a course fail", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		courseID := repo.SeedCourse(model.Course{Shortname: "CS101"})
		repo.SeedGroup(model.Group{CourseID: courseID, Name: "blue"})

		_, err := repo.Groups().Create(ctx, &model.Group{CourseID: courseID, Name: "blue"})
		gt.Error(t, err)
	})

	t.Run("system role assignment is idempotent", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		repo.SeedSystemRole(model.Role{ID: 20, Name: "manager"})
		gt.NoError(t, repo.Roles().AssignSystem(ctx, 20, 1))
		gt.NoError(t, repo.Roles().AssignSystem(ctx, 20, 1))

		held, err := repo.Roles().HasSystemRole(ctx, 1, 20)
		gt.NoError(t, err)
		gt.Bool(t, held).True()

		gt.NoError(t, repo.Roles().UnassignSystem(ctx, 20, 1))
		held, err = repo.Roles().HasSystemRole(ctx, 1, 20)
		gt.NoError(t, err)
		gt.Bool(t, held).False()
	})

	t.Run("cohort membership is idempotent", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		id := repo.SeedCohort(model.Cohort{Key: "staff", Name: "Staff"})
		gt.NoError(t, repo.Cohorts().AddMember(ctx, id, 1))
		gt.NoError(t, repo.Cohorts().AddMember(ctx, id, 1))
		gt.Value(t, repo.CohortMemberCount(id)).Equal(1)

		member, err := repo.Cohorts().HasMember(ctx, id, 1)
		gt.NoError(t, err)
		gt.Bool(t, member).True()
	})
}
