package usecase_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/edulab-tools/usersync/pkg/domain/interfaces"
	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
	"github.com/edulab-tools/usersync/pkg/repository/memory"
	"github.com/edulab-tools/usersync/pkg/service/credential"
	"github.com/edulab-tools/usersync/pkg/usecase"
)

func basePolicy() *model.Policy {
	return &model.Policy{
		Mode:                   types.ModeAddUpdate,
		UpdateStrategy:         types.UpdateFileOverride,
		AllowSuspends:          true,
		RemoteProtectSuspended: true,
		StandardizeUsernames:   true,
		UpdatePasswords:        true,
		PasswordReset:          types.PasswordResetNone,
		Bulk:                   types.BulkNone,
		DefaultDomain:          "example.edu",
		LegacyRoles:            map[int]string{1: "student", 2: "teacher", 3: "editingteacher"},
	}
}

func newEngine(t *testing.T, policy *model.Policy) (*usecase.UseCases, *memory.Memory) {
	t.Helper()
	repo := memory.New()
	uc := usecase.New(repo, credential.New(policy.PasswordRules), policy,
		usecase.WithClock(func() time.Time {
			return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
		}),
	)
	return uc, repo
}

func runCSV(t *testing.T, uc *usecase.UseCases, content string) *model.Summary {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.csv")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()

	sum, err := uc.Upload(context.Background(), &usecase.UploadInput{
		FilePath:  path,
		Delimiter: "comma",
		Out:       io.Discard,
		NoColor:   true,
	})
	gt.NoError(t, err).Required()
	return sum
}

func seedUser(t *testing.T, repo *memory.Memory, u *model.User) types.UserID {
	t.Helper()
	if u.Auth == "" {
		u.Auth = types.AuthManual
	}
	id, err := repo.Users().Create(context.Background(), u)
	gt.NoError(t, err).Required()
	return id
}

func findUser(t *testing.T, repo *memory.Memory, username string) *model.User {
	t.Helper()
	u, err := repo.Users().FindByUsername(context.Background(), username, types.RealmLocal)
	gt.NoError(t, err).Required()
	return u
}

func TestUpload_CreateAccounts(t *testing.T) {
	uc, repo := newEngine(t, basePolicy())

	sum := runCSV(t, uc, "username,firstname,lastname,email,password\n"+
		"a.lee,Ada,Lee,ada@example.edu,Secret123!\n"+
		"b.kim,Bora,Kim,bora@example.edu,Secret456!\n")

	gt.Value(t, sum.Created).Equal(2)
	gt.Value(t, sum.Errors).Equal(0)

	u := findUser(t, repo, "a.lee")
	gt.Value(t, u).NotNil().Required()
	gt.Value(t, u.Firstname).Equal("Ada")
	gt.Value(t, u.Email).Equal("ada@example.edu")
	gt.Value(t, u.Auth).Equal(types.AuthManual)
	// Stored form must be a hash, never the cleartext.
	gt.Value(t, u.Password).NotEqual("Secret123!")
	gt.Bool(t, u.Suspended).False()
}

func TestUpload_SecondRunIsUpToDate(t *testing.T) {
	uc, _ := newEngine(t, basePolicy())
	csv := "username,firstname,lastname,email,password\n" +
		"a.lee,Ada,Lee,ada@example.edu,Secret123!\n"

	first := runCSV(t, uc, csv)
	gt.Value(t, first.Created).Equal(1)

	second := runCSV(t, uc, csv)
	gt.Value(t, second.Created).Equal(0)
	gt.Value(t, second.Updated).Equal(0)
	gt.Value(t, second.UpToDate).Equal(1)
}

func TestUpload_AddOnlySkipsExisting(t *testing.T) {
	policy := basePolicy()
	policy.Mode = types.ModeAddNew
	policy.CreatePasswords = true
	uc, repo := newEngine(t, policy)
	seedUser(t, repo, &model.User{Username: "a.lee", Email: "old@example.edu"})

	sum := runCSV(t, uc, "username,firstname,lastname,email\n"+
		"a.lee,Ada,Lee,new@example.edu\n")

	gt.Value(t, sum.Skipped).Equal(1)
	gt.Value(t, sum.Created).Equal(0)
	gt.Value(t, findUser(t, repo, "a.lee").Email).Equal("old@example.edu")
}

func TestUpload_AddWithIncrementNeverTouchesExisting(t *testing.T) {
	policy := basePolicy()
	policy.Mode = types.ModeAddInc
	policy.CreatePasswords = true
	uc, repo := newEngine(t, policy)
	seedUser(t, repo, &model.User{Username: "a.lee", Email: "old@example.edu"})

	sum := runCSV(t, uc, "username,firstname,lastname,email\n"+
		"a.lee,Ada,Lee,new@example.edu\n")

	gt.Value(t, sum.Created).Equal(1)
	gt.Value(t, findUser(t, repo, "a.lee").Email).Equal("old@example.edu")

	fresh := findUser(t, repo, "a.lee2")
	gt.Value(t, fresh).NotNil().Required()
	gt.Value(t, fresh.Email).Equal("new@example.edu")
}

func TestUpload_UpdateOnlySkipsMissing(t *testing.T) {
	policy := basePolicy()
	policy.Mode = types.ModeUpdate
	uc, repo := newEngine(t, policy)

	sum := runCSV(t, uc, "username,firstname,lastname\n"+
		"nobody,No,Body\n")

	gt.Value(t, sum.Skipped).Equal(1)
	gt.Value(t, repo.UserCount()).Equal(0)
}

func TestUpload_UsernameTemplate(t *testing.T) {
	policy := basePolicy()
	policy.Mode = types.ModeAddNew
	policy.CreatePasswords = true
	policy.UsernameTemplate = "%1f.%l"
	uc, repo := newEngine(t, policy)

	sum := runCSV(t, uc, "firstname,lastname,email\n"+
		"Ada,Lee,ada@example.edu\n")

	gt.Value(t, sum.Created).Equal(1)
	gt.Value(t, findUser(t, repo, "a.lee")).NotNil()
}

func TestUpload_GuestIsRejected(t *testing.T) {
	uc, _ := newEngine(t, basePolicy())

	sum := runCSV(t, uc, "username,firstname,lastname\n"+
		"guest,Gue,St\n")

	gt.Value(t, sum.Errors).Equal(1)
}

func TestUpload_ReportCarriesErrorReasons(t *testing.T) {
	policy := basePolicy()
	policy.CreatePasswords = true
	uc, _ := newEngine(t, policy)
	path := filepath.Join(t.TempDir(), "users.csv")
	gt.NoError(t, os.WriteFile(path, []byte("username,firstname,lastname,course1\n"+
		"guest,Gue,St,\n"+
		"a.lee,Ada,Lee,NOPE\n"), 0o600)).Required()

	var out bytes.Buffer
	sum, err := uc.Upload(context.Background(), &usecase.UploadInput{
		FilePath:  path,
		Delimiter: "comma",
		Out:       &out,
		NoColor:   true,
	})
	gt.NoError(t, err).Required()

	gt.Value(t, sum.Errors).Equal(1)
	gt.Bool(t, strings.Contains(out.String(), model.ErrReservedUsername.Error())).True()
	gt.Bool(t, strings.Contains(out.String(), model.ErrUnknownCourse.Error())).True()
}

func TestUpload_EmailCaseOnlyCollision(t *testing.T) {
	uc, repo := newEngine(t, basePolicy())
	seedUser(t, repo, &model.User{Username: "a.lee", Firstname: "Ada", Lastname: "Lee", Email: "Ada@Example.edu"})

	sum := runCSV(t, uc, "username,email\n"+
		"a.lee,ADA@EXAMPLE.EDU\n")

	gt.Value(t, sum.Updated).Equal(1)
	gt.Value(t, findUser(t, repo, "a.lee").Email).Equal("ada@example.edu")
}

func TestUpload_InvalidEmailFallsBackToDefaultDomain(t *testing.T) {
	t.Run("update", func(t *testing.T) {
		uc, repo := newEngine(t, basePolicy())
		seedUser(t, repo, &model.User{Username: "a.lee", Email: "ada@example.edu"})

		sum := runCSV(t, uc, "username,email\n"+
			"a.lee,not-an-email\n")

		gt.Value(t, sum.Updated).Equal(1)
		gt.Value(t, sum.Errors).Equal(0)
		gt.Value(t, findUser(t, repo, "a.lee").Email).Equal("a.lee@example.edu")
	})

	t.Run("create", func(t *testing.T) {
		uc, repo := newEngine(t, basePolicy())

		sum := runCSV(t, uc, "username,firstname,lastname,email,password\n"+
			"b.kim,Bora,Kim,broken,Secret123!\n")

		gt.Value(t, sum.Created).Equal(1)
		gt.Value(t, findUser(t, repo, "b.kim").Email).Equal("b.kim@example.edu")
	})

	t.Run("create without configured domain", func(t *testing.T) {
		policy := basePolicy()
		policy.DefaultDomain = ""
		uc, repo := newEngine(t, policy)

		sum := runCSV(t, uc, "username,firstname,lastname,password\n"+
			"c.cho,Chul,Cho,Secret123!\n")

		gt.Value(t, sum.Created).Equal(1)
		gt.Value(t, findUser(t, repo, "c.cho").Email).Equal("c.cho@not.set")
	})
}

func TestUpload_DuplicateEmailRejected(t *testing.T) {
	policy := basePolicy()
	policy.NoEmailDuplicates = true
	uc, repo := newEngine(t, policy)
	seedUser(t, repo, &model.User{Username: "a.lee", Email: "shared@example.edu"})
	seedUser(t, repo, &model.User{Username: "b.kim", Email: "bora@example.edu"})

	sum := runCSV(t, uc, "username,email\n"+
		"b.kim,shared@example.edu\n")

	gt.Value(t, sum.Errors).Equal(1)
	gt.Value(t, findUser(t, repo, "b.kim").Email).Equal("bora@example.edu")
}

func TestUpload_Rename(t *testing.T) {
	policy := basePolicy()
	policy.AllowRenames = true
	uc, repo := newEngine(t, policy)
	seedUser(t, repo, &model.User{Username: "a.lee", Firstname: "Ada", Lastname: "Lee", Email: "ada@example.edu"})

	sum := runCSV(t, uc, "username,oldusername,firstname\n"+
		"ada.lee,a.lee,Ada\n")

	gt.Value(t, sum.Renamed).Equal(1)
	gt.Value(t, findUser(t, repo, "a.lee")).Nil()
	gt.Value(t, findUser(t, repo, "ada.lee")).NotNil()
}

func TestUpload_DeleteMissingIsError(t *testing.T) {
	policy := basePolicy()
	policy.AllowDeletes = true
	uc, repo := newEngine(t, policy)
	seedUser(t, repo, &model.User{Username: "a.lee", Email: "ada@example.edu"})

	sum := runCSV(t, uc, "username,deleted\n"+
		"a.lee,1\n"+
		"nobody,1\n")

	gt.Value(t, sum.Deleted).Equal(1)
	gt.Value(t, sum.DeleteErrors).Equal(1)
	gt.Value(t, findUser(t, repo, "a.lee")).Nil()
}

func TestUpload_SuspendInvalidatesSessions(t *testing.T) {
	uc, repo := newEngine(t, basePolicy())
	id := seedUser(t, repo, &model.User{Username: "a.lee", Email: "ada@example.edu"})

	sum := runCSV(t, uc, "username,suspended\n"+
		"a.lee,1\n")

	gt.Value(t, sum.Updated).Equal(1)
	gt.Bool(t, findUser(t, repo, "a.lee").Suspended).True()
	gt.Value(t, repo.SessionsInvalidated(id)).Equal(1)
}

func TestUpload_NoLoginAuthLogsOut(t *testing.T) {
	uc, repo := newEngine(t, basePolicy())
	id := seedUser(t, repo, &model.User{Username: "a.lee", Email: "ada@example.edu"})

	sum := runCSV(t, uc, "username,auth\n"+
		"a.lee,nologin\n")

	gt.Value(t, sum.Updated).Equal(1)
	gt.Value(t, findUser(t, repo, "a.lee").Auth).Equal(types.AuthNoLogin)
	gt.Value(t, repo.SessionsInvalidated(id)).Equal(1)
}

func TestUpload_ExternalAuthClearsPassword(t *testing.T) {
	uc, repo := newEngine(t, basePolicy())
	id := seedUser(t, repo, &model.User{Username: "a.lee", Email: "ada@example.edu", Password: "some-hash"})
	gt.NoError(t, repo.Users().SetPreference(context.Background(), id, interfaces.PrefForcePasswordChange, "1"))

	sum := runCSV(t, uc, "username,auth\n"+
		"a.lee,ldap\n")

	gt.Value(t, sum.Updated).Equal(1)
	gt.Value(t, findUser(t, repo, "a.lee").Password).Equal(types.PasswordNotCached)
	_, ok := repo.Preference(id, interfaces.PrefForcePasswordChange)
	gt.Bool(t, ok).False()
}

func TestUpload_WeakPasswordForcesReset(t *testing.T) {
	policy := basePolicy()
	policy.Mode = types.ModeAddNew
	policy.PasswordReset = types.PasswordResetWeak
	policy.PasswordRules = model.PasswordRules{MinLength: 10, MinDigits: 1}
	uc, repo := newEngine(t, policy)

	sum := runCSV(t, uc, "username,firstname,lastname,email,password\n"+
		"a.lee,Ada,Lee,ada@example.edu,short\n")

	gt.Value(t, sum.Created).Equal(1)
	gt.Value(t, sum.WeakPasswords).Equal(1)

	id := findUser(t, repo, "a.lee").ID
	v, ok := repo.Preference(id, interfaces.PrefForcePasswordChange)
	gt.Bool(t, ok).True()
	gt.Value(t, v).Equal("1")
}

func TestUpload_MissingPasswordGeneratesLater(t *testing.T) {
	policy := basePolicy()
	policy.Mode = types.ModeAddNew
	policy.CreatePasswords = true
	uc, repo := newEngine(t, policy)

	sum := runCSV(t, uc, "username,firstname,lastname,email\n"+
		"a.lee,Ada,Lee,ada@example.edu\n")

	gt.Value(t, sum.Created).Equal(1)
	u := findUser(t, repo, "a.lee")
	gt.Value(t, u.Password).Equal(types.PasswordToGenerate)
	_, ok := repo.Preference(u.ID, interfaces.PrefCreatePassword)
	gt.Bool(t, ok).True()
}

func TestUpload_DefaultsFillMissingFields(t *testing.T) {
	policy := basePolicy()
	policy.Mode = types.ModeAddNew
	policy.CreatePasswords = true
	policy.Defaults = map[string]string{model.FieldCity: "Springfield"}
	uc, repo := newEngine(t, policy)

	runCSV(t, uc, "username,firstname,lastname,email\n"+
		"a.lee,Ada,Lee,ada@example.edu\n")

	gt.Value(t, findUser(t, repo, "a.lee").City).Equal("Springfield")
}

func TestUpload_FileOverrideSkipsDefaultValues(t *testing.T) {
	policy := basePolicy()
	policy.Defaults = map[string]string{model.FieldCity: "Springfield"}
	uc, repo := newEngine(t, policy)
	seedUser(t, repo, &model.User{Username: "a.lee", Email: "ada@example.edu", City: "Shelbyville"})

	sum := runCSV(t, uc, "username,firstname\n"+
		"a.lee,Ada\n")

	gt.Value(t, sum.Updated).Equal(1)
	// The city came from a default template, not the file, so the
	// file-override strategy must leave the stored value alone.
	gt.Value(t, findUser(t, repo, "a.lee").City).Equal("Shelbyville")
}

func TestUpload_Enrolments(t *testing.T) {
	policy := basePolicy()
	policy.Mode = types.ModeAddNew
	policy.CreatePasswords = true
	uc, repo := newEngine(t, policy)

	repo.SeedCourseRole(model.Role{ID: 10, Name: "student"})
	repo.SeedCourseRole(model.Role{ID: 11, Name: "teacher"})
	courseID := repo.SeedCourse(model.Course{Shortname: "CS101"})
	repo.SeedManualInstance(model.EnrolInstance{CourseID: courseID, DefaultRoleID: 10})

	t.Run("enrol with explicit role and group", func(t *testing.T) {
		sum := runCSV(t, uc, "username,firstname,lastname,email,course1,role1,group1\n"+
			"a.lee,Ada,Lee,ada@example.edu,CS101,teacher,blue\n")

		gt.Value(t, sum.Created).Equal(1)
		gt.Value(t, sum.Errors).Equal(0)

		id := findUser(t, repo, "a.lee").ID
		enrolled, err := repo.Enrolments().IsEnrolled(context.Background(), courseID, id)
		gt.NoError(t, err)
		gt.Bool(t, enrolled).True()

		all := repo.AllEnrolments()
		gt.Array(t, all).Length(1)
		gt.Value(t, all[0].RoleID).Equal(types.RoleID(11))
	})

	t.Run("legacy type resolves through role map", func(t *testing.T) {
		sum := runCSV(t, uc, "username,firstname,lastname,email,course1,type1\n"+
			"b.kim,Bora,Kim,bora@example.edu,CS101,1\n")

		gt.Value(t, sum.Created).Equal(1)
		id := findUser(t, repo, "b.kim").ID
		enrolled, err := repo.Enrolments().IsEnrolled(context.Background(), courseID, id)
		gt.NoError(t, err)
		gt.Bool(t, enrolled).True()
	})

	t.Run("enrolperiod sets end from midnight", func(t *testing.T) {
		sum := runCSV(t, uc, "username,firstname,lastname,email,course1,enrolperiod1\n"+
			"c.cho,Chul,Cho,chul@example.edu,CS101,5\n")
		gt.Value(t, sum.Created).Equal(1)

		id := findUser(t, repo, "c.cho").ID
		for _, e := range repo.AllEnrolments() {
			if e.UserID != id {
				continue
			}
			start := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
			gt.Bool(t, e.Start.Equal(start)).True()
			gt.Bool(t, e.End.Equal(start.Add(5*24*time.Hour))).True()
		}
	})

	t.Run("unknown course reported without changing outcome", func(t *testing.T) {
		sum := runCSV(t, uc, "username,firstname,lastname,email,course1\n"+
			"d.doe,Dana,Doe,dana@example.edu,NOPE\n")

		gt.Value(t, sum.Created).Equal(1)
		gt.Value(t, sum.Errors).Equal(0)
	})
}

func TestUpload_GroupRequiresEnrolment(t *testing.T) {
	policy := basePolicy()
	policy.Mode = types.ModeAddNew
	policy.CreatePasswords = true
	uc, repo := newEngine(t, policy)

	// A course with no manual enrolment instance: the user cannot be
	// enrolled, so the group directive must fail without affecting the
	// row outcome.
	repo.SeedCourse(model.Course{Shortname: "CS102"})

	sum := runCSV(t, uc, "username,firstname,lastname,email,course1,group1\n"+
		"a.lee,Ada,Lee,ada@example.edu,CS102,blue\n")

	gt.Value(t, sum.Created).Equal(1)
	gt.Value(t, sum.Errors).Equal(0)
	gt.Array(t, repo.AllEnrolments()).Length(0)
}

func TestUpload_Cohorts(t *testing.T) {
	policy := basePolicy()
	policy.Mode = types.ModeAddNew
	policy.CreatePasswords = true
	policy.CanManageCohorts = true
	uc, repo := newEngine(t, policy)

	staff := repo.SeedCohort(model.Cohort{Key: "staff", Name: "Staff"})
	repo.SeedCohort(model.Cohort{Key: "synced", Name: "Synced", Component: "ldap_sync"})

	sum := runCSV(t, uc, "username,firstname,lastname,email,cohort1,cohort2\n"+
		"a.lee,Ada,Lee,ada@example.edu,staff,synced\n"+
		"b.kim,Bora,Kim,bora@example.edu,fresh,\n")

	gt.Value(t, sum.Created).Equal(2)
	gt.Value(t, repo.CohortMemberCount(staff)).Equal(1)

	// The externally synced cohort must stay untouched.
	synced, err := repo.Cohorts().FindByKey(context.Background(), "synced")
	gt.NoError(t, err).Required()
	gt.Value(t, repo.CohortMemberCount(synced.ID)).Equal(0)

	// An unknown cohort key is created on demand when allowed.
	fresh, err := repo.Cohorts().FindByKey(context.Background(), "fresh")
	gt.NoError(t, err).Required()
	gt.Value(t, fresh).NotNil().Required()
	gt.Value(t, repo.CohortMemberCount(fresh.ID)).Equal(1)
}

func TestUpload_SystemRoles(t *testing.T) {
	uc, repo := newEngine(t, basePolicy())
	repo.SeedSystemRole(model.Role{ID: 20, Name: "manager"})
	id := seedUser(t, repo, &model.User{Username: "a.lee", Email: "ada@example.edu"})

	runCSV(t, uc, "username,sysrole1\n"+
		"a.lee,manager\n")
	held, err := repo.Roles().HasSystemRole(context.Background(), id, 20)
	gt.NoError(t, err)
	gt.Bool(t, held).True()

	runCSV(t, uc, "username,sysrole1\n"+
		"a.lee,-manager\n")
	held, err = repo.Roles().HasSystemRole(context.Background(), id, 20)
	gt.NoError(t, err)
	gt.Bool(t, held).False()
}

func TestUpload_SiteCourseAssignsRole(t *testing.T) {
	uc, repo := newEngine(t, basePolicy())
	repo.SeedCourseRole(model.Role{ID: 30, Name: "frontpagehelper"})
	siteID := repo.SeedCourse(model.Course{Shortname: "site", Site: true})
	id := seedUser(t, repo, &model.User{Username: "a.lee", Email: "ada@example.edu"})

	runCSV(t, uc, "username,course1,role1\n"+
		"a.lee,site,frontpagehelper\n")

	gt.Bool(t, repo.HasCourseRole(id, 30, siteID)).True()
	gt.Array(t, repo.AllEnrolments()).Length(0)
}

func TestUpload_RemoteRealm(t *testing.T) {
	policy := basePolicy()
	uc, repo := newEngine(t, policy)
	seedUser(t, repo, &model.User{
		Username: "a.lee", Realm: "partner", Email: "ada@partner.edu",
		Firstname: "Ada", Suspended: true,
	})

	t.Run("fields are written back from the stored record", func(t *testing.T) {
		sum := runCSV(t, uc, "username,realm,email,suspended\n"+
			"a.lee,partner,hijack@example.edu,0\n")

		gt.Value(t, sum.UpToDate).Equal(1)
		u, err := repo.Users().FindByUsername(context.Background(), "a.lee", "partner")
		gt.NoError(t, err).Required()
		gt.Value(t, u.Email).Equal("ada@partner.edu")
		gt.Bool(t, u.Suspended).True()
	})

	t.Run("suspend flows through when unprotected", func(t *testing.T) {
		policy.RemoteProtectSuspended = false
		sum := runCSV(t, uc, "username,realm,suspended\n"+
			"a.lee,partner,0\n")

		gt.Value(t, sum.Updated).Equal(1)
		u, err := repo.Users().FindByUsername(context.Background(), "a.lee", "partner")
		gt.NoError(t, err).Required()
		gt.Bool(t, u.Suspended).False()
	})

	t.Run("remote accounts cannot be created", func(t *testing.T) {
		sum := runCSV(t, uc, "username,realm,firstname,lastname\n"+
			"new.one,partner,New,One\n")
		gt.Value(t, sum.Errors).Equal(1)
	})
}
