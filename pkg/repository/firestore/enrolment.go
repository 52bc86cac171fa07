package firestore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/edulab-tools/usersync/pkg/domain/interfaces"
	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
)

const (
	coursesCollection        = "courses"
	enrolInstancesCollection = "enrol_instances"
	courseRolesCollection    = "course_roles"
	systemRolesCollection    = "system_roles"
	roleAssignsCollection    = "role_assignments"
	cohortsCollection        = "cohorts"
	cohortMembersCollection  = "cohort_members"
	groupsCollection         = "groups"
	groupMembersCollection   = "group_members"
	enrolmentsCollection     = "enrolments"
)

func prefixed(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

// --- courses ---

type coursesRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.CoursesRepository = &coursesRepository{}

func newCoursesRepository(client *firestore.Client) *coursesRepository {
	return &coursesRepository{client: client}
}

type courseDoc struct {
	ID        int64  `firestore:"id"`
	Shortname string `firestore:"shortname"`
	Site      bool   `firestore:"site"`
}

type enrolInstanceDoc struct {
	ID              int64 `firestore:"id"`
	CourseID        int64 `firestore:"course_id"`
	DefaultRoleID   int64 `firestore:"default_role_id"`
	DefaultPeriodSec int64 `firestore:"default_period_sec"`
}

func (r *coursesRepository) FindByShortname(ctx context.Context, shortname string) (*model.Course, error) {
	iter := r.client.Collection(prefixed(r.collectionPrefix, coursesCollection)).
		Where("shortname", "==", shortname).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query course", goerr.V("shortname", shortname))
	}

	var d courseDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode course document")
	}
	return &model.Course{ID: types.CourseID(d.ID), Shortname: d.Shortname, Site: d.Site}, nil
}

func (r *coursesRepository) ManualInstance(ctx context.Context, courseID types.CourseID) (*model.EnrolInstance, error) {
	iter := r.client.Collection(prefixed(r.collectionPrefix, enrolInstancesCollection)).
		Where("course_id", "==", int64(courseID)).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query enrol instance", goerr.V("course", courseID))
	}

	var d enrolInstanceDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode enrol instance document")
	}
	return &model.EnrolInstance{
		ID:            types.EnrolInstanceID(d.ID),
		CourseID:      types.CourseID(d.CourseID),
		DefaultRoleID: types.RoleID(d.DefaultRoleID),
		DefaultPeriod: time.Duration(d.DefaultPeriodSec) * time.Second,
	}, nil
}

// --- roles ---

type rolesRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.RolesRepository = &rolesRepository{}

func newRolesRepository(client *firestore.Client) *rolesRepository {
	return &rolesRepository{client: client}
}

type roleDoc struct {
	ID   int64  `firestore:"id"`
	Name string `firestore:"name"`
}

func (r *rolesRepository) listRoles(ctx context.Context, collection string) ([]model.Role, error) {
	iter := r.client.Collection(prefixed(r.collectionPrefix, collection)).Documents(ctx)
	defer iter.Stop()

	var roles []model.Role
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list roles", goerr.V("collection", collection))
		}
		var d roleDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode role document")
		}
		roles = append(roles, model.Role{ID: types.RoleID(d.ID), Name: d.Name})
	}
	return roles, nil
}

func (r *rolesRepository) AssignableCourseRoles(ctx context.Context) ([]model.Role, error) {
	return r.listRoles(ctx, courseRolesCollection)
}

func (r *rolesRepository) AssignableSystemRoles(ctx context.Context) ([]model.Role, error) {
	return r.listRoles(ctx, systemRolesCollection)
}

func assignmentID(roleID types.RoleID, userID types.UserID, courseID types.CourseID) string {
	return fmt.Sprintf("%d_%d_%d", roleID, userID, courseID)
}

type roleAssignDoc struct {
	RoleID   int64 `firestore:"role_id"`
	UserID   int64 `firestore:"user_id"`
	CourseID int64 `firestore:"course_id"`
}

func (r *rolesRepository) assignments() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, roleAssignsCollection))
}

func (r *rolesRepository) AssignSystem(ctx context.Context, roleID types.RoleID, userID types.UserID) error {
	_, err := r.assignments().Doc(assignmentID(roleID, userID, 0)).Set(ctx, &roleAssignDoc{
		RoleID: int64(roleID), UserID: int64(userID),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to assign system role",
			goerr.V("role", roleID), goerr.V("user", userID))
	}
	return nil
}

func (r *rolesRepository) UnassignSystem(ctx context.Context, roleID types.RoleID, userID types.UserID) error {
	_, err := r.assignments().Doc(assignmentID(roleID, userID, 0)).Delete(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return goerr.Wrap(err, "failed to unassign system role",
			goerr.V("role", roleID), goerr.V("user", userID))
	}
	return nil
}

func (r *rolesRepository) HasSystemRole(ctx context.Context, userID types.UserID, roleID types.RoleID) (bool, error) {
	_, err := r.assignments().Doc(assignmentID(roleID, userID, 0)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to check system role",
			goerr.V("role", roleID), goerr.V("user", userID))
	}
	return true, nil
}

func (r *rolesRepository) AssignCourse(ctx context.Context, roleID types.RoleID, userID types.UserID, courseID types.CourseID) error {
	_, err := r.assignments().Doc(assignmentID(roleID, userID, courseID)).Set(ctx, &roleAssignDoc{
		RoleID: int64(roleID), UserID: int64(userID), CourseID: int64(courseID),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to assign course role",
			goerr.V("role", roleID), goerr.V("user", userID), goerr.V("course", courseID))
	}
	return nil
}

// --- cohorts ---

type cohortsRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.CohortsRepository = &cohortsRepository{}

func newCohortsRepository(client *firestore.Client) *cohortsRepository {
	return &cohortsRepository{client: client}
}

type cohortDoc struct {
	ID        int64  `firestore:"id"`
	Key       string `firestore:"key"`
	Name      string `firestore:"name"`
	Component string `firestore:"component"`
}

func (r *cohortsRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, cohortsCollection))
}

func fromCohortDoc(d *cohortDoc) *model.Cohort {
	return &model.Cohort{
		ID:        types.CohortID(d.ID),
		Key:       d.Key,
		Name:      d.Name,
		Component: d.Component,
	}
}

func (r *cohortsRepository) GetByID(ctx context.Context, id types.CohortID) (*model.Cohort, error) {
	doc, err := r.collection().Doc(strconv.FormatInt(int64(id), 10)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get cohort", goerr.V("id", id))
	}
	var d cohortDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode cohort document")
	}
	return fromCohortDoc(&d), nil
}

func (r *cohortsRepository) FindByKey(ctx context.Context, key string) (*model.Cohort, error) {
	iter := r.collection().Where("key", "==", key).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query cohort", goerr.V("key", key))
	}
	var d cohortDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode cohort document")
	}
	return fromCohortDoc(&d), nil
}

func (r *cohortsRepository) Create(ctx context.Context, c *model.Cohort) (types.CohortID, error) {
	id, err := allocateID(ctx, r.client, r.collectionPrefix, "cohorts")
	if err != nil {
		return 0, err
	}
	doc := &cohortDoc{ID: id, Key: c.Key, Name: c.Name, Component: c.Component}
	if _, err := r.collection().Doc(strconv.FormatInt(id, 10)).Create(ctx, doc); err != nil {
		return 0, goerr.Wrap(err, "failed to create cohort", goerr.V("key", c.Key))
	}
	return types.CohortID(id), nil
}

func memberID(a, b int64) string {
	return fmt.Sprintf("%d_%d", a, b)
}

func (r *cohortsRepository) members() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, cohortMembersCollection))
}

func (r *cohortsRepository) HasMember(ctx context.Context, cohortID types.CohortID, userID types.UserID) (bool, error) {
	_, err := r.members().Doc(memberID(int64(cohortID), int64(userID))).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to check cohort member",
			goerr.V("cohort", cohortID), goerr.V("user", userID))
	}
	return true, nil
}

func (r *cohortsRepository) AddMember(ctx context.Context, cohortID types.CohortID, userID types.UserID) error {
	_, err := r.members().Doc(memberID(int64(cohortID), int64(userID))).Set(ctx, map[string]interface{}{
		"cohort_id": int64(cohortID),
		"user_id":   int64(userID),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to add cohort member",
			goerr.V("cohort", cohortID), goerr.V("user", userID))
	}
	return nil
}

// --- groups ---

type groupsRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.GroupsRepository = &groupsRepository{}

func newGroupsRepository(client *firestore.Client) *groupsRepository {
	return &groupsRepository{client: client}
}

type groupDoc struct {
	ID       int64  `firestore:"id"`
	CourseID int64  `firestore:"course_id"`
	Name     string `firestore:"name"`
}

func (r *groupsRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, groupsCollection))
}

func (r *groupsRepository) ListByCourse(ctx context.Context, courseID types.CourseID) ([]model.Group, error) {
	iter := r.collection().Where("course_id", "==", int64(courseID)).Documents(ctx)
	defer iter.Stop()

	var groups []model.Group
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list groups", goerr.V("course", courseID))
		}
		var d groupDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode group document")
		}
		groups = append(groups, model.Group{
			ID: types.GroupID(d.ID), CourseID: types.CourseID(d.CourseID), Name: d.Name,
		})
	}
	return groups, nil
}

func (r *groupsRepository) Create(ctx context.Context, g *model.Group) (types.GroupID, error) {
	existing, err := r.ListByCourse(ctx, g.CourseID)
	if err != nil {
		return 0, err
	}
	for _, e := range existing {
		if e.Name == g.Name {
			return 0, goerr.New("group name already exists in course",
				goerr.V("name", g.Name), goerr.V("course", g.CourseID))
		}
	}

	id, err := allocateID(ctx, r.client, r.collectionPrefix, "groups")
	if err != nil {
		return 0, err
	}
	doc := &groupDoc{ID: id, CourseID: int64(g.CourseID), Name: g.Name}
	if _, err := r.collection().Doc(strconv.FormatInt(id, 10)).Create(ctx, doc); err != nil {
		return 0, goerr.Wrap(err, "failed to create group", goerr.V("name", g.Name))
	}
	return types.GroupID(id), nil
}

func (r *groupsRepository) members() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, groupMembersCollection))
}

func (r *groupsRepository) AddMember(ctx context.Context, groupID types.GroupID, userID types.UserID) (bool, error) {
	ref := r.members().Doc(memberID(int64(groupID), int64(userID)))
	if _, err := ref.Get(ctx); err == nil {
		return false, nil
	} else if status.Code(err) != codes.NotFound {
		return false, goerr.Wrap(err, "failed to check group member",
			goerr.V("group", groupID), goerr.V("user", userID))
	}

	_, err := ref.Set(ctx, map[string]interface{}{
		"group_id": int64(groupID),
		"user_id":  int64(userID),
	})
	if err != nil {
		return false, goerr.Wrap(err, "failed to add group member",
			goerr.V("group", groupID), goerr.V("user", userID))
	}
	return true, nil
}

// --- enrolments ---

type enrolmentsRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.EnrolmentsRepository = &enrolmentsRepository{}

func newEnrolmentsRepository(client *firestore.Client) *enrolmentsRepository {
	return &enrolmentsRepository{client: client}
}

type enrolmentDoc struct {
	InstanceID int64     `firestore:"instance_id"`
	CourseID   int64     `firestore:"course_id"`
	UserID     int64     `firestore:"user_id"`
	RoleID     int64     `firestore:"role_id"`
	Start      time.Time `firestore:"start"`
	End        time.Time `firestore:"end"`
	Status     int       `firestore:"status"`
}

func (r *enrolmentsRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, enrolmentsCollection))
}

func (r *enrolmentsRepository) Enrol(ctx context.Context, e *model.Enrolment) error {
	doc := &enrolmentDoc{
		InstanceID: int64(e.InstanceID),
		CourseID:   int64(e.CourseID),
		UserID:     int64(e.UserID),
		RoleID:     int64(e.RoleID),
		Start:      e.Start,
		End:        e.End,
		Status:     int(e.Status),
	}
	_, err := r.collection().Doc(memberID(int64(e.InstanceID), int64(e.UserID))).Set(ctx, doc)
	if err != nil {
		return goerr.Wrap(err, "failed to enrol user",
			goerr.V("instance", e.InstanceID), goerr.V("user", e.UserID))
	}
	return nil
}

func (r *enrolmentsRepository) IsEnrolled(ctx context.Context, courseID types.CourseID, userID types.UserID) (bool, error) {
	iter := r.collection().
		Where("course_id", "==", int64(courseID)).
		Where("user_id", "==", int64(userID)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to check enrolment",
			goerr.V("course", courseID), goerr.V("user", userID))
	}
	return true, nil
}
