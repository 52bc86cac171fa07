package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/edulab-tools/usersync/pkg/domain/interfaces"
)

// Firestore is the Firestore-backed repository. Each sub-repository maps one
// concern onto its own collection set; membership records use deterministic
// document ids so repeated additions stay idempotent.
type Firestore struct {
	client     *firestore.Client
	users      *usersRepository
	courses    *coursesRepository
	roles      *rolesRepository
	cohorts    *cohortsRepository
	groups     *groupsRepository
	enrolments *enrolmentsRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix namespaces every collection, mainly for tests that
// share one database.
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.users.collectionPrefix = prefix
		f.courses.collectionPrefix = prefix
		f.roles.collectionPrefix = prefix
		f.cohorts.collectionPrefix = prefix
		f.groups.collectionPrefix = prefix
		f.enrolments.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:     client,
		users:      newUsersRepository(client),
		courses:    newCoursesRepository(client),
		roles:      newRolesRepository(client),
		cohorts:    newCohortsRepository(client),
		groups:     newGroupsRepository(client),
		enrolments: newEnrolmentsRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Users() interfaces.UsersRepository {
	return f.users
}

func (f *Firestore) Courses() interfaces.CoursesRepository {
	return f.courses
}

func (f *Firestore) Roles() interfaces.RolesRepository {
	return f.roles
}

func (f *Firestore) Cohorts() interfaces.CohortsRepository {
	return f.cohorts
}

func (f *Firestore) Groups() interfaces.GroupsRepository {
	return f.groups
}

func (f *Firestore) Enrolments() interfaces.EnrolmentsRepository {
	return f.enrolments
}

// Close releases the underlying client.
func (f *Firestore) Close() error {
	return f.client.Close()
}

const countersCollection = "counters"

// allocateID issues the next numeric id for a record kind through a counter
// document transaction.
func allocateID(ctx context.Context, client *firestore.Client, prefix, kind string) (int64, error) {
	name := countersCollection
	if prefix != "" {
		name = prefix + "_" + countersCollection
	}
	ref := client.Collection(name).Doc(kind)

	var next int64
	err := client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		switch {
		case err == nil:
			v, err := doc.DataAt("next")
			if err != nil {
				return err
			}
			next = v.(int64)
		case status.Code(err) == codes.NotFound:
			// Only an absent counter starts the sequence; any other read
			// failure must not reissue ids already handed out.
			next = 1
		default:
			return err
		}
		return tx.Set(ref, map[string]interface{}{"next": next + 1})
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to allocate id", goerr.V("kind", kind))
	}
	return next, nil
}
