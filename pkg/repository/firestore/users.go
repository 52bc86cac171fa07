package firestore

import (
	"context"
	"strconv"
	"strings"
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

const usersCollection = "users"

type usersRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.UsersRepository = &usersRepository{}

func newUsersRepository(client *firestore.Client) *usersRepository {
	return &usersRepository{client: client}
}

// userDoc is the Firestore persistence model. EmailLower exists because
// Firestore has no case-insensitive queries.
type userDoc struct {
	ID          int64             `firestore:"id"`
	Username    string            `firestore:"username"`
	Firstname   string            `firestore:"firstname"`
	Lastname    string            `firestore:"lastname"`
	Email       string            `firestore:"email"`
	EmailLower  string            `firestore:"email_lower"`
	City        string            `firestore:"city"`
	Country     string            `firestore:"country"`
	Lang        string            `firestore:"lang"`
	Timezone    string            `firestore:"timezone"`
	IDNumber    string            `firestore:"idnumber"`
	Institution string            `firestore:"institution"`
	Department  string            `firestore:"department"`
	Phone1      string            `firestore:"phone1"`
	Phone2      string            `firestore:"phone2"`
	Address     string            `firestore:"address"`
	URL         string            `firestore:"url"`
	Description string            `firestore:"description"`
	Interests   string            `firestore:"interests"`
	Auth        string            `firestore:"auth"`
	Suspended   bool              `firestore:"suspended"`
	Password    string            `firestore:"password"`
	Realm       string            `firestore:"realm"`
	Admin       bool              `firestore:"admin"`
	Profile     map[string]string `firestore:"profile"`
	Preferences map[string]string `firestore:"preferences"`
	CreatedAt   time.Time         `firestore:"created_at"`
	UpdatedAt   time.Time         `firestore:"updated_at"`
}

func (r *usersRepository) collection() *firestore.CollectionRef {
	if r.collectionPrefix != "" {
		return r.client.Collection(r.collectionPrefix + "_" + usersCollection)
	}
	return r.client.Collection(usersCollection)
}

func toUserDoc(u *model.User) *userDoc {
	return &userDoc{
		ID:          int64(u.ID),
		Username:    u.Username,
		Firstname:   u.Firstname,
		Lastname:    u.Lastname,
		Email:       u.Email,
		EmailLower:  strings.ToLower(u.Email),
		City:        u.City,
		Country:     u.Country,
		Lang:        u.Lang,
		Timezone:    u.Timezone,
		IDNumber:    u.IDNumber,
		Institution: u.Institution,
		Department:  u.Department,
		Phone1:      u.Phone1,
		Phone2:      u.Phone2,
		Address:     u.Address,
		URL:         u.URL,
		Description: u.Description,
		Interests:   u.Interests,
		Auth:        string(u.Auth),
		Suspended:   u.Suspended,
		Password:    u.Password,
		Realm:       string(u.Realm.Normalize()),
		Admin:       u.Admin,
		Profile:     u.Profile,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func fromUserDoc(d *userDoc) *model.User {
	return &model.User{
		ID:          types.UserID(d.ID),
		Username:    d.Username,
		Firstname:   d.Firstname,
		Lastname:    d.Lastname,
		Email:       d.Email,
		City:        d.City,
		Country:     d.Country,
		Lang:        d.Lang,
		Timezone:    d.Timezone,
		IDNumber:    d.IDNumber,
		Institution: d.Institution,
		Department:  d.Department,
		Phone1:      d.Phone1,
		Phone2:      d.Phone2,
		Address:     d.Address,
		URL:         d.URL,
		Description: d.Description,
		Interests:   d.Interests,
		Auth:        types.AuthKind(d.Auth),
		Suspended:   d.Suspended,
		Password:    d.Password,
		Realm:       types.RealmID(d.Realm),
		Admin:       d.Admin,
		Profile:     d.Profile,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func docID(id types.UserID) string {
	return strconv.FormatInt(int64(id), 10)
}

func (r *usersRepository) FindByUsername(ctx context.Context, username string, realm types.RealmID) (*model.User, error) {
	iter := r.collection().
		Where("username", "==", username).
		Where("realm", "==", string(realm.Normalize())).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query user",
			goerr.V("username", username), goerr.V("realm", realm))
	}

	var d userDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode user document")
	}
	return fromUserDoc(&d), nil
}

func (r *usersRepository) Get(ctx context.Context, id types.UserID) (*model.User, error) {
	doc, err := r.collection().Doc(docID(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(err, "user not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("id", id))
	}

	var d userDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode user document")
	}
	return fromUserDoc(&d), nil
}

func (r *usersRepository) Create(ctx context.Context, u *model.User) (types.UserID, error) {
	id, err := allocateID(ctx, r.client, r.collectionPrefix, "users")
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	created := u.Clone()
	created.ID = types.UserID(id)
	created.CreatedAt = now
	created.UpdatedAt = now

	if _, err := r.collection().Doc(docID(created.ID)).Create(ctx, toUserDoc(created)); err != nil {
		return 0, goerr.Wrap(err, "failed to create user", goerr.V("username", u.Username))
	}
	u.ID = created.ID
	return created.ID, nil
}

func (r *usersRepository) Update(ctx context.Context, u *model.User) error {
	updated := u.Clone()
	updated.UpdatedAt = time.Now().UTC()

	// Preferences live on the same document and are written through
	// SetPreference; keep them out of the full-document overwrite.
	doc := toUserDoc(updated)
	existing, err := r.collection().Doc(docID(u.ID)).Get(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to load user for update", goerr.V("id", u.ID))
	}
	var prev userDoc
	if err := existing.DataTo(&prev); err != nil {
		return goerr.Wrap(err, "failed to decode user document")
	}
	doc.Preferences = prev.Preferences
	doc.CreatedAt = prev.CreatedAt

	if _, err := r.collection().Doc(docID(u.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to update user", goerr.V("id", u.ID))
	}
	return nil
}

func (r *usersRepository) Delete(ctx context.Context, u *model.User) error {
	if _, err := r.collection().Doc(docID(u.ID)).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete user", goerr.V("id", u.ID))
	}
	return nil
}

func (r *usersRepository) Rename(ctx context.Context, id types.UserID, username string) error {
	_, err := r.collection().Doc(docID(id)).Update(ctx, []firestore.Update{
		{Path: "username", Value: username},
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	if err != nil {
		return goerr.Wrap(err, "failed to rename user",
			goerr.V("id", id), goerr.V("username", username))
	}
	return nil
}

func (r *usersRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.emailQuery(ctx, "email_lower", strings.ToLower(email))
}

func (r *usersRepository) EmailExistsExact(ctx context.Context, email string) (bool, error) {
	return r.emailQuery(ctx, "email", email)
}

func (r *usersRepository) emailQuery(ctx context.Context, field, value string) (bool, error) {
	iter := r.collection().Where(field, "==", value).Limit(1).Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to query email", goerr.V("field", field))
	}
	return true, nil
}

func (r *usersRepository) InvalidateSessions(ctx context.Context, id types.UserID) error {
	_, err := r.collection().Doc(docID(id)).Update(ctx, []firestore.Update{
		{Path: "sessions_invalidated_at", Value: time.Now().UTC()},
	})
	if err != nil {
		return goerr.Wrap(err, "failed to invalidate sessions", goerr.V("id", id))
	}
	return nil
}

func (r *usersRepository) SetPreference(ctx context.Context, id types.UserID, key, value string) error {
	_, err := r.collection().Doc(docID(id)).Update(ctx, []firestore.Update{
		{Path: "preferences." + key, Value: value},
	})
	if err != nil {
		return goerr.Wrap(err, "failed to set preference",
			goerr.V("id", id), goerr.V("key", key))
	}
	return nil
}

func (r *usersRepository) UnsetPreference(ctx context.Context, id types.UserID, key string) error {
	_, err := r.collection().Doc(docID(id)).Update(ctx, []firestore.Update{
		{Path: "preferences." + key, Value: firestore.Delete},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return goerr.Wrap(err, "failed to unset preference",
			goerr.V("id", id), goerr.V("key", key))
	}
	return nil
}
