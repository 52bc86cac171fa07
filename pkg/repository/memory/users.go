package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/edulab-tools/usersync/pkg/domain/interfaces"
	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
)

type usersRepository struct {
	mu          sync.RWMutex
	users       map[types.UserID]*model.User
	nextID      types.UserID
	preferences map[types.UserID]map[string]string
	invalidated map[types.UserID]int
}

var _ interfaces.UsersRepository = &usersRepository{}

func newUsersRepository() *usersRepository {
	return &usersRepository{
		users:       make(map[types.UserID]*model.User),
		nextID:      1,
		preferences: make(map[types.UserID]map[string]string),
		invalidated: make(map[types.UserID]int),
	}
}

func (r *usersRepository) FindByUsername(ctx context.Context, username string, realm types.RealmID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	realm = realm.Normalize()
	for _, u := range r.users {
		if u.Username == username && u.Realm.Normalize() == realm {
			return u.Clone(), nil
		}
	}
	return nil, nil
}

func (r *usersRepository) Get(ctx context.Context, id types.UserID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
	}
	return u.Clone(), nil
}

func (r *usersRepository) Create(ctx context.Context, u *model.User) (types.UserID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	realm := u.Realm.Normalize()
	for _, existing := range r.users {
		if existing.Username == u.Username && existing.Realm.Normalize() == realm {
			return 0, goerr.Wrap(ErrDuplicate, "username already taken",
				goerr.V("username", u.Username), goerr.V("realm", realm))
		}
	}

	now := time.Now().UTC()
	created := u.Clone()
	created.ID = r.nextID
	created.Realm = realm
	created.CreatedAt = now
	created.UpdatedAt = now
	r.nextID++

	r.users[created.ID] = created
	u.ID = created.ID
	return created.ID, nil
}

func (r *usersRepository) Update(ctx context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[u.ID]
	if !ok {
		return goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", u.ID))
	}

	updated := u.Clone()
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	r.users[u.ID] = updated
	return nil
}

func (r *usersRepository) Delete(ctx context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.ID]; !ok {
		return goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", u.ID))
	}
	delete(r.users, u.ID)
	delete(r.preferences, u.ID)
	return nil
}

func (r *usersRepository) Rename(ctx context.Context, id types.UserID, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[id]
	if !ok {
		return goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
	}
	stored.Username = username
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *usersRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lower := strings.ToLower(email)
	for _, u := range r.users {
		if strings.ToLower(u.Email) == lower {
			return true, nil
		}
	}
	return false, nil
}

func (r *usersRepository) EmailExistsExact(ctx context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *usersRepository) InvalidateSessions(ctx context.Context, id types.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.invalidated[id]++
	return nil
}

func (r *usersRepository) SetPreference(ctx context.Context, id types.UserID, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.preferences[id]; !ok {
		r.preferences[id] = make(map[string]string)
	}
	r.preferences[id][key] = value
	return nil
}

func (r *usersRepository) UnsetPreference(ctx context.Context, id types.UserID, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prefs, ok := r.preferences[id]; ok {
		delete(prefs, key)
	}
	return nil
}

// Preference exposes stored preferences for assertions in tests.
func (m *Memory) Preference(id types.UserID, key string) (string, bool) {
	m.users.mu.RLock()
	defer m.users.mu.RUnlock()

	prefs, ok := m.users.preferences[id]
	if !ok {
		return "", false
	}
	v, ok := prefs[key]
	return v, ok
}

// SessionsInvalidated reports how often an account's sessions were killed.
func (m *Memory) SessionsInvalidated(id types.UserID) int {
	m.users.mu.RLock()
	defer m.users.mu.RUnlock()

	return m.users.invalidated[id]
}

// UserCount returns the number of stored accounts.
func (m *Memory) UserCount() int {
	m.users.mu.RLock()
	defer m.users.mu.RUnlock()

	return len(m.users.users)
}
