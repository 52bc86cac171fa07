package interfaces

import (
	"context"

	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
)

// Preference keys set on accounts by the reconciliation engine.
const (
	// PrefForcePasswordChange forces a password change on next login.
	PrefForcePasswordChange = "auth_forcepasswordchange"
	// PrefCreatePassword marks an account for lazy password generation.
	PrefCreatePassword = "create_password"
)

// UsersRepository is the directory port: find, create, update, rename and
// delete account records plus the credential-state side channels.
type UsersRepository interface {
	// FindByUsername looks up an account by its (username, realm) pair.
	// Returns nil, nil when no account matches.
	FindByUsername(ctx context.Context, username string, realm types.RealmID) (*model.User, error)

	// Get retrieves an account by id.
	Get(ctx context.Context, id types.UserID) (*model.User, error)

	// Create persists a new account and returns its id.
	Create(ctx context.Context, u *model.User) (types.UserID, error)

	// Update persists changes to an existing account.
	Update(ctx context.Context, u *model.User) error

	// Delete removes an account.
	Delete(ctx context.Context, u *model.User) error

	// Rename changes only the username of an account record.
	Rename(ctx context.Context, id types.UserID, username string) error

	// EmailExists reports whether any account uses the email address,
	// compared case-insensitively.
	EmailExists(ctx context.Context, email string) (bool, error)

	// EmailExistsExact reports whether any account uses exactly this email.
	EmailExistsExact(ctx context.Context, email string) (bool, error)

	// InvalidateSessions terminates all active sessions of an account.
	InvalidateSessions(ctx context.Context, id types.UserID) error

	// SetPreference stores a per-account preference key.
	SetPreference(ctx context.Context, id types.UserID, key, value string) error

	// UnsetPreference removes a per-account preference key, if present.
	UnsetPreference(ctx context.Context, id types.UserID, key string) error
}
