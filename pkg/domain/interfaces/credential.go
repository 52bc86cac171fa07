package interfaces

import (
	"github.com/edulab-tools/usersync/pkg/domain/types"
)

// AuthPlugin describes one authentication capability resolved from the
// per-batch registry.
type AuthPlugin interface {
	Name() types.AuthKind

	// IsInternal reports whether the directory stores the credential
	// itself. External plugins never have a cached password.
	IsInternal() bool

	// AllowsLogin reports whether accounts with this kind can log in at
	// all. Switching to a non-login kind forces session invalidation.
	AllowsLogin() bool
}

// CredentialPolicy is the credential collaborator: auth-plugin resolution,
// password strength evaluation and hashing.
type CredentialPolicy interface {
	// Resolve returns the plugin for an auth kind, or an error for an
	// unknown kind.
	Resolve(kind types.AuthKind) (AuthPlugin, error)

	// CheckPassword returns nil when the password satisfies the strength
	// policy, or an error describing the violation.
	CheckPassword(password string) error

	// Hash returns the stored form of a password.
	Hash(password string) (string, error)

	// Matches reports whether the stored form corresponds to the password.
	// Re-supplying an unchanged password must not count as a change.
	Matches(hash, password string) bool
}
