package credential

import (
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/edulab-tools/usersync/pkg/domain/interfaces"
	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
)

// ErrUnknownAuth signals an auth kind with no registered plugin.
var ErrUnknownAuth = goerr.New("unknown authentication plugin")

// plugin is one registered authentication capability.
type plugin struct {
	name     types.AuthKind
	internal bool
	login    bool
}

func (p plugin) Name() types.AuthKind { return p.name }
func (p plugin) IsInternal() bool     { return p.internal }
func (p plugin) AllowsLogin() bool    { return p.login }

var _ interfaces.AuthPlugin = plugin{}

// Service implements the credential policy: an auth-plugin registry resolved
// once per batch, the password strength check, and bcrypt hashing.
type Service struct {
	plugins map[types.AuthKind]plugin
	rules   model.PasswordRules
}

var _ interfaces.CredentialPolicy = &Service{}

// New builds the service with the built-in plugin registry.
func New(rules model.PasswordRules) *Service {
	s := &Service{
		plugins: make(map[types.AuthKind]plugin),
		rules:   rules,
	}
	// Built-in kinds. Internal plugins store their credential in the
	// directory; nologin disables login entirely.
	s.register(types.AuthManual, true, true)
	s.register(types.AuthNoLogin, true, false)
	s.register("email", true, true)
	s.register("ldap", false, true)
	s.register("oauth2", false, true)
	s.register("shibboleth", false, true)
	s.register("webservice", false, false)
	return s
}

func (s *Service) register(name types.AuthKind, internal, login bool) {
	s.plugins[name] = plugin{name: name, internal: internal, login: login}
}

// Resolve returns the plugin registered for the kind.
func (s *Service) Resolve(kind types.AuthKind) (interfaces.AuthPlugin, error) {
	p, ok := s.plugins[kind]
	if !ok {
		return nil, goerr.Wrap(ErrUnknownAuth, "no such plugin", goerr.V("auth", kind))
	}
	return p, nil
}

// CheckPassword evaluates a password against the strength rules. A nil
// return means the password satisfies the policy.
func (s *Service) CheckPassword(password string) error {
	if len(password) < s.rules.MinLength {
		return goerr.Wrap(model.ErrWeakPassword, "too short",
			goerr.V("min_length", s.rules.MinLength))
	}

	var digits, lower, upper, special int
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r >= 'a' && r <= 'z':
			lower++
		case r >= 'A' && r <= 'Z':
			upper++
		default:
			special++
		}
	}
	if digits < s.rules.MinDigits {
		return goerr.Wrap(model.ErrWeakPassword, "not enough digits",
			goerr.V("min_digits", s.rules.MinDigits))
	}
	if lower < s.rules.MinLower {
		return goerr.Wrap(model.ErrWeakPassword, "not enough lowercase letters",
			goerr.V("min_lower", s.rules.MinLower))
	}
	if upper < s.rules.MinUpper {
		return goerr.Wrap(model.ErrWeakPassword, "not enough uppercase letters",
			goerr.V("min_upper", s.rules.MinUpper))
	}
	if special < s.rules.MinNonAlphaNum {
		return goerr.Wrap(model.ErrWeakPassword, "not enough special characters",
			goerr.V("min_special", s.rules.MinNonAlphaNum))
	}
	return nil
}

// Hash returns the bcrypt hash of a password. Bulk uploads use the minimum
// cost factor; the hash is upgraded on the user's first login.
func (s *Service) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", goerr.Wrap(err, "failed to hash password")
	}
	return string(h), nil
}

// Matches reports whether the bcrypt hash corresponds to the password.
// Sentinel values never match anything.
func (s *Service) Matches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
