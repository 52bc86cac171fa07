package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/edulab-tools/usersync/pkg/domain/types"
)

// PasswordRules is the strength policy applied to supplied passwords.
type PasswordRules struct {
	MinLength      int
	MinDigits      int
	MinLower       int
	MinUpper       int
	MinNonAlphaNum int
}

// Policy is the immutable per-batch reconciliation configuration.
type Policy struct {
	Mode           types.Mode
	UpdateStrategy types.UpdateStrategy

	CreatePasswords      bool
	UpdatePasswords      bool
	AllowRenames         bool
	AllowDeletes         bool
	AllowSuspends        bool
	NoEmailDuplicates    bool
	StandardizeUsernames bool
	PasswordReset        types.PasswordResetPolicy
	Bulk                 types.BulkSelection

	// UsernameTemplate derives a username from row fields when the row
	// leaves it empty, e.g. "%1f.%l".
	UsernameTemplate string
	// DefaultDomain is the suffix substituted when a row carries an
	// invalid or missing email, producing username@domain.
	DefaultDomain string
	// Defaults maps field names to value templates filled in for fields
	// the row does not provide.
	Defaults map[string]string
	// LegacyRoles maps the numeric type{i} values 1..3 onto role names.
	LegacyRoles map[int]string
	// SupportedLangs is the locale whitelist for the lang field.
	SupportedLangs []string
	// SupportedAuths lists the officially supported authentication kinds;
	// others are applied with a warning.
	SupportedAuths []string

	// CanManageCohorts permits creating missing cohorts on demand.
	CanManageCohorts bool
	// RemoteProtectSuspended preserves the suspended flag of remote-realm
	// accounts during the field write-back from the existing record.
	RemoteProtectSuspended bool

	PasswordRules PasswordRules

	// Throttle is an optional pause between rows; a deliberate rate limit,
	// not a correctness mechanism.
	Throttle time.Duration
}

// Validate checks the policy for internally consistent settings.
func (p *Policy) Validate() error {
	if !p.Mode.IsValid() {
		return goerr.New("invalid operation mode", goerr.V("mode", p.Mode))
	}
	if !p.UpdateStrategy.IsValid() {
		return goerr.New("invalid update strategy", goerr.V("strategy", p.UpdateStrategy))
	}
	if !p.PasswordReset.IsValid() {
		return goerr.New("invalid password reset policy", goerr.V("reset", p.PasswordReset))
	}
	if !p.Bulk.IsValid() {
		return goerr.New("invalid bulk selection", goerr.V("bulk", p.Bulk))
	}
	for field := range p.Defaults {
		if !isKnownDefaultField(field) {
			return goerr.New("unknown field in defaults", goerr.V("field", field))
		}
	}
	for legacy := range p.LegacyRoles {
		if legacy < 1 || legacy > 3 {
			return goerr.New("legacy enrolment type out of range", goerr.V("type", legacy))
		}
	}
	if p.Throttle < 0 {
		return goerr.New("negative throttle", goerr.V("throttle", p.Throttle))
	}
	return nil
}

func isKnownDefaultField(name string) bool {
	if IsProfileField(name) {
		return true
	}
	for _, f := range StandardFields() {
		if f == name {
			return true
		}
	}
	return false
}

// CreatesPasswords reports whether missing passwords of new internal-auth
// accounts are marked for lazy generation. Update-only batches never create
// accounts, so the knob is inert there.
func (p *Policy) CreatesPasswords() bool {
	return p.CreatePasswords && p.Mode != types.ModeUpdate
}

// UpdatesPasswords reports whether supplied passwords overwrite stored ones
// for existing internal-auth accounts. It only applies to updating modes and
// overwriting strategies.
func (p *Policy) UpdatesPasswords() bool {
	if !p.UpdatePasswords || !p.Mode.UpdatesUsers() {
		return false
	}
	return p.UpdateStrategy == types.UpdateFileOverride || p.UpdateStrategy == types.UpdateAllOverride
}

// RenamesAllowed reports whether oldusername directives are honored.
// Creation-only modes cannot rename.
func (p *Policy) RenamesAllowed() bool {
	return p.AllowRenames && p.Mode.UpdatesUsers()
}

// DeletesAllowed reports whether deleted=1 directives are honored.
// Creation-only modes cannot delete.
func (p *Policy) DeletesAllowed() bool {
	return p.AllowDeletes && p.Mode.UpdatesUsers()
}

// EmailFallback builds the substitute address used when a row carries an
// invalid or missing email. A placeholder domain keeps the substitution
// total even when no default domain is configured.
func (p *Policy) EmailFallback(username string) string {
	domain := p.DefaultDomain
	if domain == "" {
		domain = "not.set"
	}
	return username + "@" + domain
}

// LangSupported checks the lang value against the configured locale set. An
// empty whitelist accepts everything.
func (p *Policy) LangSupported(lang string) bool {
	if len(p.SupportedLangs) == 0 {
		return true
	}
	for _, l := range p.SupportedLangs {
		if l == lang {
			return true
		}
	}
	return false
}

// AuthSupported checks an auth kind against the supported set. An empty set
// accepts everything.
func (p *Policy) AuthSupported(kind types.AuthKind) bool {
	if len(p.SupportedAuths) == 0 {
		return true
	}
	for _, a := range p.SupportedAuths {
		if types.AuthKind(a) == kind {
			return true
		}
	}
	return false
}
