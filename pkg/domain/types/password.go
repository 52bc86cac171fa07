package types

import "fmt"

// PasswordResetPolicy controls which processed accounts are marked for a
// forced password change on next login.
type PasswordResetPolicy string

const (
	// PasswordResetNone never forces a change.
	PasswordResetNone PasswordResetPolicy = "none"
	// PasswordResetWeak forces a change only when the supplied password
	// fails the strength policy.
	PasswordResetWeak PasswordResetPolicy = "weak"
	// PasswordResetAll forces a change for every processed password.
	PasswordResetAll PasswordResetPolicy = "all"
)

// IsValid checks if the policy is known.
func (p PasswordResetPolicy) IsValid() bool {
	switch p {
	case PasswordResetNone, PasswordResetWeak, PasswordResetAll:
		return true
	default:
		return false
	}
}

// ForcesReset decides whether a password with the given weakness should be
// reset on next login.
func (p PasswordResetPolicy) ForcesReset(weak bool) bool {
	return p == PasswordResetAll || (p == PasswordResetWeak && weak)
}

// String returns the string representation of the policy.
func (p PasswordResetPolicy) String() string {
	return string(p)
}

// ParsePasswordResetPolicy parses a string into a PasswordResetPolicy.
func ParsePasswordResetPolicy(v string) (PasswordResetPolicy, error) {
	p := PasswordResetPolicy(v)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid password reset policy: %s", v)
	}
	return p, nil
}

// PasswordNotCached is the sentinel stored instead of a hash for accounts
// whose credentials live in an external authentication system.
const PasswordNotCached = "not cached"

// PasswordToGenerate is the sentinel marking a new internal-auth account
// whose password will be generated lazily by a follow-up job.
const PasswordToGenerate = "to be generated"
