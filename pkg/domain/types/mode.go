package types

import "fmt"

// Mode selects how rows are matched against existing accounts.
type Mode string

const (
	// ModeAddNew creates accounts only; rows matching an existing username
	// are skipped with a warning.
	ModeAddNew Mode = "add-only"
	// ModeAddInc creates accounts only, disambiguating colliding usernames
	// with a numeric suffix. It never updates an existing account.
	ModeAddInc Mode = "add-with-increment"
	// ModeAddUpdate creates missing accounts and updates existing ones.
	ModeAddUpdate Mode = "add-or-update"
	// ModeUpdate updates existing accounts only; rows without a match are
	// skipped with a warning.
	ModeUpdate Mode = "update-only"
)

// AllModes returns all valid operation modes.
func AllModes() []Mode {
	return []Mode{ModeAddNew, ModeAddInc, ModeAddUpdate, ModeUpdate}
}

// IsValid checks if the mode is a known operation mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModeAddNew, ModeAddInc, ModeAddUpdate, ModeUpdate:
		return true
	default:
		return false
	}
}

// CreatesUsers reports whether this mode may create new accounts.
func (m Mode) CreatesUsers() bool {
	return m != ModeUpdate
}

// UpdatesUsers reports whether this mode may update existing accounts.
func (m Mode) UpdatesUsers() bool {
	return m == ModeAddUpdate || m == ModeUpdate
}

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// ParseMode parses a string into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("invalid operation mode: %s", s)
	}
	return m, nil
}
