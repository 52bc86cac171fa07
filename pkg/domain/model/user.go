package model

import (
	"time"

	"github.com/edulab-tools/usersync/pkg/domain/types"
)

// User is one directory account. Usernames are unique per (username, realm)
// pair; email uniqueness is a policy decision, not a structural one.
type User struct {
	ID        types.UserID
	Username  string
	Firstname string
	Lastname  string
	Email     string

	City        string
	Country     string
	Lang        string
	Timezone    string
	IDNumber    string
	Institution string
	Department  string
	Phone1      string
	Phone2      string
	Address     string
	URL         string
	Description string
	Interests   string

	Auth      types.AuthKind
	Suspended bool
	// Password holds the stored hash, or one of the sentinels in
	// types (not cached / to be generated).
	Password string
	Realm    types.RealmID
	Admin    bool

	// Profile holds custom profile attributes keyed by their full
	// "profile_field_*" name.
	Profile map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	c := *u
	if u.Profile != nil {
		c.Profile = make(map[string]string, len(u.Profile))
		for k, v := range u.Profile {
			c.Profile[k] = v
		}
	}
	return &c
}

// Field returns the named field's value as a string. Custom profile fields
// resolve through the Profile map. The second return reports whether the
// name is addressable on a user at all.
func (u *User) Field(name string) (string, bool) {
	if IsProfileField(name) {
		return u.Profile[name], true
	}
	switch name {
	case FieldUsername:
		return u.Username, true
	case FieldFirstname:
		return u.Firstname, true
	case FieldLastname:
		return u.Lastname, true
	case FieldEmail:
		return u.Email, true
	case FieldCity:
		return u.City, true
	case FieldCountry:
		return u.Country, true
	case FieldLang:
		return u.Lang, true
	case FieldTimezone:
		return u.Timezone, true
	case FieldIDNumber:
		return u.IDNumber, true
	case FieldInstitution:
		return u.Institution, true
	case FieldDepartment:
		return u.Department, true
	case FieldPhone1:
		return u.Phone1, true
	case FieldPhone2:
		return u.Phone2, true
	case FieldAddress:
		return u.Address, true
	case FieldURL:
		return u.URL, true
	case FieldDescription:
		return u.Description, true
	case FieldInterests:
		return u.Interests, true
	default:
		return "", false
	}
}

// SetField assigns the named field. It reports whether the name was
// addressable. Control fields (auth, suspended, password, realm) are state
// machine concerns and are deliberately not settable through here.
func (u *User) SetField(name, value string) bool {
	if IsProfileField(name) {
		if u.Profile == nil {
			u.Profile = make(map[string]string)
		}
		u.Profile[name] = value
		return true
	}
	switch name {
	case FieldUsername:
		u.Username = value
	case FieldFirstname:
		u.Firstname = value
	case FieldLastname:
		u.Lastname = value
	case FieldEmail:
		u.Email = value
	case FieldCity:
		u.City = value
	case FieldCountry:
		u.Country = value
	case FieldLang:
		u.Lang = value
	case FieldTimezone:
		u.Timezone = value
	case FieldIDNumber:
		u.IDNumber = value
	case FieldInstitution:
		u.Institution = value
	case FieldDepartment:
		u.Department = value
	case FieldPhone1:
		u.Phone1 = value
	case FieldPhone2:
		u.Phone2 = value
	case FieldAddress:
		u.Address = value
	case FieldURL:
		u.URL = value
	case FieldDescription:
		u.Description = value
	case FieldInterests:
		u.Interests = value
	default:
		return false
	}
	return true
}
