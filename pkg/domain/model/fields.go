package model

import "strings"

// Standard field names recognized in CSV headers. Control fields steer the
// reconciliation itself and never take part in the plain field merge.
const (
	FieldUsername    = "username"
	FieldFirstname   = "firstname"
	FieldLastname    = "lastname"
	FieldEmail       = "email"
	FieldCity        = "city"
	FieldCountry     = "country"
	FieldLang        = "lang"
	FieldTimezone    = "timezone"
	FieldIDNumber    = "idnumber"
	FieldInstitution = "institution"
	FieldDepartment  = "department"
	FieldPhone1      = "phone1"
	FieldPhone2      = "phone2"
	FieldAddress     = "address"
	FieldURL         = "url"
	FieldDescription = "description"
	FieldInterests   = "interests"

	FieldPassword    = "password"
	FieldAuth        = "auth"
	FieldOldUsername = "oldusername"
	FieldSuspended   = "suspended"
	FieldDeleted     = "deleted"
	FieldRealm       = "realm"
)

// ProfileFieldPrefix marks extensible custom profile fields in CSV headers
// and policy defaults, e.g. "profile_field_team".
const ProfileFieldPrefix = "profile_field_"

// StandardFields lists every recognized non-directive column name.
func StandardFields() []string {
	return []string{
		FieldUsername, FieldFirstname, FieldLastname, FieldEmail,
		FieldCity, FieldCountry, FieldLang, FieldTimezone,
		FieldIDNumber, FieldInstitution, FieldDepartment,
		FieldPhone1, FieldPhone2, FieldAddress, FieldURL,
		FieldDescription, FieldInterests,
		FieldPassword, FieldAuth, FieldOldUsername,
		FieldSuspended, FieldDeleted, FieldRealm,
	}
}

// MergeableFields lists the fields the engine's merge loop may overwrite on
// an existing account. Username, password, auth and suspended are handled by
// dedicated steps; the remaining control fields are not account state.
func MergeableFields() []string {
	return []string{
		FieldFirstname, FieldLastname, FieldEmail,
		FieldCity, FieldCountry, FieldLang, FieldTimezone,
		FieldIDNumber, FieldInstitution, FieldDepartment,
		FieldPhone1, FieldPhone2, FieldAddress, FieldURL,
		FieldDescription, FieldInterests,
	}
}

// IsProfileField reports whether the column names a custom profile field.
func IsProfileField(name string) bool {
	return strings.HasPrefix(name, ProfileFieldPrefix)
}

// ReservedUsername is the built-in anonymous account. Rows addressing it are
// rejected outright.
const ReservedUsername = "guest"

// CleanUsername canonicalizes a username: lowercased, with every character
// outside [a-z0-9@._-] removed. The operation is idempotent.
func CleanUsername(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') ||
			r == '@' || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
