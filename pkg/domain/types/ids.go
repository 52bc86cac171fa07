package types

// UserID identifies a directory account.
type UserID int64

// CourseID identifies a course.
type CourseID int64

// RoleID identifies a role definition.
type RoleID int64

// CohortID identifies a cohort.
type CohortID int64

// GroupID identifies a group within a course.
type GroupID int64

// EnrolInstanceID identifies a manual enrolment instance in a course.
type EnrolInstanceID int64

// RealmID is a namespace partition for usernames. Accounts in the local
// realm are fully managed here; remote-realm accounts belong to a federated
// host and are never created, renamed or deleted by this tool.
type RealmID string

// RealmLocal is the realm of directly managed accounts.
const RealmLocal RealmID = "local"

// IsLocal reports whether the realm is the directly managed one.
// An empty realm is treated as local so CSV rows without a realm column
// behave like plain local accounts.
func (r RealmID) IsLocal() bool {
	return r == "" || r == RealmLocal
}

// Normalize returns the realm with empty mapped to RealmLocal.
func (r RealmID) Normalize() RealmID {
	if r == "" {
		return RealmLocal
	}
	return r
}

// AuthKind names an authentication plugin (e.g. "manual", "ldap", "nologin").
type AuthKind string

// AuthManual is the default internal authentication kind for new accounts.
const AuthManual AuthKind = "manual"

// AuthNoLogin disables login entirely; switching an account to it forces a
// session invalidation.
const AuthNoLogin AuthKind = "nologin"

// String returns the plugin name.
func (a AuthKind) String() string {
	return string(a)
}
