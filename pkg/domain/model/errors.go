package model

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors shared across the reconciliation pipeline.
var (
	ErrMissingField       = goerr.New("required field is missing")
	ErrReservedUsername   = goerr.New("reserved username may not be processed")
	ErrInvalidUsername    = goerr.New("username contains invalid characters")
	ErrRemoteRealm        = goerr.New("remote-realm accounts can only be updated")
	ErrEmailDuplicate     = goerr.New("email address already in use")
	ErrUnsupportedAuth    = goerr.New("unsupported authentication plugin")
	ErrProtectedAccount   = goerr.New("administrator accounts may not be modified here")
	ErrUnknownCourse      = goerr.New("unknown course")
	ErrUnknownRole        = goerr.New("unknown role")
	ErrUnknownCohort      = goerr.New("unknown cohort")
	ErrExternalCohort     = goerr.New("externally synchronized cohorts may not be modified")
	ErrNotEnrolled        = goerr.New("user is not enrolled in the course")
	ErrWeakPassword       = goerr.New("password does not satisfy the strength policy")
)

// Context keys for error values.
const (
	UsernameKey = "username"
	LineKey     = "line"
	FieldKey    = "field"
	CourseKey   = "course"
	RoleKey     = "role"
	CohortKey   = "cohort"
	GroupKey    = "group"
)
