package types

// EnrolStatus is the activity state of a course enrolment.
type EnrolStatus int

const (
	// EnrolActive means the enrolment is in effect.
	EnrolActive EnrolStatus = 0
	// EnrolSuspended means the enrolment exists but is inactive.
	EnrolSuspended EnrolStatus = 1
	// EnrolUnspecified leaves the status to the enrolment mechanism.
	EnrolUnspecified EnrolStatus = -1
)

// ParseEnrolStatus maps the CSV enrolstatus{i} value onto a status. The
// wire values are the numeric forms "0" and "1"; empty means unspecified.
// Anything else is unspecified with ok=false so callers can emit a
// diagnostic while the enrolment still proceeds.
func ParseEnrolStatus(v string) (EnrolStatus, bool) {
	switch v {
	case "":
		return EnrolUnspecified, true
	case "0":
		return EnrolActive, true
	case "1":
		return EnrolSuspended, true
	default:
		return EnrolUnspecified, false
	}
}
