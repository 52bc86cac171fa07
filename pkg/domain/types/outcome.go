package types

// RowOutcome is the terminal state of one processed CSV row. Every row
// reaches exactly one outcome; directive side effects (cohorts, roles,
// enrolments, groups) never change it.
type RowOutcome string

const (
	RowCreated  RowOutcome = "created"
	RowUpdated  RowOutcome = "updated"
	RowUpToDate RowOutcome = "up-to-date"
	RowRenamed  RowOutcome = "renamed"
	RowDeleted  RowOutcome = "deleted"
	RowSkipped  RowOutcome = "skipped"
	RowError    RowOutcome = "error"
)

// String returns the string representation of the outcome.
func (o RowOutcome) String() string {
	return string(o)
}

// Severity classifies a progress-log annotation.
type Severity string

const (
	SeverityNormal  Severity = "normal"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}
