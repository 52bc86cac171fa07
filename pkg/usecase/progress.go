package usecase

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
)

// trackerColumns is the fixed report layout, one cell per concern. Cells
// keep separate messages per severity so an error never hides the value it
// relates to.
var trackerColumns = []string{
	"status", "line", "id", model.FieldUsername,
	model.FieldFirstname, model.FieldLastname, model.FieldEmail,
	model.FieldPassword, model.FieldAuth, "enrolments",
	model.FieldSuspended, model.FieldDeleted,
}

var (
	infoColor    = color.New(color.FgCyan)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

// Tracker renders per-row progress as the batch runs and collects the error
// messages for the end-of-run report.
type Tracker struct {
	w        io.Writer
	colorize bool

	cells  map[string]map[types.Severity][]string
	open   bool
	errors []string
}

// NewTracker writes the progress report to w.
func NewTracker(w io.Writer) *Tracker {
	return &Tracker{w: w, colorize: true}
}

// NoColor disables ANSI colors in the report.
func (t *Tracker) NoColor() *Tracker {
	t.colorize = false
	return t
}

// Track records a message in a column. With merge set, the message replaces
// any previous one at the same severity instead of being appended. Error and
// warning messages are also collected for the final report.
func (t *Tracker) Track(column, message string, sev types.Severity, merge bool) {
	if !t.open {
		t.cells = make(map[string]map[types.Severity][]string)
		t.open = true
	}
	if !knownColumn(column) {
		// Unknown columns indicate a programming mistake, not row data.
		column = "status"
	}
	cell, ok := t.cells[column]
	if !ok {
		cell = make(map[types.Severity][]string)
		t.cells[column] = cell
	}
	if merge && len(cell[sev]) > 0 {
		cell[sev][len(cell[sev])-1] = message
	} else {
		cell[sev] = append(cell[sev], message)
	}
	if sev == types.SeverityError || sev == types.SeverityWarning {
		t.errors = append(t.errors, fmt.Sprintf("%s: %s", column, message))
	}
}

// Flush prints the buffered row and resets for the next one. Rows with no
// tracked cells print nothing.
func (t *Tracker) Flush() {
	if !t.open {
		return
	}
	var parts []string
	for _, col := range trackerColumns {
		cell, ok := t.cells[col]
		if !ok {
			continue
		}
		for _, sev := range []types.Severity{types.SeverityNormal, types.SeverityInfo, types.SeverityWarning, types.SeverityError} {
			for _, msg := range cell[sev] {
				if col == model.FieldPassword && sev == types.SeverityNormal {
					msg = "********"
				}
				parts = append(parts, fmt.Sprintf("%s=%s", col, t.paint(sev, msg)))
			}
		}
	}
	if len(parts) > 0 {
		fmt.Fprintln(t.w, strings.Join(parts, "  "))
	}
	t.cells = nil
	t.open = false
}

func (t *Tracker) paint(sev types.Severity, msg string) string {
	if !t.colorize {
		return msg
	}
	switch sev {
	case types.SeverityInfo:
		return infoColor.Sprint(msg)
	case types.SeverityWarning:
		return warningColor.Sprint(msg)
	case types.SeverityError:
		return errorColor.Sprint(msg)
	default:
		return msg
	}
}

// Errors returns every warning and error message tracked so far.
func (t *Tracker) Errors() []string {
	return t.errors
}

func knownColumn(name string) bool {
	for _, c := range trackerColumns {
		if c == name {
			return true
		}
	}
	return false
}
