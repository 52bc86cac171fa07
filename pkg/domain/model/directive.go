package model

import (
	"fmt"
	"regexp"
	"strconv"
)

// DirectiveKind tags one indexed side-effect column family.
type DirectiveKind string

const (
	DirectiveCourse      DirectiveKind = "course"
	DirectiveRole        DirectiveKind = "role"
	DirectiveGroup       DirectiveKind = "group"
	DirectiveType        DirectiveKind = "type"
	DirectiveEnrolPeriod DirectiveKind = "enrolperiod"
	DirectiveEnrolStatus DirectiveKind = "enrolstatus"
	DirectiveCohort      DirectiveKind = "cohort"
	DirectiveSysRole     DirectiveKind = "sysrole"
)

// Directive is one parsed indexed column, e.g. course2=CS101 becomes
// {Index: 2, Kind: course, Value: "CS101"}. Directives sharing an index form
// one enrolment instruction.
type Directive struct {
	Index int
	Kind  DirectiveKind
	Value string
}

var directivePattern = regexp.MustCompile(`^(course|role|group|type|enrolperiod|enrolstatus|cohort|sysrole)(\d+)$`)

// ParseDirectiveColumn recognizes an indexed directive column name. It
// reports ok=false for anything else.
func ParseDirectiveColumn(column string) (kind DirectiveKind, index int, ok bool) {
	m := directivePattern.FindStringSubmatch(column)
	if m == nil {
		return "", 0, false
	}
	idx, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return DirectiveKind(m[1]), idx, true
}

// DirectiveSet groups one row's directives by index for dispatch.
type DirectiveSet struct {
	byIndex map[int]map[DirectiveKind]string
	order   []int
}

// Add records one directive, keeping first-seen index order stable.
func (d *DirectiveSet) Add(dir Directive) {
	if d.byIndex == nil {
		d.byIndex = make(map[int]map[DirectiveKind]string)
	}
	if _, ok := d.byIndex[dir.Index]; !ok {
		d.byIndex[dir.Index] = make(map[DirectiveKind]string)
		d.order = append(d.order, dir.Index)
	}
	d.byIndex[dir.Index][dir.Kind] = dir.Value
}

// Indexes returns the directive indexes in first-seen order.
func (d *DirectiveSet) Indexes() []int {
	return d.order
}

// Get returns the value of one directive kind at an index, or "".
func (d *DirectiveSet) Get(index int, kind DirectiveKind) string {
	if vals, ok := d.byIndex[index]; ok {
		return vals[kind]
	}
	return ""
}

// Len returns the number of distinct directive indexes.
func (d *DirectiveSet) Len() int {
	return len(d.order)
}

// String renders the set for diagnostics.
func (d *DirectiveSet) String() string {
	return fmt.Sprintf("directives(%d)", len(d.order))
}
