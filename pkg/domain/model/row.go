package model

// Row is one CSV record after normalization: trimmed values keyed by
// recognized field name, custom profile attributes, parsed directives, and
// the source line number for error reporting.
type Row struct {
	Line       int
	Values     map[string]string
	Profile    map[string]string
	Directives DirectiveSet
}

// NewRow returns an empty row for the given source line.
func NewRow(line int) *Row {
	return &Row{
		Line:    line,
		Values:  make(map[string]string),
		Profile: make(map[string]string),
	}
}

// Get returns the value of a standard field or custom profile field. Absent
// fields read as empty, so callers can uniformly test emptiness.
func (r *Row) Get(name string) string {
	if IsProfileField(name) {
		return r.Profile[name]
	}
	return r.Values[name]
}

// Has reports whether the field was present in the CSV record, regardless of
// the value being empty.
func (r *Row) Has(name string) bool {
	if IsProfileField(name) {
		_, ok := r.Profile[name]
		return ok
	}
	_, ok := r.Values[name]
	return ok
}

// Set assigns a field value, routing profile-prefixed names into the
// profile attribute map.
func (r *Row) Set(name, value string) {
	if IsProfileField(name) {
		r.Profile[name] = value
		return
	}
	r.Values[name] = value
}

// Username returns the row's username, defaulting to empty.
func (r *Row) Username() string {
	return r.Values[FieldUsername]
}
