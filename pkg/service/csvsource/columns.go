package csvsource

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/edulab-tools/usersync/pkg/domain/model"
)

// ValidateColumns checks a parsed header against the recognized field names
// and returns the positional column→field mapping. Recognized names are the
// standard fields, the indexed directive families, and the dynamically
// registered custom profile fields. Any unknown or duplicated column fails
// the whole batch.
func ValidateColumns(header []string, profileFields []string) ([]string, error) {
	if len(header) == 0 {
		return nil, goerr.New("header row has no columns")
	}

	known := make(map[string]bool, len(model.StandardFields())+len(profileFields))
	for _, f := range model.StandardFields() {
		known[f] = true
	}
	for _, f := range profileFields {
		known[f] = true
	}

	columns := make([]string, 0, len(header))
	seen := make(map[string]bool, len(header))
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			return nil, goerr.New("empty column name", goerr.V("position", i))
		}
		if seen[name] {
			return nil, goerr.New("duplicate column name", goerr.V("column", name))
		}

		_, _, isDirective := model.ParseDirectiveColumn(name)
		if !known[name] && !isDirective {
			return nil, goerr.New("unknown column name",
				goerr.V("column", name), goerr.V("position", i))
		}

		seen[name] = true
		columns = append(columns, name)
	}

	return columns, nil
}
