package usecase

import (
	"strings"

	"github.com/edulab-tools/usersync/pkg/domain/model"
)

// normalizeRow maps one raw CSV record onto validated columns and produces a
// structured row. Cells beyond the validated columns are dropped, values are
// whitespace trimmed, custom profile columns land in the profile map and
// membership directive columns are parsed into the directive set.
func normalizeRow(record []string, columns []string, line int, profileFields []model.ProfileField) *model.Row {
	composite := make(map[string]bool, len(profileFields))
	for _, f := range profileFields {
		composite[f.Name] = f.Composite
	}

	row := model.NewRow(line)
	for i, col := range columns {
		if i >= len(record) {
			break
		}
		val := strings.TrimSpace(record[i])

		if strings.HasPrefix(col, model.ProfileFieldPrefix) {
			row.Profile[col] = val
			if composite[col] {
				row.Profile[col+model.FormatSuffix] = model.DefaultFormat
			}
			continue
		}
		if kind, idx, ok := model.ParseDirectiveColumn(col); ok {
			row.Directives.Add(model.Directive{Index: idx, Kind: kind, Value: val})
			continue
		}
		if col == model.FieldInterests {
			val = tidyList(val)
		}
		row.Set(col, val)
	}
	return row
}

// tidyList canonicalizes a comma-separated list: entries trimmed, empty ones
// dropped. Used for the interests field so re-uploads of a reformatted list
// do not register as changes.
func tidyList(v string) string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// truthy interprets CSV boolean cells. Anything but an empty string, "0" and
// "no" counts as true.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "no", "false":
		return false
	}
	return true
}
