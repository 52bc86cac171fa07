package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
	"github.com/edulab-tools/usersync/pkg/service/csvsource"
)

// PreviewInput parameterizes a dry run.
type PreviewInput struct {
	FilePath  string
	Delimiter string
	// Rows caps how many data rows are inspected; zero means all.
	Rows int
}

// PreviewRow is the read-only assessment of one CSV row.
type PreviewRow struct {
	Line     int
	Username string
	// Exists reports whether an account already matches.
	Exists bool
	// Action is the outcome the current policy would produce for the
	// account itself, ignoring directives.
	Action types.RowOutcome
	// Problems lists what would fail or warn.
	Problems []string
}

// PreviewResult is the outcome of a dry run. The backend is never mutated.
type PreviewResult struct {
	Columns []string
	Rows    []PreviewRow
}

// Preview validates the file and predicts per-row outcomes without touching
// the backend. Directive side effects are not simulated.
func (uc *UseCases) Preview(ctx context.Context, input *PreviewInput) (*PreviewResult, error) {
	src, err := csvsource.Load(input.FilePath, input.Delimiter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load CSV file", goerr.V("path", input.FilePath))
	}
	columns, err := csvsource.ValidateColumns(src.Header, uc.profileFieldNames())
	if err != nil {
		return nil, goerr.Wrap(err, "invalid CSV header")
	}

	result := &PreviewResult{Columns: columns}
	line := 1
	for _, record := range src.Records {
		line++
		if input.Rows > 0 && len(result.Rows) >= input.Rows {
			break
		}
		row := normalizeRow(record, columns, line, uc.profileFields)
		result.Rows = append(result.Rows, uc.previewRow(ctx, row))
	}
	return result, nil
}

func (uc *UseCases) previewRow(ctx context.Context, row *model.Row) PreviewRow {
	pr := PreviewRow{Line: row.Line}

	username := row.Username()
	if username == "" && uc.policy.UsernameTemplate != "" &&
		(uc.policy.Mode == types.ModeAddNew || uc.policy.Mode == types.ModeAddInc) {
		username = ProcessTemplate(uc.policy.UsernameTemplate, "",
			row.Get(model.FieldFirstname), row.Get(model.FieldLastname))
	}
	if uc.policy.StandardizeUsernames {
		username = model.CleanUsername(username)
	}
	pr.Username = username

	switch {
	case username == "":
		pr.Action = types.RowError
		pr.Problems = append(pr.Problems, "missing username")
		return pr
	case username == model.ReservedUsername:
		pr.Action = types.RowError
		pr.Problems = append(pr.Problems, "reserved username")
		return pr
	case username != model.CleanUsername(username):
		pr.Action = types.RowError
		pr.Problems = append(pr.Problems, "invalid characters in username")
		return pr
	}

	realm := types.RealmID(row.Get(model.FieldRealm)).Normalize()
	existing, err := uc.repo.Users().FindByUsername(ctx, username, realm)
	if err != nil {
		pr.Action = types.RowError
		pr.Problems = append(pr.Problems, "backend error: "+err.Error())
		return pr
	}
	pr.Exists = existing != nil

	if !realm.IsLocal() && existing == nil {
		pr.Action = types.RowError
		pr.Problems = append(pr.Problems, "remote accounts can only be updated")
		return pr
	}

	if email := row.Get(model.FieldEmail); email != "" && !model.ValidEmail(email) {
		pr.Problems = append(pr.Problems, "invalid email address, will be replaced with "+uc.policy.EmailFallback(username))
	}
	if truthy(row.Get(model.FieldDeleted)) {
		switch {
		case !uc.policy.DeletesAllowed():
			pr.Action = types.RowSkipped
		case existing == nil:
			pr.Action = types.RowError
			pr.Problems = append(pr.Problems, "cannot delete a missing account")
		default:
			pr.Action = types.RowDeleted
		}
		return pr
	}

	switch uc.policy.Mode {
	case types.ModeAddNew:
		if existing != nil {
			pr.Action = types.RowSkipped
		} else {
			pr.Action = types.RowCreated
		}
	case types.ModeAddInc:
		pr.Action = types.RowCreated
	case types.ModeUpdate:
		if existing == nil {
			pr.Action = types.RowSkipped
		} else {
			pr.Action = types.RowUpdated
		}
	default:
		if existing == nil {
			pr.Action = types.RowCreated
		} else {
			pr.Action = types.RowUpdated
		}
	}
	return pr
}
