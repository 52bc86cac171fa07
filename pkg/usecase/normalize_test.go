package usecase

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/edulab-tools/usersync/pkg/domain/model"
)

func TestNormalizeRow(t *testing.T) {
	columns := []string{"username", "email", "course1", "role1", "profile_field_team", "profile_field_bio"}
	fields := []model.ProfileField{
		{Name: "profile_field_team"},
		{Name: "profile_field_bio", Composite: true},
	}

	row := normalizeRow(
		[]string{" a.lee ", "ada@example.edu", "CS101", "student", "infra", "hello", "dropped"},
		columns, 2, fields)

	gt.Value(t, row.Line).Equal(2)
	gt.Value(t, row.Username()).Equal("a.lee")
	gt.Value(t, row.Get("email")).Equal("ada@example.edu")

	gt.Value(t, row.Directives.Get(1, model.DirectiveCourse)).Equal("CS101")
	gt.Value(t, row.Directives.Get(1, model.DirectiveRole)).Equal("student")

	gt.Value(t, row.Profile["profile_field_team"]).Equal("infra")
	gt.Value(t, row.Profile["profile_field_bio"]).Equal("hello")
	// Composite fields carry a format sub-value.
	gt.Value(t, row.Profile["profile_field_bio"+model.FormatSuffix]).Equal(model.DefaultFormat)

	// The trailing cell has no column and is dropped.
	gt.Bool(t, row.Has("deleted")).False()
}

func TestTidyList(t *testing.T) {
	gt.Value(t, tidyList(" go , , chess,running ")).Equal("go, chess, running")
	gt.Value(t, tidyList("")).Equal("")
	gt.Value(t, tidyList(",,")).Equal("")
}

func TestTruthy(t *testing.T) {
	for _, v := range []string{"1", "yes", "Y", "true", "x"} {
		gt.Bool(t, truthy(v)).True()
	}
	for _, v := range []string{"", "0", "no", "false", " 0 "} {
		gt.Bool(t, truthy(v)).False()
	}
}
