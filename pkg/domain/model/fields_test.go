package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/edulab-tools/usersync/pkg/domain/model"
)

func TestCleanUsername(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"A.Lee", "a.lee"},
		{"ada lee", "adalee"},
		{"ada@example.edu", "ada@example.edu"},
		{"Łukasz!", "ukasz"},
		{"under_score-ok", "under_score-ok"},
	}
	for _, tc := range cases {
		got := model.CleanUsername(tc.in)
		gt.Value(t, got).Equal(tc.expected)
		// Canonicalization must be idempotent.
		gt.Value(t, model.CleanUsername(got)).Equal(got)
	}
}

func TestParseDirectiveColumn(t *testing.T) {
	kind, idx, ok := model.ParseDirectiveColumn("course12")
	gt.Bool(t, ok).True()
	gt.Value(t, kind).Equal(model.DirectiveCourse)
	gt.Value(t, idx).Equal(12)

	for _, bad := range []string{"course", "courseX", "firstname", "sysrole", "group1x"} {
		_, _, ok := model.ParseDirectiveColumn(bad)
		gt.Bool(t, ok).False()
	}
}

func TestDirectiveSetOrder(t *testing.T) {
	var set model.DirectiveSet
	set.Add(model.Directive{Index: 2, Kind: model.DirectiveCourse, Value: "CS102"})
	set.Add(model.Directive{Index: 1, Kind: model.DirectiveCourse, Value: "CS101"})
	set.Add(model.Directive{Index: 1, Kind: model.DirectiveRole, Value: "student"})

	gt.Value(t, set.Len()).Equal(2)
	// First-seen order, not numeric order.
	gt.Value(t, set.Indexes()[0]).Equal(2)
	gt.Value(t, set.Get(1, model.DirectiveRole)).Equal("student")
	gt.Value(t, set.Get(3, model.DirectiveCourse)).Equal("")
}

func TestValidEmail(t *testing.T) {
	gt.Bool(t, model.ValidEmail("ada@example.edu")).True()
	gt.Bool(t, model.ValidEmail("")).False()
	gt.Bool(t, model.ValidEmail("not-an-email")).False()
	gt.Bool(t, model.ValidEmail("Ada Lee <ada@example.edu>")).False()
}

func TestUserFieldRoundTrip(t *testing.T) {
	u := &model.User{}
	gt.Bool(t, u.SetField(model.FieldCity, "Springfield")).True()
	v, ok := u.Field(model.FieldCity)
	gt.Bool(t, ok).True()
	gt.Value(t, v).Equal("Springfield")

	gt.Bool(t, u.SetField("profile_field_team", "infra")).True()
	v, ok = u.Field("profile_field_team")
	gt.Bool(t, ok).True()
	gt.Value(t, v).Equal("infra")

	// Control fields stay out of the generic merge surface.
	gt.Bool(t, u.SetField(model.FieldAuth, "ldap")).False()
	_, ok = u.Field(model.FieldPassword)
	gt.Bool(t, ok).False()
}
