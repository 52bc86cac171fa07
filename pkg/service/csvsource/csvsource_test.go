package csvsource_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/edulab-tools/usersync/pkg/service/csvsource"
)

func TestParse(t *testing.T) {
	t.Run("pads short records to header width", func(t *testing.T) {
		src, err := csvsource.Parse(strings.NewReader(
			"username,firstname,lastname\n"+
				"a.lee,Ada\n"), ',')
		gt.NoError(t, err).Required()

		gt.Array(t, src.Header).Length(3)
		gt.Array(t, src.Records).Length(1)
		gt.Array(t, src.Records[0]).Length(3)
		gt.Value(t, src.Records[0][2]).Equal("")
	})

	t.Run("strips BOM from first header cell", func(t *testing.T) {
		src, err := csvsource.Parse(strings.NewReader("\uFEFFusername,email\n"), ',')
		gt.NoError(t, err).Required()
		gt.Value(t, src.Header[0]).Equal("username")
	})

	t.Run("empty input fails", func(t *testing.T) {
		_, err := csvsource.Parse(strings.NewReader(""), ',')
		gt.Error(t, err)
	})

	t.Run("semicolon delimiter", func(t *testing.T) {
		src, err := csvsource.Parse(strings.NewReader("username;email\na.lee;ada@example.edu\n"), ';')
		gt.NoError(t, err).Required()
		gt.Array(t, src.Header).Length(2)
		gt.Value(t, src.Records[0][1]).Equal("ada@example.edu")
	})
}

func TestParseDelimiter(t *testing.T) {
	d, err := csvsource.ParseDelimiter("tab")
	gt.NoError(t, err)
	gt.Value(t, d).Equal('\t')

	d, err = csvsource.ParseDelimiter("")
	gt.NoError(t, err)
	gt.Value(t, d).Equal(',')

	_, err = csvsource.ParseDelimiter("pipe")
	gt.Error(t, err)
}

func TestValidateColumns(t *testing.T) {
	t.Run("accepts standard, directive and profile columns", func(t *testing.T) {
		cols, err := csvsource.ValidateColumns(
			[]string{"Username", " email ", "course1", "role1", "sysrole2", "profile_field_team"},
			[]string{"profile_field_team"})
		gt.NoError(t, err).Required()
		gt.Array(t, cols).Length(6)
		gt.Value(t, cols[0]).Equal("username")
		gt.Value(t, cols[1]).Equal("email")
	})

	t.Run("rejects unknown column", func(t *testing.T) {
		_, err := csvsource.ValidateColumns([]string{"username", "shoesize"}, nil)
		gt.Error(t, err)
	})

	t.Run("rejects unregistered profile field", func(t *testing.T) {
		_, err := csvsource.ValidateColumns([]string{"username", "profile_field_team"}, nil)
		gt.Error(t, err)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := csvsource.ValidateColumns([]string{"username", "Username"}, nil)
		gt.Error(t, err)
	})

	t.Run("rejects empty header", func(t *testing.T) {
		_, err := csvsource.ValidateColumns(nil, nil)
		gt.Error(t, err)
	})
}
