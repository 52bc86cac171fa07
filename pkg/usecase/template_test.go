package usecase_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/edulab-tools/usersync/pkg/usecase"
)

func TestProcessTemplate(t *testing.T) {
	cases := []struct {
		name     string
		tpl      string
		expected string
	}{
		{"plain tokens", "%f.%l", "Ada.Lee"},
		{"truncation", "%1f.%l", "A.Lee"},
		{"lowercase modifier", "%-1f.%-l", "a.lee"},
		{"uppercase modifier", "%+l", "LEE"},
		{"capitalize modifier", "%~u", "Alee"},
		{"username token", "%u", "alee"},
		{"literal text survives", "user-%-l", "user-lee"},
		{"no tokens", "static", "static"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := usecase.ProcessTemplate(tc.tpl, "alee", "Ada", "Lee")
			gt.Value(t, got).Equal(tc.expected)
		})
	}
}

func TestProcessTemplate_TruncationIsRuneAware(t *testing.T) {
	got := usecase.ProcessTemplate("%2f", "", "Łukasz", "")
	gt.Value(t, got).Equal("Łu")
}
