package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/edulab-tools/usersync/pkg/cli"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func TestRun_UploadCommand(t *testing.T) {
	tmpDir := t.TempDir()

	policyPath := writeFile(t, tmpDir, "policy.toml", `
mode = "add-or-update"
update_strategy = "file-override"
create_passwords = true
no_email_duplicates = true
password_reset = "weak"
bulk = "new"
username_template = "%1f.%l"
default_domain = "example.edu"

[defaults]
city = "Springfield"

[legacy_roles]
1 = "student"
2 = "teacher"
3 = "editingteacher"

[password_rules]
min_length = 8
min_digits = 1

[[profile_field]]
name = "team"

[[profile_field]]
name = "bio"
composite = true
`)
	csvPath := writeFile(t, tmpDir, "users.csv",
		"username,firstname,lastname,email,password,profile_field_team\n"+
			"a.lee,Ada,Lee,ada@example.edu,Str0ngpass1,infra\n")

	err := cli.Run(context.Background(), []string{
		"usersync", "upload",
		"--repository-backend", "memory",
		"--file", csvPath,
		"--policy", policyPath,
		"--no-color",
	}, "test")
	gt.NoError(t, err)
}

func TestRun_UploadCommand_InvalidPolicy(t *testing.T) {
	tmpDir := t.TempDir()

	policyPath := writeFile(t, tmpDir, "policy.toml", `mode = "sideways"`)
	csvPath := writeFile(t, tmpDir, "users.csv", "username\na.lee\n")

	err := cli.Run(context.Background(), []string{
		"usersync", "upload",
		"--repository-backend", "memory",
		"--file", csvPath,
		"--policy", policyPath,
	}, "test")
	gt.Error(t, err)
}

func TestRun_UploadCommand_UnknownColumn(t *testing.T) {
	tmpDir := t.TempDir()
	csvPath := writeFile(t, tmpDir, "users.csv", "username,shoesize\na.lee,42\n")

	err := cli.Run(context.Background(), []string{
		"usersync", "upload",
		"--repository-backend", "memory",
		"--file", csvPath,
		"--mode", "add-or-update",
	}, "test")
	gt.Error(t, err)
}

func TestRun_PreviewCommand(t *testing.T) {
	tmpDir := t.TempDir()
	csvPath := writeFile(t, tmpDir, "users.csv",
		"username,firstname,lastname,email\n"+
			"a.lee,Ada,Lee,ada@example.edu\n"+
			"guest,Gue,St,guest@example.edu\n")

	err := cli.Run(context.Background(), []string{
		"usersync", "preview",
		"--repository-backend", "memory",
		"--file", csvPath,
		"--mode", "add-only",
	}, "test")
	gt.NoError(t, err)
}
