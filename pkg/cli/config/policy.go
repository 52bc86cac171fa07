package config

import (
	"os"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
)

// Policy holds CLI flags for the batch reconciliation policy. The TOML
// policy file is the canonical source; the mode and strategy flags apply
// when the file leaves them unset or no file is given.
type Policy struct {
	path     string
	mode     string
	strategy string
}

// Flags returns CLI flags for policy configuration
func (p *Policy) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy",
			Usage:       "Path to the TOML policy file",
			Category:    "Policy",
			Sources:     cli.EnvVars("USERSYNC_POLICY"),
			Destination: &p.path,
		},
		&cli.StringFlag{
			Name:        "mode",
			Usage:       "Operation mode (add-only, add-with-increment, add-or-update, update-only)",
			Category:    "Policy",
			Value:       types.ModeAddNew.String(),
			Sources:     cli.EnvVars("USERSYNC_MODE"),
			Destination: &p.mode,
		},
		&cli.StringFlag{
			Name:        "update-strategy",
			Usage:       "Update strategy (no-change, fill-missing, file-override, all-override)",
			Category:    "Policy",
			Value:       types.UpdateNoChanges.String(),
			Sources:     cli.EnvVars("USERSYNC_UPDATE_STRATEGY"),
			Destination: &p.strategy,
		},
	}
}

type passwordRulesDoc struct {
	MinLength      int `toml:"min_length"`
	MinDigits      int `toml:"min_digits"`
	MinLower       int `toml:"min_lower"`
	MinUpper       int `toml:"min_upper"`
	MinNonAlphaNum int `toml:"min_non_alphanum"`
}

type profileFieldDoc struct {
	Name      string `toml:"name"`
	Composite bool   `toml:"composite"`
}

type policyDoc struct {
	Mode                 string `toml:"mode"`
	UpdateStrategy       string `toml:"update_strategy"`
	CreatePasswords      bool   `toml:"create_passwords"`
	UpdatePasswords      bool   `toml:"update_passwords"`
	AllowRenames         bool   `toml:"allow_renames"`
	AllowDeletes         bool   `toml:"allow_deletes"`
	AllowSuspends        *bool  `toml:"allow_suspends"`
	NoEmailDuplicates    bool   `toml:"no_email_duplicates"`
	StandardizeUsernames *bool  `toml:"standardize_usernames"`
	PasswordReset        string `toml:"password_reset"`
	Bulk                 string `toml:"bulk"`

	UsernameTemplate string            `toml:"username_template"`
	DefaultDomain    string            `toml:"default_domain"`
	Defaults         map[string]string `toml:"defaults"`
	LegacyRoles      map[string]string `toml:"legacy_roles"`
	SupportedLangs   []string          `toml:"supported_langs"`
	SupportedAuths   []string          `toml:"supported_auths"`

	ManageCohorts          bool  `toml:"manage_cohorts"`
	RemoteProtectSuspended *bool `toml:"remote_protect_suspended"`

	ThrottleMS    int              `toml:"throttle_ms"`
	PasswordRules passwordRulesDoc `toml:"password_rules"`

	ProfileFields []profileFieldDoc `toml:"profile_field"`
}

// Configure loads and validates the policy, returning it together with the
// registered custom profile fields.
func (p *Policy) Configure() (*model.Policy, []model.ProfileField, error) {
	var doc policyDoc
	if p.path != "" {
		raw, err := os.ReadFile(p.path)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", p.path))
		}
		if err := toml.Unmarshal(raw, &doc); err != nil {
			return nil, nil, goerr.Wrap(err, "failed to parse policy file", goerr.V("path", p.path))
		}
	}

	if doc.Mode == "" {
		doc.Mode = p.mode
	}
	if doc.UpdateStrategy == "" {
		doc.UpdateStrategy = p.strategy
	}
	if doc.PasswordReset == "" {
		doc.PasswordReset = types.PasswordResetNone.String()
	}
	if doc.Bulk == "" {
		doc.Bulk = types.BulkNone.String()
	}

	legacy := make(map[int]string, len(doc.LegacyRoles))
	for key, roleName := range doc.LegacyRoles {
		n, err := strconv.Atoi(key)
		if err != nil {
			return nil, nil, goerr.New("legacy role keys must be numeric", goerr.V("key", key))
		}
		legacy[n] = roleName
	}

	policy := &model.Policy{
		Mode:           types.Mode(doc.Mode),
		UpdateStrategy: types.UpdateStrategy(doc.UpdateStrategy),

		CreatePasswords:      doc.CreatePasswords,
		UpdatePasswords:      doc.UpdatePasswords,
		AllowRenames:         doc.AllowRenames,
		AllowDeletes:         doc.AllowDeletes,
		AllowSuspends:        boolOr(doc.AllowSuspends, true),
		NoEmailDuplicates:    doc.NoEmailDuplicates,
		StandardizeUsernames: boolOr(doc.StandardizeUsernames, true),
		PasswordReset:        types.PasswordResetPolicy(doc.PasswordReset),
		Bulk:                 types.BulkSelection(doc.Bulk),

		UsernameTemplate: doc.UsernameTemplate,
		DefaultDomain:    doc.DefaultDomain,
		Defaults:         doc.Defaults,
		LegacyRoles:      legacy,
		SupportedLangs:   doc.SupportedLangs,
		SupportedAuths:   doc.SupportedAuths,

		CanManageCohorts:       doc.ManageCohorts,
		RemoteProtectSuspended: boolOr(doc.RemoteProtectSuspended, true),

		PasswordRules: model.PasswordRules{
			MinLength:      doc.PasswordRules.MinLength,
			MinDigits:      doc.PasswordRules.MinDigits,
			MinLower:       doc.PasswordRules.MinLower,
			MinUpper:       doc.PasswordRules.MinUpper,
			MinNonAlphaNum: doc.PasswordRules.MinNonAlphaNum,
		},

		Throttle: time.Duration(doc.ThrottleMS) * time.Millisecond,
	}
	if err := policy.Validate(); err != nil {
		return nil, nil, goerr.Wrap(err, "invalid policy")
	}

	fields := make([]model.ProfileField, 0, len(doc.ProfileFields))
	for _, f := range doc.ProfileFields {
		if f.Name == "" {
			return nil, nil, goerr.New("profile field name is required")
		}
		fields = append(fields, model.ProfileField{
			Name:      model.ProfileFieldPrefix + f.Name,
			Composite: f.Composite,
		})
	}
	return policy, fields, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
