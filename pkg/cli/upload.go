package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/edulab-tools/usersync/pkg/cli/config"
	"github.com/edulab-tools/usersync/pkg/service/credential"
	"github.com/edulab-tools/usersync/pkg/usecase"
	"github.com/edulab-tools/usersync/pkg/utils/logging"
	"github.com/edulab-tools/usersync/pkg/utils/safe"
)

func cmdUpload() *cli.Command {
	var (
		repoCfg   config.Repository
		policyCfg config.Policy
		slackCfg  config.Slack

		filePath  string
		delimiter string
		noColor   bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Path to the CSV file",
			Required:    true,
			Sources:     cli.EnvVars("USERSYNC_FILE"),
			Destination: &filePath,
		},
		&cli.StringFlag{
			Name:        "delimiter",
			Usage:       "CSV delimiter (comma, semicolon, colon or tab)",
			Value:       "comma",
			Sources:     cli.EnvVars("USERSYNC_DELIMITER"),
			Destination: &delimiter,
		},
		&cli.BoolFlag{
			Name:        "no-color",
			Usage:       "Disable colors in the progress report",
			Sources:     cli.EnvVars("USERSYNC_NO_COLOR"),
			Destination: &noColor,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, policyCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:  "upload",
		Usage: "Run one CSV batch against the directory",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			policy, profileFields, err := policyCfg.Configure()
			if err != nil {
				return err
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			uc := usecase.New(repo, credential.New(policy.PasswordRules), policy,
				usecase.WithNotifier(slackCfg.Configure()),
				usecase.WithProfileFields(profileFields),
			)

			sum, err := uc.Upload(ctx, &usecase.UploadInput{
				FilePath:  filePath,
				Delimiter: delimiter,
				NoColor:   noColor,
			})
			if err != nil {
				return err
			}

			if sum.HasErrors() {
				logging.From(ctx).Warn("batch finished with row errors",
					"errors", sum.Errors,
					"delete_errors", sum.DeleteErrors,
					"rename_errors", sum.RenameErrors)
			}
			return nil
		},
	}
}
