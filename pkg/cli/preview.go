package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/edulab-tools/usersync/pkg/cli/config"
	"github.com/edulab-tools/usersync/pkg/domain/types"
	"github.com/edulab-tools/usersync/pkg/service/credential"
	"github.com/edulab-tools/usersync/pkg/usecase"
	"github.com/edulab-tools/usersync/pkg/utils/safe"
)

func cmdPreview() *cli.Command {
	var (
		repoCfg   config.Repository
		policyCfg config.Policy

		filePath  string
		delimiter string
		rows      int
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
		&cli.IntFlag{
			Name:        "rows",
			Usage:       "Number of data rows to inspect (0 = all)",
			Value:       0,
			Sources:     cli.EnvVars("USERSYNC_PREVIEW_ROWS"),
			Destination: &rows,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, policyCfg.Flags()...)

	return &cli.Command{
		Name:  "preview",
		Usage: "Dry-run a CSV batch without touching the directory",
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
				usecase.WithProfileFields(profileFields),
			)
			result, err := uc.Preview(ctx, &usecase.PreviewInput{
				FilePath:  filePath,
				Delimiter: delimiter,
				Rows:      rows,
			})
			if err != nil {
				return err
			}

			fmt.Printf("columns: %s\n", strings.Join(result.Columns, ", "))
			for _, row := range result.Rows {
				line := fmt.Sprintf("line %d: %s -> %s", row.Line, row.Username, row.Action)
				if row.Exists {
					line += " (existing account)"
				}
				if len(row.Problems) > 0 {
					line += "  " + color.YellowString(strings.Join(row.Problems, "; "))
				}
				if row.Action == types.RowError {
					fmt.Fprintln(os.Stderr, color.RedString(line))
					continue
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
