package config

import (
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/edulab-tools/usersync/pkg/domain/interfaces"
	"github.com/edulab-tools/usersync/pkg/service/notify"
	"github.com/edulab-tools/usersync/pkg/utils/logging"
)

// Slack holds CLI flags for the notification sink.
type Slack struct {
	botToken string
	channel  string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (enables notifications)",
			Category:    "Slack",
			Sources:     cli.EnvVars("USERSYNC_SLACK_BOT_TOKEN"),
			Destination: &x.botToken,
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel for batch notifications",
			Category:    "Slack",
			Sources:     cli.EnvVars("USERSYNC_SLACK_CHANNEL"),
			Destination: &x.channel,
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("channel", x.channel),
	)
}

// Configure returns the Slack notifier when both token and channel are set,
// and a no-op sink otherwise.
func (x *Slack) Configure() interfaces.Notifier {
	if x.botToken == "" || x.channel == "" {
		return notify.Noop{}
	}
	logging.Default().Info("Using Slack notifier", "channel", x.channel)
	return notify.NewSlack(x.botToken, x.channel)
}
