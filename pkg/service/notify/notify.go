package notify

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	"github.com/edulab-tools/usersync/pkg/domain/interfaces"
	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/utils/logging"
)

// SlackNotifier posts batch events to a Slack channel. Per-user events are
// logged only; the channel receives advisories and the end-of-batch summary
// so a large feed does not flood it.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

var _ interfaces.Notifier = &SlackNotifier{}

// NewSlack builds a notifier for one channel.
func NewSlack(token, channel string) *SlackNotifier {
	return &SlackNotifier{
		api:     slack.New(token),
		channel: channel,
	}
}

func (n *SlackNotifier) UserCreated(ctx context.Context, u *model.User) error {
	logging.From(ctx).Info("user created", "username", u.Username, "id", u.ID)
	return nil
}

func (n *SlackNotifier) UserUpdated(ctx context.Context, u *model.User) error {
	logging.From(ctx).Info("user updated", "username", u.Username, "id", u.ID)
	return nil
}

func (n *SlackNotifier) ValidationAdvisory(ctx context.Context, username string, problems []string) error {
	msg := fmt.Sprintf("User data for %q did not pass validation:", username)
	for _, p := range problems {
		msg += "\n• " + p
	}
	if err := n.post(ctx, msg); err != nil {
		return goerr.Wrap(err, "failed to post validation advisory",
			goerr.V("username", username))
	}
	return nil
}

func (n *SlackNotifier) BatchCompleted(ctx context.Context, s *model.Summary) error {
	msg := fmt.Sprintf(
		"User upload finished: %d created, %d updated, %d up-to-date, %d deleted, %d renamed, %d skipped, %d errors",
		s.Created, s.Updated, s.UpToDate, s.Deleted, s.Renamed, s.Skipped, s.Errors)
	if s.WeakPasswords > 0 {
		msg += fmt.Sprintf(" (%d weak passwords)", s.WeakPasswords)
	}
	if err := n.post(ctx, msg); err != nil {
		return goerr.Wrap(err, "failed to post batch summary")
	}
	return nil
}

func (n *SlackNotifier) post(ctx context.Context, text string) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false))
	return err
}

// Noop drops every notification. Used when no sink is configured.
type Noop struct{}

var _ interfaces.Notifier = Noop{}

func (Noop) UserCreated(ctx context.Context, u *model.User) error {
	return nil
}

func (Noop) UserUpdated(ctx context.Context, u *model.User) error {
	return nil
}

func (Noop) ValidationAdvisory(ctx context.Context, username string, problems []string) error {
	return nil
}

func (Noop) BatchCompleted(ctx context.Context, s *model.Summary) error {
	return nil
}
