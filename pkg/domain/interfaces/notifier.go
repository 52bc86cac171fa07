package interfaces

import (
	"context"

	"github.com/edulab-tools/usersync/pkg/domain/model"
)

// Notifier is the downstream notification sink for batch events.
type Notifier interface {
	// UserCreated announces a newly created account.
	UserCreated(ctx context.Context, u *model.User) error

	// UserUpdated announces an updated account.
	UserUpdated(ctx context.Context, u *model.User) error

	// ValidationAdvisory reports a structural validation problem found
	// after mutation. Advisory only.
	ValidationAdvisory(ctx context.Context, username string, problems []string) error

	// BatchCompleted announces the end-of-batch summary.
	BatchCompleted(ctx context.Context, s *model.Summary) error
}
