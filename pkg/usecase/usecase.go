package usecase

import (
	"time"

	"github.com/edulab-tools/usersync/pkg/domain/interfaces"
	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/service/notify"
)

// UseCases bundles the batch operations with their collaborators: the
// directory/enrolment repository, the credential policy, the notification
// sink and the per-batch reconciliation policy.
type UseCases struct {
	repo     interfaces.Repository
	cred     interfaces.CredentialPolicy
	notifier interfaces.Notifier
	policy   *model.Policy

	profileFields []model.ProfileField
	now           func() time.Time
}

// Option customizes a UseCases instance.
type Option func(*UseCases)

// WithNotifier replaces the default no-op notification sink.
func WithNotifier(n interfaces.Notifier) Option {
	return func(u *UseCases) {
		u.notifier = n
	}
}

// WithProfileFields registers the custom profile field descriptors accepted
// in CSV headers.
func WithProfileFields(fields []model.ProfileField) Option {
	return func(u *UseCases) {
		u.profileFields = fields
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(u *UseCases) {
		u.now = now
	}
}

// New builds the use cases. The policy must already be validated.
func New(repo interfaces.Repository, cred interfaces.CredentialPolicy, policy *model.Policy, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:     repo,
		cred:     cred,
		notifier: notify.Noop{},
		policy:   policy,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// today returns midnight of the current day. Enrolment periods are measured
// in whole days from here.
func (uc *UseCases) today() time.Time {
	t := uc.now()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (uc *UseCases) profileFieldNames() []string {
	names := make([]string, 0, len(uc.profileFields))
	for _, f := range uc.profileFields {
		names = append(names, f.Name)
	}
	return names
}
