package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
	"github.com/edulab-tools/usersync/pkg/service/csvsource"
	"github.com/edulab-tools/usersync/pkg/utils/logging"
)

// UploadInput parameterizes one batch run.
type UploadInput struct {
	FilePath  string
	Delimiter string
	// Out receives the per-row progress report. Defaults to stdout.
	Out io.Writer
	// NoColor disables ANSI colors in the report.
	NoColor bool
}

// advisories collects post-mutation validation problems keyed by username,
// preserving first-seen order.
type advisories struct {
	order  []string
	byUser map[string][]string
}

func newAdvisories() *advisories {
	return &advisories{byUser: make(map[string][]string)}
}

func (a *advisories) add(username string, problems []string) {
	if _, ok := a.byUser[username]; !ok {
		a.order = append(a.order, username)
	}
	a.byUser[username] = append(a.byUser[username], problems...)
}

// Upload runs one CSV batch end to end: parse and validate the file, drive
// every row through reconciliation, then emit the advisories and the batch
// summary. Per-row failures are counted, not returned; the error covers
// setup problems only.
func (uc *UseCases) Upload(ctx context.Context, input *UploadInput) (*model.Summary, error) {
	src, err := csvsource.Load(input.FilePath, input.Delimiter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load CSV file", goerr.V("path", input.FilePath))
	}
	columns, err := csvsource.ValidateColumns(src.Header, uc.profileFieldNames())
	if err != nil {
		return nil, goerr.Wrap(err, "invalid CSV header")
	}

	out := input.Out
	if out == nil {
		out = os.Stdout
	}
	upt := NewTracker(out)
	if input.NoColor {
		upt.NoColor()
	}

	logging.From(ctx).Info("starting batch",
		"file", input.FilePath,
		"rows", len(src.Records),
		"mode", uc.policy.Mode,
		"strategy", uc.policy.UpdateStrategy)

	sum := &model.Summary{}
	adv := newAdvisories()
	lk := newLookups(uc.repo)

	line := 1
	for _, record := range src.Records {
		line++
		if uc.policy.Throttle > 0 {
			time.Sleep(uc.policy.Throttle)
		}
		uc.runRow(ctx, record, columns, line, lk, upt, sum, adv)
		upt.Flush()
	}

	for _, username := range adv.order {
		problems := adv.byUser[username]
		logging.From(ctx).Warn("account fails validation after batch",
			"username", username, "problems", problems)
		if err := uc.notifier.ValidationAdvisory(ctx, username, problems); err != nil {
			logging.From(ctx).Warn("advisory notification failed", "error", err)
		}
	}

	uc.reportSummary(ctx, out, sum, upt.Errors())
	if err := uc.notifier.BatchCompleted(ctx, sum); err != nil {
		logging.From(ctx).Warn("summary notification failed", "error", err)
	}
	return sum, nil
}

// runRow isolates one row behind a recover boundary so a fault in a single
// record cannot abort the batch.
func (uc *UseCases) runRow(ctx context.Context, record []string, columns []string, line int, lk *lookups, upt *Tracker, sum *model.Summary, adv *advisories) {
	defer func() {
		if r := recover(); r != nil {
			logging.From(ctx).Error("panic while processing row", "line", line, "panic", r)
			upt.Track("status", fmt.Sprintf("internal fault: %v", r), types.SeverityError, false)
			sum.Errors++
		}
	}()
	row := normalizeRow(record, columns, line, uc.profileFields)
	uc.processRow(ctx, row, lk, upt, sum, adv)
}

func (uc *UseCases) reportSummary(ctx context.Context, out io.Writer, sum *model.Summary, errorLog []string) {
	fmt.Fprintln(out)
	if uc.policy.Mode.CreatesUsers() {
		fmt.Fprintf(out, "created: %d\n", sum.Created)
	}
	if uc.policy.Mode.UpdatesUsers() {
		fmt.Fprintf(out, "updated: %d\n", sum.Updated)
	}
	fmt.Fprintf(out, "up to date: %d\n", sum.UpToDate)
	if uc.policy.AllowDeletes {
		fmt.Fprintf(out, "deleted: %d\n", sum.Deleted)
		fmt.Fprintf(out, "delete errors: %d\n", sum.DeleteErrors)
	}
	if uc.policy.AllowRenames {
		fmt.Fprintf(out, "renamed: %d\n", sum.Renamed)
		fmt.Fprintf(out, "rename errors: %d\n", sum.RenameErrors)
	}
	fmt.Fprintf(out, "skipped: %d\n", sum.Skipped)
	fmt.Fprintf(out, "weak passwords: %d\n", sum.WeakPasswords)
	fmt.Fprintf(out, "errors: %d\n", sum.Errors)

	if len(errorLog) > 0 {
		fmt.Fprintln(os.Stderr, "problems during the batch:")
		for _, msg := range errorLog {
			fmt.Fprintln(os.Stderr, "  "+msg)
		}
	}

	logging.From(ctx).Info("batch completed",
		"created", sum.Created,
		"updated", sum.Updated,
		"up_to_date", sum.UpToDate,
		"deleted", sum.Deleted,
		"renamed", sum.Renamed,
		"skipped", sum.Skipped,
		"weak_passwords", sum.WeakPasswords,
		"errors", sum.Errors,
		"bulk_selection", len(sum.BulkUserIDs))
}
