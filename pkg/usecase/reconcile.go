package usecase

import (
	"context"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
	"github.com/edulab-tools/usersync/pkg/utils/logging"
)

// processRow drives one CSV row through the full reconciliation: username
// resolution, realm handling, deletes and renames, the mode gate, the field
// merge or account creation, and finally the membership directives. Exactly
// one terminal outcome is counted per row; directive failures surface in the
// enrolments cell without changing it.
func (uc *UseCases) processRow(ctx context.Context, row *model.Row, lk *lookups, upt *Tracker, sum *model.Summary, adv *advisories) {
	upt.Track("line", strconv.Itoa(row.Line), types.SeverityNormal, true)
	for _, col := range []string{
		model.FieldUsername, model.FieldFirstname, model.FieldLastname,
		model.FieldEmail, model.FieldPassword, model.FieldAuth,
		model.FieldSuspended, model.FieldDeleted,
	} {
		if v := row.Get(col); v != "" {
			upt.Track(col, v, types.SeverityNormal, true)
		}
	}

	username := row.Username()

	// Creating modes require name parts, both for the account itself and
	// for the username template.
	if uc.policy.Mode == types.ModeAddNew || uc.policy.Mode == types.ModeAddInc {
		missing := false
		for _, col := range []string{model.FieldFirstname, model.FieldLastname} {
			if row.Get(col) == "" {
				err := goerr.Wrap(model.ErrMissingField, col,
					goerr.V(model.FieldKey, col), goerr.V(model.LineKey, row.Line))
				upt.Track("status", err.Error(), types.SeverityError, false)
				upt.Track(col, "missing", types.SeverityError, true)
				missing = true
			}
		}
		if missing {
			sum.Errors++
			return
		}
		if username == "" && uc.policy.UsernameTemplate != "" {
			username = ProcessTemplate(uc.policy.UsernameTemplate, "",
				row.Get(model.FieldFirstname), row.Get(model.FieldLastname))
			row.Set(model.FieldUsername, username)
			upt.Track(model.FieldUsername, username, types.SeverityNormal, true)
		}
	}

	original := username
	if uc.policy.StandardizeUsernames {
		username = model.CleanUsername(username)
	}
	if username == "" {
		err := goerr.Wrap(model.ErrMissingField, model.FieldUsername,
			goerr.V(model.FieldKey, model.FieldUsername), goerr.V(model.LineKey, row.Line))
		upt.Track("status", err.Error(), types.SeverityError, false)
		sum.Errors++
		return
	}
	if username == model.ReservedUsername {
		err := goerr.Wrap(model.ErrReservedUsername, username, goerr.V(model.UsernameKey, username))
		upt.Track("status", err.Error(), types.SeverityError, false)
		sum.Errors++
		return
	}
	if username != model.CleanUsername(username) {
		err := goerr.Wrap(model.ErrInvalidUsername, username, goerr.V(model.UsernameKey, username))
		upt.Track(model.FieldUsername, err.Error(), types.SeverityError, false)
		upt.Track("status", "invalid username", types.SeverityError, false)
		sum.Errors++
		return
	}
	if original != username {
		upt.Track(model.FieldUsername, original+" --> "+username, types.SeverityInfo, false)
	}

	realm := types.RealmID(row.Get(model.FieldRealm)).Normalize()
	remote := !realm.IsLocal()

	existing, err := uc.repo.Users().FindByUsername(ctx, username, realm)
	if err != nil {
		uc.trackBackendError(upt, sum, err)
		return
	}

	if remote {
		if existing == nil || uc.policy.Mode == types.ModeAddInc {
			err := goerr.Wrap(model.ErrRemoteRealm, username, goerr.V(model.UsernameKey, username))
			upt.Track("status", err.Error(), types.SeverityError, false)
			sum.Errors++
			return
		}
		uc.writeBackRemote(row, existing)
	} else if existing != nil && uc.policy.Mode == types.ModeAddInc {
		// Never touch the matched account; derive a free username instead.
		fresh, err := uc.incrementUsername(ctx, username, realm)
		if err != nil {
			uc.trackBackendError(upt, sum, err)
			return
		}
		upt.Track(model.FieldUsername, username+" --> "+fresh, types.SeverityInfo, false)
		username = fresh
		row.Set(model.FieldUsername, username)
		existing = nil
	}
	if existing != nil {
		upt.Track("id", strconv.FormatInt(int64(existing.ID), 10), types.SeverityNormal, true)
	}

	// Default templates fill fields the row left out. Created accounts
	// always get them; for existing accounts only strategies that need
	// the defaults materialized do, and the origin is tracked so the
	// file-override merge can skip them.
	fromDefault := make(map[string]bool)
	if existing == nil || uc.policy.UpdateStrategy.FillsDefaults() {
		for field, tpl := range uc.policy.Defaults {
			if row.Has(field) {
				continue
			}
			row.Set(field, ProcessTemplate(tpl, username,
				row.Get(model.FieldFirstname), row.Get(model.FieldLastname)))
			fromDefault[field] = true
		}
	}

	if truthy(row.Get(model.FieldDeleted)) {
		uc.deleteAccount(ctx, existing, remote, upt, sum)
		return
	}

	if old := row.Get(model.FieldOldUsername); old != "" {
		existing = uc.renameAccount(ctx, old, username, existing, remote, upt, sum)
		if existing == nil {
			return
		}
	}

	switch uc.policy.Mode {
	case types.ModeAddNew:
		if existing != nil {
			upt.Track("status", "not added: username already registered", types.SeverityWarning, false)
			sum.Skipped++
			return
		}
	case types.ModeUpdate:
		if existing == nil {
			upt.Track("status", "not updated: no such account", types.SeverityWarning, false)
			sum.Skipped++
			return
		}
	}

	var userID types.UserID
	var ok bool
	if existing != nil {
		userID, ok = uc.updateExisting(ctx, row, existing, remote, fromDefault, upt, sum)
	} else {
		userID, ok = uc.createAccount(ctx, row, username, realm, upt, sum)
	}
	if !ok {
		return
	}

	// Cohort memberships apply before course enrolments so cohort-driven
	// enrolment hooks observe a settled membership.
	uc.applyCohorts(ctx, row, userID, lk, upt)
	uc.applyDirectives(ctx, row, userID, lk, upt)

	final, err := uc.repo.Users().Get(ctx, userID)
	if err != nil {
		logging.From(ctx).Warn("post-mutation read failed",
			"username", username, "error", err)
		return
	}
	if problems := model.ValidateUser(final); len(problems) > 0 {
		adv.add(final.Username, problems)
	}
}

// writeBackRemote copies the stored values of a remote-realm account over
// the row's fields so only the locally mutable subset survives. Passwords
// and renames never apply to remote accounts; the suspended flag is written
// back only when the policy protects it.
func (uc *UseCases) writeBackRemote(row *model.Row, existing *model.User) {
	for _, col := range model.MergeableFields() {
		if !row.Has(col) {
			continue
		}
		if v, ok := existing.Field(col); ok {
			row.Set(col, v)
		}
	}
	for name := range row.Profile {
		if v, ok := existing.Profile[name]; ok {
			row.Profile[name] = v
		}
	}
	row.Set(model.FieldPassword, "")
	row.Set(model.FieldOldUsername, "")
	if row.Has(model.FieldAuth) {
		row.Set(model.FieldAuth, existing.Auth.String())
	}
	if uc.policy.RemoteProtectSuspended && row.Has(model.FieldSuspended) {
		if existing.Suspended {
			row.Set(model.FieldSuspended, "1")
		} else {
			row.Set(model.FieldSuspended, "0")
		}
	}
}

// incrementUsername derives the first free username by appending or bumping
// a numeric suffix.
func (uc *UseCases) incrementUsername(ctx context.Context, username string, realm types.RealmID) (string, error) {
	base := strings.TrimRight(username, "0123456789")
	n := 2
	if suffix := username[len(base):]; suffix != "" {
		if v, err := strconv.Atoi(suffix); err == nil {
			n = v + 1
		}
	}
	for {
		candidate := base + strconv.Itoa(n)
		u, err := uc.repo.Users().FindByUsername(ctx, candidate, realm)
		if err != nil {
			return "", err
		}
		if u == nil {
			return candidate, nil
		}
		n++
	}
}

func (uc *UseCases) deleteAccount(ctx context.Context, existing *model.User, remote bool, upt *Tracker, sum *model.Summary) {
	if !uc.policy.DeletesAllowed() || remote {
		upt.Track("status", "not deleted: deleting is disabled here", types.SeverityWarning, false)
		sum.Skipped++
		return
	}
	if existing == nil {
		upt.Track("status", "not deleted: no such account", types.SeverityError, false)
		sum.DeleteErrors++
		return
	}
	if existing.Admin {
		err := goerr.Wrap(model.ErrProtectedAccount, "not deleted",
			goerr.V(model.UsernameKey, existing.Username))
		upt.Track("status", err.Error(), types.SeverityError, false)
		sum.DeleteErrors++
		return
	}
	if err := uc.repo.Users().Delete(ctx, existing); err != nil {
		upt.Track("status", "delete failed", types.SeverityError, false)
		sum.DeleteErrors++
		return
	}
	upt.Track("status", "deleted", types.SeverityNormal, false)
	upt.Track(model.FieldDeleted, "yes", types.SeverityNormal, true)
	sum.Deleted++
}

// renameAccount applies an oldusername directive. On success it returns the
// renamed account so processing continues as an update; nil means the row is
// finished (the outcome has been counted).
func (uc *UseCases) renameAccount(ctx context.Context, old, username string, existing *model.User, remote bool, upt *Tracker, sum *model.Summary) *model.User {
	if !uc.policy.RenamesAllowed() || remote {
		upt.Track("status", "not renamed: renaming is disabled here", types.SeverityWarning, false)
		sum.Skipped++
		return nil
	}
	if existing != nil {
		upt.Track("status", "not renamed: target username already registered", types.SeverityError, false)
		sum.RenameErrors++
		return nil
	}
	if uc.policy.StandardizeUsernames {
		old = model.CleanUsername(old)
	}
	if old == model.ReservedUsername {
		upt.Track("status", "the "+model.ReservedUsername+" account cannot be renamed", types.SeverityError, false)
		sum.RenameErrors++
		return nil
	}
	prev, err := uc.repo.Users().FindByUsername(ctx, old, types.RealmLocal)
	if err != nil {
		upt.Track("status", "backend error during rename", types.SeverityError, false)
		sum.RenameErrors++
		return nil
	}
	if prev == nil {
		upt.Track("status", "not renamed: no account "+old, types.SeverityError, false)
		sum.RenameErrors++
		return nil
	}
	upt.Track("id", strconv.FormatInt(int64(prev.ID), 10), types.SeverityNormal, true)
	if prev.Admin {
		err := goerr.Wrap(model.ErrProtectedAccount, "not renamed",
			goerr.V(model.UsernameKey, prev.Username))
		upt.Track("status", err.Error(), types.SeverityError, false)
		sum.RenameErrors++
		return nil
	}
	if err := uc.repo.Users().Rename(ctx, prev.ID, username); err != nil {
		upt.Track("status", "rename failed", types.SeverityError, false)
		sum.RenameErrors++
		return nil
	}
	upt.Track(model.FieldUsername, old+" --> "+username, types.SeverityInfo, false)
	upt.Track("status", "renamed", types.SeverityNormal, false)
	sum.Renamed++

	prev.Username = username
	return prev
}

func (uc *UseCases) trackBackendError(upt *Tracker, sum *model.Summary, err error) {
	upt.Track("status", "backend error: "+err.Error(), types.SeverityError, false)
	sum.Errors++
}
