package usecase

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/edulab-tools/usersync/pkg/domain/interfaces"
	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
	"github.com/edulab-tools/usersync/pkg/utils/async"
)

// createAccount builds a new account from the row and persists it. It
// returns the new id and ok=true, or counts the row error itself.
func (uc *UseCases) createAccount(ctx context.Context, row *model.Row, username string, realm types.RealmID, upt *Tracker, sum *model.Summary) (types.UserID, bool) {
	user := &model.User{
		Username: username,
		Realm:    realm,
		Profile:  make(map[string]string, len(row.Profile)),
	}
	for _, col := range model.MergeableFields() {
		if row.Has(col) {
			user.SetField(col, row.Get(col))
		}
	}
	for name, v := range row.Profile {
		user.Profile[name] = v
	}
	if row.Has(model.FieldSuspended) && row.Get(model.FieldSuspended) != "" {
		user.Suspended = truthy(row.Get(model.FieldSuspended))
	}

	user.Auth = types.AuthManual
	if a := row.Get(model.FieldAuth); a != "" {
		user.Auth = types.AuthKind(a)
	}
	plugin, err := uc.cred.Resolve(user.Auth)
	if err != nil {
		wrapped := goerr.Wrap(model.ErrUnsupportedAuth, user.Auth.String(),
			goerr.V(model.FieldKey, model.FieldAuth))
		upt.Track(model.FieldAuth, wrapped.Error(), types.SeverityError, false)
		upt.Track("status", "not added", types.SeverityError, false)
		sum.Errors++
		return 0, false
	}
	if !uc.policy.AuthSupported(user.Auth) {
		upt.Track(model.FieldAuth, "auth kind "+user.Auth.String()+" is not officially supported", types.SeverityWarning, false)
	}

	if user.Email != "" {
		exists, err := uc.repo.Users().EmailExistsExact(ctx, user.Email)
		if err != nil {
			uc.trackBackendError(upt, sum, err)
			return 0, false
		}
		if exists {
			dup := goerr.Wrap(model.ErrEmailDuplicate, user.Email,
				goerr.V(model.FieldKey, model.FieldEmail))
			if uc.policy.NoEmailDuplicates {
				upt.Track(model.FieldEmail, dup.Error(), types.SeverityError, false)
				upt.Track("status", "not added", types.SeverityError, false)
				sum.Errors++
				return 0, false
			}
			upt.Track(model.FieldEmail, dup.Error(), types.SeverityWarning, false)
		}
	}
	if !model.ValidEmail(user.Email) {
		user.Email = uc.policy.EmailFallback(username)
	}
	if user.Lang != "" && !uc.policy.LangSupported(user.Lang) {
		upt.Track("status", "unknown language "+user.Lang+", ignored", types.SeverityWarning, false)
		user.Lang = ""
	}

	forceChange := false
	if plugin.IsInternal() {
		pw := row.Get(model.FieldPassword)
		if pw == "" {
			if !uc.policy.CreatesPasswords() {
				upt.Track(model.FieldPassword, "missing password", types.SeverityError, false)
				upt.Track("status", "not added", types.SeverityError, false)
				sum.Errors++
				return 0, false
			}
			user.Password = types.PasswordToGenerate
			upt.Track(model.FieldPassword, "password will be generated and mailed later", types.SeverityWarning, false)
		} else {
			weak := uc.cred.CheckPassword(pw) != nil
			if weak {
				sum.WeakPasswords++
				upt.Track(model.FieldPassword, "weak password", types.SeverityWarning, false)
			}
			forceChange = uc.policy.PasswordReset.ForcesReset(weak)
			hash, err := uc.cred.Hash(pw)
			if err != nil {
				uc.trackBackendError(upt, sum, err)
				return 0, false
			}
			user.Password = hash
		}
	} else {
		user.Password = types.PasswordNotCached
	}

	id, err := uc.repo.Users().Create(ctx, user)
	if err != nil {
		upt.Track("status", "not added: "+err.Error(), types.SeverityError, false)
		sum.Errors++
		return 0, false
	}
	user.ID = id
	upt.Track("id", strconv.FormatInt(int64(id), 10), types.SeverityNormal, true)
	if forceChange {
		if err := uc.repo.Users().SetPreference(ctx, id, interfaces.PrefForcePasswordChange, "1"); err != nil {
			uc.trackBackendError(upt, sum, err)
			return 0, false
		}
	}
	if user.Password == types.PasswordToGenerate {
		if err := uc.repo.Users().SetPreference(ctx, id, interfaces.PrefCreatePassword, "1"); err != nil {
			uc.trackBackendError(upt, sum, err)
			return 0, false
		}
	}

	upt.Track("status", "new account", types.SeverityNormal, false)
	sum.Created++
	if uc.policy.Bulk.IncludesCreated() {
		sum.AddBulkUser(id)
	}

	created := user.Clone()
	async.Dispatch(ctx, func(ctx context.Context) error {
		return uc.notifier.UserCreated(ctx, created)
	})
	return id, true
}

// updateExisting merges the row into an existing account per the update
// strategy and commits only when something actually changed. It returns the
// id and ok=true unless the row errored.
func (uc *UseCases) updateExisting(ctx context.Context, row *model.Row, existing *model.User, remote bool, fromDefault map[string]bool, upt *Tracker, sum *model.Summary) (types.UserID, bool) {
	if existing.Admin {
		err := goerr.Wrap(model.ErrProtectedAccount, "not updated",
			goerr.V(model.UsernameKey, existing.Username))
		upt.Track("status", err.Error(), types.SeverityError, false)
		sum.Errors++
		return 0, false
	}

	user := existing.Clone()
	doUpdate := false
	authChanged := false

	if uc.policy.UpdateStrategy != types.UpdateNoChanges && !remote {
		if a := row.Get(model.FieldAuth); a != "" && types.AuthKind(a) != user.Auth {
			upt.Track(model.FieldAuth, user.Auth.String()+" --> "+a, types.SeverityInfo, false)
			user.Auth = types.AuthKind(a)
			if !uc.policy.AuthSupported(user.Auth) {
				upt.Track(model.FieldAuth, "auth kind "+a+" is not officially supported", types.SeverityWarning, false)
			}
			authChanged = true
			doUpdate = true
		}

		ok := uc.mergeFields(ctx, row, user, fromDefault, upt, sum, &doUpdate)
		if !ok {
			return 0, false
		}
	}

	plugin, err := uc.cred.Resolve(user.Auth)
	if err != nil {
		wrapped := goerr.Wrap(model.ErrUnsupportedAuth, user.Auth.String(),
			goerr.V(model.FieldKey, model.FieldAuth))
		upt.Track(model.FieldAuth, wrapped.Error(), types.SeverityError, false)
		upt.Track("status", "not updated", types.SeverityError, false)
		sum.Errors++
		return 0, false
	}
	doLogout := authChanged && !plugin.AllowsLogin()

	if uc.policy.AllowSuspends && row.Has(model.FieldSuspended) && row.Get(model.FieldSuspended) != "" {
		suspend := truthy(row.Get(model.FieldSuspended))
		if user.Suspended != suspend {
			upt.Track(model.FieldSuspended, strconv.FormatBool(user.Suspended)+" --> "+strconv.FormatBool(suspend), types.SeverityInfo, false)
			user.Suspended = suspend
			doUpdate = true
			if suspend {
				doLogout = true
			}
		}
	}

	if !remote {
		if !plugin.IsInternal() {
			if user.Password != types.PasswordNotCached {
				user.Password = types.PasswordNotCached
			}
			// External credentials make the local reset machinery moot.
			if err := uc.repo.Users().UnsetPreference(ctx, user.ID, interfaces.PrefCreatePassword); err != nil {
				uc.trackBackendError(upt, sum, err)
				return 0, false
			}
			if err := uc.repo.Users().UnsetPreference(ctx, user.ID, interfaces.PrefForcePasswordChange); err != nil {
				uc.trackBackendError(upt, sum, err)
				return 0, false
			}
		} else if pw := row.Get(model.FieldPassword); pw != "" && uc.policy.UpdatesPasswords() {
			if !uc.cred.Matches(user.Password, pw) {
				weak := uc.cred.CheckPassword(pw) != nil
				if weak {
					sum.WeakPasswords++
					upt.Track(model.FieldPassword, "weak password", types.SeverityWarning, false)
				}
				if uc.policy.PasswordReset.ForcesReset(weak) {
					if err := uc.repo.Users().SetPreference(ctx, user.ID, interfaces.PrefForcePasswordChange, "1"); err != nil {
						uc.trackBackendError(upt, sum, err)
						return 0, false
					}
				} else {
					if err := uc.repo.Users().UnsetPreference(ctx, user.ID, interfaces.PrefForcePasswordChange); err != nil {
						uc.trackBackendError(upt, sum, err)
						return 0, false
					}
				}
				if err := uc.repo.Users().UnsetPreference(ctx, user.ID, interfaces.PrefCreatePassword); err != nil {
					uc.trackBackendError(upt, sum, err)
					return 0, false
				}
				hash, err := uc.cred.Hash(pw)
				if err != nil {
					uc.trackBackendError(upt, sum, err)
					return 0, false
				}
				user.Password = hash
			}
		}
	}

	if doUpdate || user.Password != existing.Password {
		if err := uc.repo.Users().Update(ctx, user); err != nil {
			upt.Track("status", "not updated: "+err.Error(), types.SeverityError, false)
			sum.Errors++
			return 0, false
		}
		upt.Track("status", "updated", types.SeverityNormal, false)
		sum.Updated++
		if uc.policy.Bulk.IncludesUpdated() {
			sum.AddBulkUser(user.ID)
		}
		updated := user.Clone()
		async.Dispatch(ctx, func(ctx context.Context) error {
			return uc.notifier.UserUpdated(ctx, updated)
		})
	} else {
		upt.Track("status", "up to date", types.SeverityNormal, false)
		sum.UpToDate++
		if uc.policy.Bulk.IncludesUpToDate() {
			sum.AddBulkUser(user.ID)
		}
	}

	if doLogout {
		if err := uc.repo.Users().InvalidateSessions(ctx, user.ID); err != nil {
			uc.trackBackendError(upt, sum, err)
			return 0, false
		}
	}
	return user.ID, true
}

// mergeFields applies the plain field merge, including the email and lang
// special cases. Reports false when the whole row must error out.
func (uc *UseCases) mergeFields(ctx context.Context, row *model.Row, user *model.User, fromDefault map[string]bool, upt *Tracker, sum *model.Summary, doUpdate *bool) bool {
	for _, col := range mergeColumns(row) {
		if !row.Has(col) {
			continue
		}
		current, addressable := user.Field(col)
		if !addressable {
			continue
		}
		incoming := row.Get(col)

		switch uc.policy.UpdateStrategy {
		case types.UpdateMissing:
			if current != "" {
				continue
			}
		case types.UpdateFileOverride:
			if fromDefault[col] {
				continue
			}
		}
		if current == incoming {
			continue
		}

		if col == model.FieldEmail {
			exists, err := uc.repo.Users().EmailExists(ctx, incoming)
			if err != nil {
				uc.trackBackendError(upt, sum, err)
				return false
			}
			if exists {
				if strings.EqualFold(current, incoming) {
					// Only the case changed; normalize and proceed.
					incoming = strings.ToLower(incoming)
					if incoming == current {
						continue
					}
				} else if uc.policy.NoEmailDuplicates {
					dup := goerr.Wrap(model.ErrEmailDuplicate, incoming,
						goerr.V(model.FieldKey, model.FieldEmail))
					upt.Track(model.FieldEmail, dup.Error(), types.SeverityError, false)
					upt.Track("status", "not updated", types.SeverityError, false)
					sum.Errors++
					return false
				} else {
					upt.Track(model.FieldEmail, "duplicate email address", types.SeverityWarning, false)
				}
			}
			if !model.ValidEmail(incoming) {
				incoming = uc.policy.EmailFallback(user.Username)
				if incoming == current {
					continue
				}
			}
		}
		if col == model.FieldLang {
			if incoming == "" {
				continue
			}
			if !uc.policy.LangSupported(incoming) {
				upt.Track("status", "unknown language "+incoming+", ignored", types.SeverityWarning, false)
				continue
			}
		}

		if knownColumn(col) {
			upt.Track(col, current+" --> "+incoming, types.SeverityInfo, false)
		}
		user.SetField(col, incoming)
		*doUpdate = true
	}
	return true
}

// mergeColumns lists the mergeable standard fields plus the row's profile
// attributes in a stable order.
func mergeColumns(row *model.Row) []string {
	cols := model.MergeableFields()
	profile := make([]string, 0, len(row.Profile))
	for name := range row.Profile {
		profile = append(profile, name)
	}
	sort.Strings(profile)
	return append(cols, profile...)
}
