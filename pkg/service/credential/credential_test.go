package credential_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/edulab-tools/usersync/pkg/domain/model"
	"github.com/edulab-tools/usersync/pkg/domain/types"
	"github.com/edulab-tools/usersync/pkg/service/credential"
)

func TestResolve(t *testing.T) {
	svc := credential.New(model.PasswordRules{})

	t.Run("manual is internal and allows login", func(t *testing.T) {
		p, err := svc.Resolve(types.AuthManual)
		gt.NoError(t, err).Required()
		gt.Bool(t, p.IsInternal()).True()
		gt.Bool(t, p.AllowsLogin()).True()
	})

	t.Run("nologin is internal but blocks login", func(t *testing.T) {
		p, err := svc.Resolve(types.AuthNoLogin)
		gt.NoError(t, err).Required()
		gt.Bool(t, p.IsInternal()).True()
		gt.Bool(t, p.AllowsLogin()).False()
	})

	t.Run("ldap is external", func(t *testing.T) {
		p, err := svc.Resolve("ldap")
		gt.NoError(t, err).Required()
		gt.Bool(t, p.IsInternal()).False()
	})

	t.Run("unknown kind fails", func(t *testing.T) {
		_, err := svc.Resolve("carrier-pigeon")
		gt.Error(t, err)
	})
}

func TestCheckPassword(t *testing.T) {
	svc := credential.New(model.PasswordRules{
		MinLength:      8,
		MinDigits:      1,
		MinLower:       1,
		MinUpper:       1,
		MinNonAlphaNum: 1,
	})

	gt.NoError(t, svc.CheckPassword("Str0ng-pass"))

	for _, weak := range []string{"short", "alllowercase1!", "ALLUPPERCASE1!", "NoDigits!", "NoSpecial1"} {
		err := svc.CheckPassword(weak)
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, model.ErrWeakPassword)).True()
	}
}

func TestHashAndMatches(t *testing.T) {
	svc := credential.New(model.PasswordRules{})

	hash, err := svc.Hash("Secret123!")
	gt.NoError(t, err).Required()
	gt.Value(t, hash).NotEqual("Secret123!")

	gt.Bool(t, svc.Matches(hash, "Secret123!")).True()
	gt.Bool(t, svc.Matches(hash, "wrong")).False()
	gt.Bool(t, svc.Matches(types.PasswordNotCached, "Secret123!")).False()
}
