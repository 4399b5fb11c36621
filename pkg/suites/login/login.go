// Package login holds the login functional tests.
package login

import (
	"context"
	"errors"
	"time"

	"digital.vasic.harness/pkg/browserstack"
	"digital.vasic.harness/pkg/logging"
	"digital.vasic.harness/pkg/pages"
	"digital.vasic.harness/pkg/percy"
	"digital.vasic.harness/pkg/runner"
)

// Test titles. The annotations bind them to their remote test cases.
const (
	TitleValidLogin = "@PLAN_ID=92119 @SUITE_ID=98664 @[61931] Validate successful login"
	TitleLighthouse = "@PLAN_ID=92119 @SUITE_ID=98664 @[61932] Validate login with lighthouse"
)

// Group labels the tests of this suite in the metrics.
const Group = "login"

// CredentialsKey is the credentials block used by the suite.
const CredentialsKey = "valid_user"

// SuccessMessage is the toast shown after a successful login.
const SuccessMessage = "Login Successful"

// Auditor runs a Lighthouse audit on the device farm.
type Auditor interface {
	RunAudit(page browserstack.Page, url string) error
}

// Snapshotter captures visual snapshots.
type Snapshotter interface {
	Capture(ctx context.Context, page percy.Page, name string) error
}

// Suite builds the login tests. Both collaborators are optional.
type Suite struct {
	Auditor   Auditor
	Snapshots Snapshotter
}

// Tests returns the suite's tests.
func (s *Suite) Tests() []runner.Test {
	return []runner.Test{
		{Title: TitleValidLogin, Group: Group, Fn: s.validLogin},
		{Title: TitleLighthouse, Group: Group, Timeout: 60 * time.Second, Fn: s.lighthouseLogin},
	}
}

func credentials(t *runner.T) (email, password string, err error) {
	if t.Resolver == nil {
		return "", "", errors.New("no config resolver")
	}
	creds, err := t.Resolver.Credentials(CredentialsKey)
	if err != nil {
		return "", "", err
	}
	return creds["email"], creds["password"], nil
}

func (s *Suite) login(t *runner.T) error {
	email, password, err := credentials(t)
	if err != nil {
		return err
	}
	page := t.Page()
	if page == nil {
		return errors.New("test requires a browser page")
	}

	t.Step("login")
	if err := pages.NewLoginPage(page, t.Logger).DoLogin(email, password); err != nil {
		return err
	}
	t.Step("assert login success")
	return pages.NewHomePage(page, t.Logger).AssertLoginSuccess(SuccessMessage)
}

func (s *Suite) logout(t *runner.T) error {
	t.Step("logout")
	return pages.NewHomePage(t.Page(), t.Logger).DoLogOut()
}

func (s *Suite) validLogin(t *runner.T) error {
	if err := s.login(t); err != nil {
		return err
	}
	if s.Snapshots != nil {
		if err := s.Snapshots.Capture(t.Context(), t.Page(), "Home after login"); err != nil {
			t.Logger.Warn("snapshot failed", logging.ErrorField(err))
		}
	}
	return s.logout(t)
}

func (s *Suite) lighthouseLogin(t *runner.T) error {
	if s.Auditor == nil || t.Session == nil || !t.Session.Remote {
		return runner.Skip("lighthouse audit requires a remote session")
	}
	if err := s.login(t); err != nil {
		return err
	}
	t.Step("lighthouse audit")
	page := t.Page()
	if err := s.Auditor.RunAudit(page, page.URL()); err != nil {
		return err
	}
	return s.logout(t)
}
