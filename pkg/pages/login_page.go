package pages

import (
	"github.com/playwright-community/playwright-go"

	"digital.vasic.harness/pkg/logging"
)

// LoginPage drives the authentication form.
type LoginPage struct {
	actions *ElementActions
}

// NewLoginPage creates a LoginPage on page.
func NewLoginPage(page playwright.Page, logger logging.Logger) *LoginPage {
	return &LoginPage{actions: NewElementActions(page, logger)}
}

// DoLogin opens the form, fills in the credentials and submits.
func (p *LoginPage) DoLogin(email, password string) error {
	if err := p.actions.Click(SelectorLoginButton); err != nil {
		return err
	}
	if err := p.actions.SendKeys(SelectorEmailInput, email); err != nil {
		return err
	}
	if err := p.actions.SendKeys(SelectorPasswordInput, password); err != nil {
		return err
	}
	return p.actions.Click(SelectorSubmitButton)
}
