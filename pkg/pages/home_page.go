package pages

import (
	"github.com/playwright-community/playwright-go"

	"digital.vasic.harness/pkg/logging"
)

// HomePage is the landing page of an authenticated user.
type HomePage struct {
	actions *ElementActions
}

// NewHomePage creates a HomePage on page.
func NewHomePage(page playwright.Page, logger logging.Logger) *HomePage {
	return &HomePage{actions: NewElementActions(page, logger)}
}

// AssertLoginSuccess checks the confirmation toast text.
func (p *HomePage) AssertLoginSuccess(expected string) error {
	return p.actions.AssertText(SelectorLoginToast, expected)
}

// DoLogOut opens the user menu and logs out.
func (p *HomePage) DoLogOut() error {
	if err := p.actions.Click(SelectorUserMenuButton); err != nil {
		return err
	}
	return p.actions.Click(SelectorLogOutButton)
}
