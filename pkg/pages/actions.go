// Package pages holds the page objects of the application under test
// and the element actions and assertions they are built from.
package pages

import (
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"digital.vasic.harness/pkg/logging"
)

// HighlightColor is painted over elements before they are used.
const HighlightColor = "rgba(225, 255, 0, 1)"

const highlightScript = `(el, color) => {
	el.style.boxShadow = 'inset 0 0 0 1000px ' + color;
	el.style.transition = 'box-shadow 0.3s ease-in-out';
	setTimeout(() => { el.style.boxShadow = ''; }, 1000);
}`

// AssertionError reports a text assertion that did not hold. Its
// message follows the multi-line expect(...) failure layout, so the
// session reason names the locator.
type AssertionError struct {
	Selector string
	Expected string
	Actual   string
	Found    bool
	Err      error
}

func (e *AssertionError) Error() string {
	received := fmt.Sprintf("Received string: %q", e.Actual)
	if !e.Found {
		received = "Received: <element(s) not found>"
	}
	return fmt.Sprintf(
		"expect(locator).toHaveText(expected) failed\n\nLocator: locator(%q)\nExpected string: %q\n%s",
		e.Selector, e.Expected, received,
	)
}

func (e *AssertionError) Unwrap() error { return e.Err }

// ElementActions wraps element interactions with visibility checks,
// highlighting and logging that never includes typed values.
type ElementActions struct {
	page   playwright.Page
	logger logging.Logger
	expect playwright.PlaywrightAssertions
}

// NewElementActions creates ElementActions for page.
func NewElementActions(page playwright.Page, logger logging.Logger) *ElementActions {
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &ElementActions{
		page:   page,
		logger: logger,
		expect: playwright.NewPlaywrightAssertions(),
	}
}

func (a *ElementActions) locator(selector string) playwright.Locator {
	return a.page.Locator(selector)
}

func (a *ElementActions) highlight(loc playwright.Locator) {
	if _, err := loc.Evaluate(highlightScript, HighlightColor); err != nil {
		a.logger.Debug("highlight failed, element could not be styled")
	}
}

// AssertVisible waits for the element to be visible.
func (a *ElementActions) AssertVisible(selector string) error {
	loc := a.locator(selector)
	a.highlight(loc)
	if err := a.expect.Locator(loc).ToBeVisible(); err != nil {
		a.logger.Warn("element is not visible",
			logging.StringField("selector", selector), logging.ErrorField(err))
		return fmt.Errorf("locator(%q) is not visible: %w", selector, err)
	}
	return nil
}

// AssertClickable checks the element is enabled and that a trial
// click would land on it.
func (a *ElementActions) AssertClickable(selector string) error {
	loc := a.locator(selector)
	a.highlight(loc)
	if err := a.expect.Locator(loc).ToBeEnabled(); err != nil {
		return fmt.Errorf("locator(%q) is not enabled: %w", selector, err)
	}
	if err := loc.Click(playwright.LocatorClickOptions{Trial: playwright.Bool(true)}); err != nil {
		return fmt.Errorf("locator(%q) is not clickable: %w", selector, err)
	}
	return nil
}

// Click clicks the element once it is clickable.
func (a *ElementActions) Click(selector string) error {
	err := a.AssertClickable(selector)
	if err == nil {
		err = a.locator(selector).Click()
	}
	if err != nil {
		a.logger.Warn("click failed",
			logging.StringField("selector", selector), logging.ErrorField(err))
		return err
	}
	a.logger.Debug("click performed", logging.StringField("selector", selector))
	return nil
}

// SendKeys clears the field and types value into it.
func (a *ElementActions) SendKeys(selector, value string) error {
	err := a.AssertVisible(selector)
	loc := a.locator(selector)
	if err == nil {
		err = loc.Fill("")
	}
	if err == nil {
		err = loc.PressSequentially(value)
	}
	if err != nil {
		a.logger.Warn("text input failed",
			logging.StringField("selector", selector), logging.ErrorField(err))
		return err
	}
	a.logger.Debug("text input completed", logging.StringField("selector", selector))
	return nil
}

// AssertText checks the element text equals expected.
func (a *ElementActions) AssertText(selector, expected string) error {
	loc := a.locator(selector)
	a.highlight(loc)
	err := a.expect.Locator(loc).ToHaveText(expected)
	if err == nil {
		a.logger.Debug("text assertion passed",
			logging.StringField("selector", selector),
			logging.StringField("expected", expected))
		return nil
	}

	aerr := &AssertionError{Selector: selector, Expected: expected, Err: err}
	if n, cerr := loc.Count(); cerr == nil && n > 0 {
		aerr.Found = true
		aerr.Actual, _ = loc.First().TextContent()
	}
	a.logger.Warn("text assertion failed",
		logging.StringField("expected", expected),
		logging.StringField("actual", aerr.Actual),
		logging.BoolField("found", aerr.Found))
	return aerr
}

// IsAssertion reports whether err came from a failed assertion.
func IsAssertion(err error) bool {
	var aerr *AssertionError
	return errors.As(err, &aerr)
}
