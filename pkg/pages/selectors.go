package pages

// Login page selectors.
const (
	SelectorLoginButton   = `[data-test-id="header-login-button-desktop"]`
	SelectorEmailInput    = `[data-test-id="login-email-input"]`
	SelectorPasswordInput = `[data-test-id="login-password-input"]`
	SelectorSubmitButton  = `[data-test-id="login-submit-button"]`
)

// Home page selectors.
const (
	SelectorLoginToast     = `li[role="status"] .font-semibold`
	SelectorUserMenuButton = `button:has(svg.lucide-user)`
	SelectorLogOutButton   = `text=Log out`
)
