package widget

import (
	stderrors "errors"

	"github.com/milodocs/pagekit/askdocs"
	"github.com/milodocs/pagekit/component"
	pkgerrors "github.com/milodocs/pagekit/errors"
	"github.com/milodocs/pagekit/search"
)

// Services carries the shared backends widgets depend on. Nil fields skip
// the widgets that need them.
type Services struct {
	Chat   *askdocs.Client
	Search *search.Index
}

// Register adds every built-in widget descriptor to the registry. Widgets
// whose backing service is absent are skipped: a site without a search index
// simply has no search component registered.
func Register(registry *component.Registry, svc Services) error {
	if registry == nil {
		return pkgerrors.WrapFatal(
			stderrors.New("registry cannot be nil"),
			"Widget", "Register", "registry validation")
	}

	if err := RegisterThemeToggle(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "Widget", "Register", "theme-toggle registration")
	}
	if err := RegisterCollapse(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "Widget", "Register", "collapse registration")
	}
	if err := RegisterTabs(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "Widget", "Register", "tabs registration")
	}
	if err := RegisterClipboard(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "Widget", "Register", "clipboard registration")
	}
	if err := RegisterTOC(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "Widget", "Register", "toc registration")
	}

	if svc.Chat != nil {
		if err := RegisterChat(registry, svc.Chat); err != nil {
			return pkgerrors.WrapInvalid(err, "Widget", "Register", "chat registration")
		}
	}
	if svc.Search != nil {
		if err := RegisterSearchBar(registry, svc.Search); err != nil {
			return pkgerrors.WrapInvalid(err, "Widget", "Register", "search registration")
		}
	}

	return nil
}
