package widget

import (
	"context"
	"encoding/json"

	"github.com/milodocs/pagekit/component"
	"github.com/milodocs/pagekit/dom"
)

// Clipboard annotates copy buttons: each button's data-copy-target names the
// id of a code block whose text becomes the copy payload. Activating a
// button stamps it copied and emits the payload on the bus.
type Clipboard struct {
	*component.Base
	copiedAttr string
	buttons    []*dom.Element
}

// RegisterClipboard adds the clipboard descriptor to a registry.
func RegisterClipboard(reg *component.Registry) error {
	return reg.Register(&component.Registration{
		Name:        "clipboard",
		Description: "Copy buttons for code blocks",
		Selector:    "[data-clipboard]",
		DefaultOptions: map[string]any{
			"copiedAttr": "data-copied",
		},
		OptionsSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"copiedAttr": {"type": "string"}
			}
		}`),
		Factory: func(cfg component.Config, deps component.Dependencies) (component.Component, error) {
			w := &Clipboard{}
			w.Base = component.NewBase(cfg, deps, w)
			return w, nil
		},
	})
}

func (w *Clipboard) SetupElements(ctx context.Context) error {
	w.copiedAttr = component.GetString(w.Options(), "copiedAttr", "data-copied")

	buttons, err := w.Element().QuerySelectorAll("[data-copy-target]")
	if err != nil {
		return err
	}
	w.buttons = buttons
	return nil
}

func (w *Clipboard) BindEvents(ctx context.Context) error {
	for _, btn := range w.buttons {
		btn := btn
		w.Listen(btn, "click", func(*dom.UIEvent) {
			w.copy(btn)
		})
	}
	return nil
}

func (w *Clipboard) OnInit(ctx context.Context) error { return nil }

func (w *Clipboard) copy(btn *dom.Element) {
	targetID := btn.Attr("data-copy-target")
	target, err := w.Deps().Document.QuerySelector("#" + targetID)
	if err != nil || target == nil {
		w.Logger().Warn("copy target missing", "target", targetID)
		return
	}

	text := target.Text()
	btn.SetAttr(w.copiedAttr, "true")
	w.Emit("copied", map[string]string{"target": targetID, "text": text})
}
