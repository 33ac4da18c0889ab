package widget

import (
	"context"
	"encoding/json"

	"github.com/milodocs/pagekit/askdocs"
	"github.com/milodocs/pagekit/component"
	"github.com/milodocs/pagekit/dom"
	"github.com/milodocs/pagekit/storage"
)

const chatStorageKey = "chat-transcript"

// ChatMessage is one question/answer exchange in the transcript.
type ChatMessage struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
}

// Chat is the documentation assistant panel. Questions go to the remote
// chat endpoint; the transcript is rendered as bubbles and persisted. A
// failed question renders an error bubble that retries on activation.
type Chat struct {
	*component.Base
	ctx        context.Context
	client     *askdocs.Client
	transcript []ChatMessage
	log        *dom.Element
}

// RegisterChat adds the chat descriptor to a registry. The client performs
// the remote calls and is shared across instances.
func RegisterChat(reg *component.Registry, client *askdocs.Client) error {
	return reg.Register(&component.Registration{
		Name:        "chat",
		Description: "Documentation assistant with persisted transcript",
		Selector:    "#chat",
		DefaultOptions: map[string]any{
			"persistTranscript": true,
		},
		OptionsSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"persistTranscript": {"type": "boolean"}
			}
		}`),
		Factory: func(cfg component.Config, deps component.Dependencies) (component.Component, error) {
			w := &Chat{client: client}
			w.Base = component.NewBase(cfg, deps, w)
			return w, nil
		},
	})
}

// SetupElements locates or creates the transcript log container.
func (w *Chat) SetupElements(ctx context.Context) error {
	w.ctx = ctx

	log, err := w.Element().QuerySelector("[data-chat-log]")
	if err != nil {
		return err
	}
	if log == nil {
		log = w.Deps().Document.CreateElement("div")
		log.SetAttr("data-chat-log", "")
		w.Element().AppendChild(log)
	}
	w.log = log
	return nil
}

func (w *Chat) BindEvents(ctx context.Context) error {
	// Submissions arrive as synthetic "ask" events carrying the question.
	w.Listen(w.Element(), "ask", func(ev *dom.UIEvent) {
		if q, ok := ev.Payload.(string); ok && q != "" {
			w.Ask(q)
		}
	})
	return nil
}

// OnInit restores the persisted transcript and renders it.
func (w *Chat) OnInit(ctx context.Context) error {
	if store := w.Deps().Store; store != nil && w.persist() {
		var transcript []ChatMessage
		if err := storage.GetJSON(ctx, store, chatStorageKey, &transcript); err == nil {
			w.transcript = transcript
		}
	}
	for _, msg := range w.transcript {
		w.renderExchange(msg)
	}
	return nil
}

// Ask sends a question to the assistant, records the exchange, and renders
// it. On failure an error bubble with a retry affordance is rendered
// instead; activating it re-asks the same question.
func (w *Chat) Ask(question string) {
	answer, err := w.client.Ask(w.ctx, question)
	if err != nil {
		w.Logger().Warn("assistant request failed", "error", err)
		w.renderError(question)
		w.Emit("error", map[string]string{"question": question})
		return
	}

	msg := ChatMessage{User: question, Bot: answer}
	w.transcript = append(w.transcript, msg)
	w.renderExchange(msg)

	if store := w.Deps().Store; store != nil && w.persist() {
		if err := storage.PutJSON(w.ctx, store, chatStorageKey, w.transcript); err != nil {
			w.Logger().Warn("transcript not persisted", "error", err)
		}
	}
	w.Emit("answered", msg)
}

// Transcript returns the recorded exchanges.
func (w *Chat) Transcript() []ChatMessage { return w.transcript }

func (w *Chat) persist() bool {
	return component.GetBool(w.Options(), "persistTranscript", true)
}

func (w *Chat) renderExchange(msg ChatMessage) {
	doc := w.Deps().Document

	user := doc.CreateElement("div")
	user.AddClass("chat-bubble")
	user.AddClass("user")
	user.SetText(msg.User)
	w.log.AppendChild(user)

	bot := doc.CreateElement("div")
	bot.AddClass("chat-bubble")
	bot.AddClass("bot")
	bot.SetText(msg.Bot)
	w.log.AppendChild(bot)
}

func (w *Chat) renderError(question string) {
	doc := w.Deps().Document

	bubble := doc.CreateElement("div")
	bubble.AddClass("chat-bubble")
	bubble.AddClass("error")
	bubble.SetAttr("data-chat-retry", question)
	bubble.SetText("The assistant is unavailable. Select to retry.")
	w.log.AppendChild(bubble)

	w.Listen(bubble, "click", func(*dom.UIEvent) {
		bubble.Remove()
		w.Ask(question)
	})
}
