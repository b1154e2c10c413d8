package bot

import (
	"strings"

	"agroguru/internal/dialog"
	"agroguru/pkg/tgui"
)

// Scope prefixes every callback_data this bot emits.
const Scope = "garden"

// Render turns a dialog reply into an HTML message with an inline keyboard.
// Buttons whose callback data would exceed Telegram's limit are dropped.
func Render(r dialog.Reply) tgui.Message {
	b := tgui.New().Title(r.Title)
	for _, ln := range r.Lines {
		b.Line(ln)
	}

	kb := tgui.NewKeyboard(Scope)
	for _, row := range r.Choices {
		for _, c := range row {
			action, payload, _ := strings.Cut(c.Intent.Token(), ":")
			kb.Button(c.Label, action, payload)
		}
		kb.Break()
	}
	return b.Keyboard(kb).Build()
}
