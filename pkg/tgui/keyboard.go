package tgui

import (
	tele "gopkg.in/telebot.v4"
)

// Keyboard builds an inline keyboard whose callback data all carry one scope.
// Buttons whose data would exceed MaxCallbackDataLen are skipped and counted.
type Keyboard struct {
	scope   string
	rows    []tele.Row
	cur     tele.Row
	dropped int
}

func NewKeyboard(scope string) *Keyboard {
	return &Keyboard{scope: scope}
}

// Button appends a callback button to the current row.
func (k *Keyboard) Button(label, action, payload string) *Keyboard {
	data, err := Data(k.scope, action, payload)
	if err != nil || action == "" {
		k.dropped++
		return k
	}
	k.cur = append(k.cur, tele.Btn{Text: label, Data: data})
	return k
}

// Break closes the current row. An empty row is not kept.
func (k *Keyboard) Break() *Keyboard {
	if len(k.cur) > 0 {
		k.rows = append(k.rows, k.cur)
		k.cur = nil
	}
	return k
}

func (k *Keyboard) Rows() int {
	n := len(k.rows)
	if len(k.cur) > 0 {
		n++
	}
	return n
}

// Dropped reports how many buttons were skipped.
func (k *Keyboard) Dropped() int { return k.dropped }

// Markup returns the reply markup, or nil when the keyboard has no buttons.
func (k *Keyboard) Markup() *tele.ReplyMarkup {
	k.Break()
	if len(k.rows) == 0 {
		return nil
	}
	rm := &tele.ReplyMarkup{}
	rm.Inline(k.rows...)
	return rm
}
