package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"agroguru/internal/dialog"
)

func TestRenderEscapesAndBuildsKeyboard(t *testing.T) {
	t.Parallel()
	msg := Render(dialog.Reply{
		Title: "Этап <1>",
		Lines: []string{"N & P"},
		Choices: [][]dialog.Choice{
			{{Label: "Меню", Intent: dialog.Intent{Kind: dialog.IntentMenu}}},
			{{Label: "Фаза", Intent: dialog.Intent{Kind: dialog.IntentPhase, Arg: "2"}}},
			{{Label: "Длинно", Intent: dialog.Intent{Kind: dialog.IntentDose, Arg: strings.Repeat("x", 80)}}},
		},
	})

	assert.Equal(t, "<b>Этап &lt;1&gt;</b>\nN &amp; P", msg.Text)
	require.NotNil(t, msg.Opt)
	rm, ok := msg.Opt.ReplyMarkupAdapter.(*tele.ReplyMarkup)
	require.True(t, ok)
	require.Len(t, rm.InlineKeyboard, 2)
	assert.Equal(t, "garden:menu", rm.InlineKeyboard[0][0].Data)
	assert.Equal(t, "garden:phase:2", rm.InlineKeyboard[1][0].Data)
}

func TestRenderWithoutChoicesHasNoMarkup(t *testing.T) {
	t.Parallel()
	msg := Render(dialog.Reply{Title: "Справка"})
	require.NotNil(t, msg.Opt)
	assert.Nil(t, msg.Opt.ReplyMarkupAdapter)
}
