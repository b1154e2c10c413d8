package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "agroguru/pkg/logx"
)

func TestSplitTextShort(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{""}, splitText("", 10, ""))
	assert.Equal(t, []string{"Полив"}, splitText("Полив", 10, ""))
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	t.Parallel()

	line := strings.Repeat("а", 30)
	text := strings.Join([]string{line, line, line, line}, "\n")
	chunks := splitText(text, 70, "")

	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 70)
		assert.False(t, strings.HasPrefix(c, "\n"))
		assert.False(t, strings.HasSuffix(c, "\n"))
	}
	assert.Equal(t, line+"\n"+line, chunks[0])
	assert.Equal(t, line+"\n"+line, chunks[1])
}

func TestSplitTextAvoidsCuttingHTMLTags(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("x", 8) + "<b>bold</b>"
	chunks := splitText(text, 10, "HTML")
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, strings.Repeat("x", 8), chunks[0])
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()
	_, err := New(Config{Token: "  "}, logx.Nop())
	assert.Error(t, err)
}
