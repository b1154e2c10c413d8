package bot

import (
	"strings"

	"github.com/google/uuid"
)

func newReqID() string {
	// First block of a random UUID: short enough for log lines, unique enough per process.
	id := uuid.NewString()
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// parseCommand splits "/name@bot arg1 arg2" into ("name", [arg1 arg2]).
// ok is false when text is not a slash command.
func parseCommand(text string) (name string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	parts := tokenize(text)
	if len(parts) == 0 {
		return "", nil, false
	}
	name = strings.TrimPrefix(parts[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), parts[1:], true
}

// tokenize splits on whitespace; double or single quotes group words.
//
//	/setarea "12,5 м²"
func tokenize(s string) []string {
	var (
		out   []string
		buf   strings.Builder
		quote rune
	)
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, buf.String())
			buf.Reset()
		}
	}
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			buf.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		default:
			buf.WriteRune(r)
		}
	}
	flush()
	return out
}
