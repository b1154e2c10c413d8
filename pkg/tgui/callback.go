package tgui

import (
	"errors"
	"fmt"
	"strings"
)

// MaxCallbackDataLen is Telegram's callback_data limit in bytes, counted over
// the whole "scope:action:payload" string.
const MaxCallbackDataLen = 64

var ErrCallbackDataTooLong = errors.New("tgui: callback_data too long")

// Data formats inline callback data as "scope:action[:payload]".
// Payload is kept as-is (no escaping).
func Data(scope, action, payload string) (string, error) {
	scope = strings.TrimSpace(scope)
	action = strings.TrimSpace(action)
	s := scope + ":" + action
	if payload != "" {
		s += ":" + payload
	}
	if len(s) > MaxCallbackDataLen {
		return "", fmt.Errorf("%w: %d bytes", ErrCallbackDataTooLong, len(s))
	}
	return s, nil
}

// Split is the inverse of Data. ok is false when data has no "scope:" prefix.
// The remainder after scope is returned unparsed so callers can apply their
// own action/payload grammar.
func Split(data string) (scope, rest string, ok bool) {
	scope, rest, ok = strings.Cut(data, ":")
	if !ok || scope == "" || rest == "" {
		return "", "", false
	}
	return scope, rest, true
}
