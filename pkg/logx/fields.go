package logx

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Keys shared by every component, so one attribute is spelled one way.
const (
	KeyComponent = "comp"
	KeyRequest   = "rid"
	KeyUser      = "user_id"
	KeyChat      = "chat_id"
)

// Field mutates a zerolog event. Fields are applied in order; later keys win.
type Field func(e *zerolog.Event)

func String(k, v string) Field          { return func(e *zerolog.Event) { e.Str(k, v) } }
func Int(k string, v int) Field         { return func(e *zerolog.Event) { e.Int(k, v) } }
func Int64(k string, v int64) Field     { return func(e *zerolog.Event) { e.Int64(k, v) } }
func Uint64(k string, v uint64) Field   { return func(e *zerolog.Event) { e.Uint64(k, v) } }
func Bool(k string, v bool) Field       { return func(e *zerolog.Event) { e.Bool(k, v) } }
func Float64(k string, v float64) Field { return func(e *zerolog.Event) { e.Float64(k, v) } }
func Duration(k string, v time.Duration) Field {
	return func(e *zerolog.Event) { e.Dur(k, v) }
}
func Any(k string, v any) Field { return func(e *zerolog.Event) { e.Interface(k, v) } }
func Err(err error) Field {
	return func(e *zerolog.Event) {
		if err != nil {
			e.Err(err)
		}
	}
}

// Stringer logs v.String(); a nil v is skipped.
func Stringer(k string, v fmt.Stringer) Field {
	return func(e *zerolog.Event) {
		if v != nil {
			e.Str(k, v.String())
		}
	}
}

func Comp(name string) Field   { return String(KeyComponent, name) }
func Request(rid string) Field { return String(KeyRequest, rid) }
func User(id int64) Field      { return Int64(KeyUser, id) }
func Chat(id int64) Field      { return Int64(KeyChat, id) }
