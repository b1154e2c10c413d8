package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"agroguru/internal/dialog"
	"agroguru/internal/eventbus"
	logx "agroguru/pkg/logx"
)

// HandlerFunc produces the reply for one request. Delivery happens after the
// chain returns, under the same request deadline.
type HandlerFunc func(ctx context.Context, req *Request) (dialog.Reply, error)

type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

func MWPanicRecover(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (reply dialog.Reply, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger := log
					if req != nil && !req.Logger.IsZero() {
						logger = req.Logger
					}
					logger.Error("panic recovered",
						logx.Any("panic", r),
						logx.String("stack", string(debug.Stack())),
					)
					reply, err = dialog.Reply{}, fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

// MWRequestLog logs every request at Debug, slow ones at Info and failures at Warn.
func MWRequestLog(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (dialog.Reply, error) {
			start := time.Now()
			logger := log
			if !req.Logger.IsZero() {
				logger = req.Logger
			}
			reply, err := next(ctx, req)
			d := time.Since(start)

			fields := []logx.Field{
				logx.String("kind", string(req.Update.Kind)),
				logx.String("route", req.Route),
				logx.Duration("dur", d),
			}
			if n := len(reply.Changes); n > 0 {
				fields = append(fields, logx.Int("changes", n))
			}
			switch {
			case err != nil:
				logger.Warn("request failed", append(fields, logx.Err(err))...)
			case reply.Err != nil:
				logger.Debug("request rejected", append(fields, logx.Err(reply.Err))...)
			case d >= 750*time.Millisecond:
				logger.Info("request ok (slow)", fields...)
			default:
				logger.Debug("request ok", fields...)
			}
			return reply, err
		}
	}
}

// MWPublishChanges announces every settings change of a successful reply on bus.
func MWPublishChanges(bus eventbus.Bus) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (dialog.Reply, error) {
			reply, err := next(ctx, req)
			if err != nil || bus == nil {
				return reply, err
			}
			for _, ch := range reply.Changes {
				bus.Publish(eventbus.Event{
					Type: eventbus.TypeSettingsChanged,
					Data: eventbus.SettingsChanged{
						UserID:    req.FromID,
						ChatID:    req.Chat.ChatID,
						Field:     ch.Field,
						Value:     ch.Value,
						RequestID: req.ReqID,
					},
				})
			}
			return reply, nil
		}
	}
}
