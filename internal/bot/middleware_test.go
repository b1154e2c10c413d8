package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agroguru/internal/dialog"
	"agroguru/internal/eventbus"
	kit "agroguru/internal/transport"
	logx "agroguru/pkg/logx"
)

func testRequest() *Request {
	return &Request{FromID: 7, Chat: kit.ChatTarget{ChatID: 70}, Route: "text", ReqID: "r1", Logger: logx.Nop()}
}

func TestChainOrder(t *testing.T) {
	var seen []string
	mark := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req *Request) (dialog.Reply, error) {
				seen = append(seen, name)
				return next(ctx, req)
			}
		}
	}
	h := Chain(func(context.Context, *Request) (dialog.Reply, error) {
		seen = append(seen, "handler")
		return dialog.Reply{}, nil
	}, mark("outer"), mark("inner"))

	_, err := h(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler"}, seen)
}

func TestPanicRecoverReturnsError(t *testing.T) {
	h := MWPanicRecover(logx.Nop())(func(context.Context, *Request) (dialog.Reply, error) {
		panic("bad soil")
	})
	reply, err := h(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad soil")
	assert.Empty(t, reply.Title)
}

func TestPublishChangesOnlyOnSuccess(t *testing.T) {
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(4, eventbus.TypeSettingsChanged)
	defer unsub()

	ok := MWPublishChanges(bus)(func(context.Context, *Request) (dialog.Reply, error) {
		return dialog.Reply{Changes: []dialog.Change{{Field: "soil", Value: "loam"}}}, nil
	})
	failed := MWPublishChanges(bus)(func(context.Context, *Request) (dialog.Reply, error) {
		return dialog.Reply{Changes: []dialog.Change{{Field: "area_m2", Value: "3"}}}, errors.New("boom")
	})

	_, err := failed(context.Background(), testRequest())
	require.Error(t, err)
	_, err = ok(context.Background(), testRequest())
	require.NoError(t, err)

	e := <-ch
	sc, isChange := e.Data.(eventbus.SettingsChanged)
	require.True(t, isChange)
	assert.Equal(t, eventbus.SettingsChanged{UserID: 7, ChatID: 70, Field: "soil", Value: "loam", RequestID: "r1"}, sc)
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %+v", e)
	default:
	}
}
