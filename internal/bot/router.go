// Package bot routes chat updates to the dialog state machine and renders
// its replies back through the transport adapter.
package bot

import (
	"context"
	"errors"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"agroguru/internal/dialog"
	"agroguru/internal/eventbus"
	rtsup "agroguru/internal/runtime/supervisor"
	kit "agroguru/internal/transport"
	logx "agroguru/pkg/logx"
	"agroguru/pkg/tgui"
)

const (
	internalErrorText = "Что-то пошло не так. Попробуй ещё раз или открой /start."
	busyText          = "Бот занят, попробуй через пару секунд."
	slowDownText      = "Слишком часто, подожди немного."
)

// Dialog is the conversation logic the router drives.
type Dialog interface {
	HandleCommand(userID int64, name string, args []string) (dialog.Reply, error)
	HandleCallback(userID int64, token string) (dialog.Reply, error)
	HandleText(userID int64, text string) (dialog.Reply, error)
}

type Config struct {
	// Workers is the number of job shards; a user's updates always land on the same one.
	Workers   int
	QueueSize int // per worker
	// UserRatePerSec <= 0 disables per-user limiting.
	UserRatePerSec float64
	UserBurst      int
	// MaxLimiters bounds how many per-user limiters are kept.
	MaxLimiters    int
	HandlerTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.UserBurst <= 0 {
		c.UserBurst = 3
	}
	if c.MaxLimiters <= 0 {
		c.MaxLimiters = 10000
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 15 * time.Second
	}
	return c
}

type Request struct {
	Update kit.Update
	Chat   kit.ChatTarget
	FromID int64
	Route  string // "cmd:<name>", "text" or "cb:<token>"
	ReqID  string
	Logger logx.Logger
}

type Router struct {
	cfg     Config
	log     logx.Logger
	adapter kit.Adapter
	dialog  Dialog
	bus     eventbus.Bus

	limMu    sync.Mutex
	limit    rate.Limit
	burst    int
	limiters *lru.Cache[int64, *rate.Limiter]

	// shards are fed only from the DispatchLoop goroutine.
	shards []chan func()
}

func New(cfg Config, adapter kit.Adapter, d Dialog, bus eventbus.Bus, log logx.Logger) *Router {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	lim, _ := lru.New[int64, *rate.Limiter](cfg.MaxLimiters)
	r := &Router{
		cfg:      cfg,
		log:      log,
		adapter:  adapter,
		dialog:   d,
		bus:      bus,
		limiters: lim,
		limit:    rate.Limit(cfg.UserRatePerSec),
		burst:    cfg.UserBurst,
		shards:   make([]chan func(), cfg.Workers),
	}
	for i := range r.shards {
		r.shards[i] = make(chan func(), cfg.QueueSize)
	}
	return r
}

// SetUserRate changes per-user limits at runtime. Existing limiters are discarded.
func (r *Router) SetUserRate(perSec float64, burst int) {
	if burst <= 0 {
		burst = 3
	}
	r.limMu.Lock()
	r.limit = rate.Limit(perSec)
	r.burst = burst
	r.limiters.Purge()
	r.limMu.Unlock()
}

func (r *Router) allow(userID int64) bool {
	r.limMu.Lock()
	defer r.limMu.Unlock()
	if r.limit <= 0 {
		return true
	}
	l, ok := r.limiters.Get(userID)
	if !ok {
		l = rate.NewLimiter(r.limit, r.burst)
		r.limiters.Add(userID, l)
	}
	return l.Allow()
}

// PublishMenu pushes MenuCommands to adapters that support a command menu.
func (r *Router) PublishMenu(ctx context.Context) {
	up, ok := r.adapter.(kit.CommandMenuUpdater)
	if !ok {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := up.UpdateMenuCommands(cctx, MenuCommands()); err != nil {
		r.log.Warn("menu commands update failed", logx.Err(err))
	}
}

// shardFor maps a user to a fixed worker.
func (r *Router) shardFor(userID int64) int {
	return int(uint64(userID) % uint64(len(r.shards)))
}

// enqueue hands fn to the user's shard without blocking. It reports false when
// the shard is full.
func (r *Router) enqueue(userID int64, fn func()) bool {
	idx := r.shardFor(userID)
	select {
	case r.shards[idx] <- fn:
		return true
	default:
		return false
	}
}

// DispatchLoop consumes updates until ctx is done or updates is closed. It may
// be called once per Router. Jobs run on a sharded worker pool under an
// internal supervisor, so one user's updates are handled in arrival order.
func (r *Router) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	sup := rtsup.New(ctx,
		rtsup.WithLogger(r.log.With(logx.Comp("bot.router"))),
		rtsup.WithCancelOnError(false),
	)
	r.log.Info("dispatcher started", logx.Int("workers", len(r.shards)), logx.Int("queue_cap", r.cfg.QueueSize))

	for idx, jobs := range r.shards {
		sup.GoRestart("bot.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job, ok := <-jobs:
					if !ok {
						return nil
					}
					r.runJob(idx, job)
				}
			}
		},
			rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			rtsup.WithPublishFirstError(true),
		)
	}

	defer func() {
		for _, jobs := range r.shards {
			close(jobs)
		}
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Stop(wctx)
		cancel()
		c := sup.Counters()
		r.log.Info("dispatcher stopped", logx.Uint64("worker_restarts", c.Restarts), logx.Uint64("worker_panics", c.Panics))
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.route(ctx, up)
		}
	}
}

func (r *Router) runJob(worker int, job func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("panic in job", logx.Int("worker", worker), logx.Any("panic", rec), logx.String("stack", string(debug.Stack())))
		}
	}()
	job()
}

func (r *Router) route(ctx context.Context, up kit.Update) {
	switch up.Kind {
	case kit.UpdateMessage:
		r.routeMessage(ctx, up)
	case kit.UpdateCallback:
		r.routeCallback(ctx, up)
	}
}

func (r *Router) newRequest(up kit.Update, chat kit.ChatTarget, from int64, route string) *Request {
	rid := newReqID()
	return &Request{
		Update: up,
		Chat:   chat,
		FromID: from,
		Route:  route,
		ReqID:  rid,
		Logger: r.log.With(
			logx.Request(rid),
			logx.Chat(chat.ChatID),
			logx.User(from),
		),
	}
}

func (r *Router) chain(h HandlerFunc) HandlerFunc {
	return Chain(h,
		MWPanicRecover(r.log),
		MWRequestLog(r.log),
		MWPublishChanges(r.bus),
	)
}

// withDeadline bounds one request: the handler chain and the reply delivery.
func (r *Router) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.cfg.HandlerTimeout)
}

func (r *Router) routeMessage(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	chat := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}
	if !r.allow(msg.FromID) {
		r.log.Debug("message rate limited", logx.User(msg.FromID))
		return
	}

	var (
		route string
		call  HandlerFunc
	)
	if name, args, ok := parseCommand(msg.Text); ok {
		route = "cmd:" + name
		call = func(context.Context, *Request) (dialog.Reply, error) {
			return r.dialog.HandleCommand(msg.FromID, name, args)
		}
	} else {
		route = "text"
		call = func(context.Context, *Request) (dialog.Reply, error) {
			return r.dialog.HandleText(msg.FromID, msg.Text)
		}
	}

	req := r.newRequest(up, chat, msg.FromID, route)
	h := r.chain(call)
	job := func() {
		rctx, cancel := r.withDeadline(ctx)
		defer cancel()
		reply, err := h(rctx, req)
		if err != nil {
			_, _ = r.adapter.SendText(ctx, req.Chat, internalErrorText, nil)
			return
		}
		if _, err := Render(reply).Send(rctx, r.adapter, req.Chat); err != nil {
			req.Logger.Warn("send reply failed", logx.Err(err))
		}
	}
	if !r.enqueue(msg.FromID, job) {
		_, _ = r.adapter.SendText(ctx, chat, busyText, nil)
	}
}

func (r *Router) routeCallback(ctx context.Context, up kit.Update) {
	cb := up.Callback
	if cb == nil {
		return
	}
	scope, token, ok := tgui.Split(strings.TrimSpace(cb.Data))
	if !ok || scope != Scope {
		_ = r.adapter.AnswerCallback(ctx, cb.ID, "")
		return
	}
	if !r.allow(cb.FromID) {
		_ = r.adapter.AnswerCallback(ctx, cb.ID, slowDownText)
		return
	}

	chat := kit.ChatTarget{ChatID: cb.ChatID, ThreadID: cb.ThreadID}
	ref := kit.MessageRef{ChatID: cb.ChatID, ThreadID: cb.ThreadID, MessageID: cb.MessageID}
	req := r.newRequest(up, chat, cb.FromID, "cb:"+token)
	h := r.chain(func(context.Context, *Request) (dialog.Reply, error) {
		return r.dialog.HandleCallback(cb.FromID, token)
	})
	job := func() {
		// The client's loading spinner stops only once the callback is answered,
		// so answers use ctx rather than the request deadline.
		rctx, cancel := r.withDeadline(ctx)
		defer cancel()
		reply, err := h(rctx, req)
		if err != nil {
			_, _ = r.adapter.SendText(ctx, req.Chat, internalErrorText, nil)
			text := ""
			if !errors.Is(err, context.Canceled) {
				text = "Ошибка"
			}
			_ = r.adapter.AnswerCallback(ctx, cb.ID, text)
			return
		}
		msg := Render(reply)
		if err := msg.Edit(rctx, r.adapter, ref); err != nil {
			// Old messages cannot be edited; fall back to a new one.
			req.Logger.Debug("edit failed, sending new message", logx.Err(err))
			if _, err := msg.Send(rctx, r.adapter, req.Chat); err != nil {
				req.Logger.Warn("send reply failed", logx.Err(err))
			}
		}
		_ = r.adapter.AnswerCallback(ctx, cb.ID, "")
	}
	if !r.enqueue(cb.FromID, job) {
		_ = r.adapter.AnswerCallback(ctx, cb.ID, busyText)
	}
}
