// Package app wires configuration, logging, storage, the dialog engine and the
// Telegram transport into one supervised process.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agroguru/internal/audit"
	"agroguru/internal/bot"
	"agroguru/internal/calendar"
	"agroguru/internal/config"
	"agroguru/internal/dialog"
	"agroguru/internal/dosage"
	"agroguru/internal/eventbus"
	"agroguru/internal/housekeeping"
	"agroguru/internal/runtime/supervisor"
	"agroguru/internal/session"
	"agroguru/internal/storage"
	kit "agroguru/internal/transport"
	"agroguru/internal/transport/telegram"
	logx "agroguru/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store // nil when storage is disabled

	adapter  kit.Adapter
	sessions session.Store
	machine  *dialog.Machine
	router   *bot.Router
	recorder *audit.Recorder // nil when storage is disabled
	hk       *housekeeping.Service

	updates chan kit.Update
}

// New loads the config at cfgPath and builds every component. Nothing runs
// until Start.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	pollTimeout, err := cfg.Telegram.PollTimeoutDuration()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.Comp("telegram"))
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}
	return assemble(cfgm, cfg, ad)
}

func assemble(cfgm *config.Manager, cfg *config.Config, ad kit.Adapter) (_ *App, err error) {
	logSvc, log := logx.New(mapLogging(cfg), ad)
	log = log.With(logx.Comp("app"))

	var store storage.Store
	defer func() {
		if err == nil {
			return
		}
		if store != nil {
			_ = store.Close()
		}
		_ = logSvc.Close()
	}()

	sc, enabled, err := mapStorage(cfg)
	if err != nil {
		return nil, err
	}
	if enabled {
		store, err = storage.Open(sc, log.With(logx.Comp("storage")))
		if err != nil {
			return nil, err
		}
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	crops, err := loadCrops(cfg)
	if err != nil {
		return nil, err
	}
	sessions, err := newSessionStore(cfg, crops.Default())
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Garden.Location()
	if err != nil {
		return nil, err
	}
	dose := dosage.New(crops)
	if cfg.Garden.DefaultAreaM2 > 0 {
		dose.DefaultArea = cfg.Garden.DefaultAreaM2
	}
	machine := dialog.New(sessions, crops, calendar.New(crops, loc), dose, cfg.Garden.WindowDays())

	hkCfg, err := mapHousekeeping(cfg)
	if err != nil {
		return nil, err
	}

	bus := eventbus.New()
	var rec *audit.Recorder
	if store != nil {
		rec = audit.NewRecorder(bus, store, log.With(logx.Comp("audit")))
	}

	router := bot.New(bot.Config{
		UserRatePerSec: cfg.Garden.UserRatePerSec,
		UserBurst:      cfg.Garden.UserBurst,
	}, ad, machine, bus, log.With(logx.Comp("bot")))

	log.Info("garden ready",
		logx.String("default_crop", crops.Default()),
		logx.Int("crops", len(crops.IDs())),
		logx.Int("window_days", machine.Window()),
		logx.Stringer("timezone", loc),
	)

	return &App{
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		bus:      bus,
		store:    store,
		adapter:  ad,
		sessions: sessions,
		machine:  machine,
		router:   router,
		recorder: rec,
		hk:       housekeeping.New(hkCfg, store, sessions, log.With(logx.Comp("housekeeping"))),
		updates:  make(chan kit.Update, 256),
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.Comp("config")))

	if a.recorder != nil {
		ready := make(chan struct{})
		a.sup.Go("audit.recorder", func(c context.Context) error {
			return a.recorder.Run(c, ready)
		})
		// Subscribe before the first update can publish a change.
		<-ready
	}

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	if err := a.hk.Start(a.sup.Context()); err != nil {
		return err
	}

	a.sup.Go("bot.dispatch", func(c context.Context) error {
		return a.router.DispatchLoop(c, a.updates)
	})
	a.sup.Go0("bot.menu", a.router.PublishMenu)

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						break drain
					}
				}
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// applyConfig pushes the runtime-adjustable parts of newCfg into live components.
func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Debug("config change summary", fields...)

	if stale := restartOnly(oldCfg, newCfg); len(stale) > 0 {
		a.log.Warn("config changed; restart required for changes to take effect", logx.String("settings", strings.Join(stale, ",")))
	}

	a.logs.Apply(mapLogging(newCfg))
	a.machine.SetWindow(newCfg.Garden.WindowDays())

	og, ng := oldCfg.Garden, newCfg.Garden
	if og.UserRatePerSec != ng.UserRatePerSec || og.UserBurst != ng.UserBurst {
		a.router.SetUserRate(ng.UserRatePerSec, ng.UserBurst)
	}

	if hkCfg, err := mapHousekeeping(newCfg); err != nil {
		a.log.Warn("invalid housekeeping config; keeping previous", logx.Err(err))
	} else if err := a.hk.Apply(ctx, hkCfg); err != nil {
		a.log.Warn("housekeeping reschedule failed", logx.Err(err))
	}

	a.bus.Publish(eventbus.Event{Type: eventbus.TypeConfigReloaded})
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Cancel first so background loops start unwinding immediately.
	a.sup.Cancel()

	var errs []error
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		// Respect the caller's deadline; never extend it.
		if dl, ok := ctx.Deadline(); !ok || time.Until(dl) > max {
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
			took := time.Since(start)
			if took >= 500*time.Millisecond {
				a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
			} else {
				a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Err(stepCtx.Err()),
				logx.Duration("elapsed", time.Since(start)),
			)
			errs = append(errs, fmt.Errorf("%s: %w", name, stepCtx.Err()))
		}
	}

	step("housekeeping", 2*time.Second, a.hk.Stop)
	step("adapter", 2*time.Second, a.adapter.Stop)
	// Dispatcher, recorder and config loops; the recorder must be done before storage closes.
	step("supervisor", 3*time.Second, a.sup.Wait)
	step("storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	if w, f := a.recorderStats(); w+f > 0 {
		a.log.Info("audit summary", logx.Uint64("written", w), logx.Uint64("failed", f))
	}
	if n := a.bus.Dropped(); n > 0 {
		a.log.Warn("events dropped by slow subscribers", logx.Uint64("count", n))
	}
	c := a.sup.Counters()
	a.log.Info("stopped",
		logx.Int("sessions", a.sessions.Len()),
		logx.Int64("goroutines_left", c.Active),
		logx.Uint64("panics", c.Panics),
	)
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return errors.Join(errs...)
}

func (a *App) recorderStats() (written, failed uint64) {
	if a.recorder == nil {
		return 0, 0
	}
	return a.recorder.Stats()
}
