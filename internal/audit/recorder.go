// Package audit records settings changes published on the event bus into storage.
package audit

import (
	"context"
	"sync/atomic"
	"time"

	"agroguru/internal/eventbus"
	"agroguru/internal/storage"
	logx "agroguru/pkg/logx"
)

const writeTimeout = 3 * time.Second

// Recorder drains TypeSettingsChanged events into a storage.Store.
type Recorder struct {
	bus   eventbus.Bus
	store storage.Store
	log   logx.Logger

	written atomic.Uint64
	failed  atomic.Uint64
}

func NewRecorder(bus eventbus.Bus, store storage.Store, log logx.Logger) *Recorder {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Recorder{bus: bus, store: store, log: log}
}

// Stats returns the number of entries written and failed so far.
func (r *Recorder) Stats() (written, failed uint64) {
	return r.written.Load(), r.failed.Load()
}

// Run blocks until ctx is done. ready, if non-nil, is closed once the
// subscription is active.
func (r *Recorder) Run(ctx context.Context, ready chan<- struct{}) error {
	ch, unsub := r.bus.Subscribe(256, eventbus.TypeSettingsChanged)
	defer unsub()
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			if e.Type != eventbus.TypeSettingsChanged {
				continue
			}
			sc, ok := e.Data.(eventbus.SettingsChanged)
			if !ok {
				continue
			}
			r.record(ctx, e.Time, sc)
		}
	}
}

func (r *Recorder) record(ctx context.Context, at time.Time, sc eventbus.SettingsChanged) {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	err := r.store.AppendAudit(wctx, storage.AuditEntry{
		At:        at,
		UserID:    sc.UserID,
		ChatID:    sc.ChatID,
		Field:     sc.Field,
		Value:     sc.Value,
		RequestID: sc.RequestID,
	})
	if err != nil {
		r.failed.Add(1)
		r.log.Warn("audit write failed", logx.User(sc.UserID), logx.String("field", sc.Field), logx.Err(err))
		return
	}
	r.written.Add(1)
}
