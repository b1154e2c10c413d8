// Package housekeeping runs periodic maintenance on a cron schedule:
// pruning old audit entries and reporting session-store size.
package housekeeping

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"agroguru/internal/storage"
	logx "agroguru/pkg/logx"
)

const (
	DefaultSchedule = "@every 6h"
	runTimeout      = 30 * time.Second
)

type Config struct {
	Enabled        bool
	Schedule       string // 5-field cron spec or descriptor (@daily, @every 1h)
	AuditRetention time.Duration
}

// SessionCounter is the part of the session store housekeeping reports on.
type SessionCounter interface {
	Len() int
}

// Report summarizes one housekeeping run.
type Report struct {
	Pruned   int
	Sessions int
	Took     time.Duration
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether spec is a schedule housekeeping accepts.
func ValidateSchedule(spec string) error {
	if _, err := parser.Parse(normalize(spec)); err != nil {
		return fmt.Errorf("housekeeping schedule %q: %w", spec, err)
	}
	return nil
}

func normalize(spec string) string {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return DefaultSchedule
	}
	return spec
}

type Service struct {
	log      logx.Logger
	store    storage.Store // nil when storage is disabled
	sessions SessionCounter
	now      func() time.Time

	mu      sync.Mutex
	cfg     Config
	c       *cron.Cron
	entry   cron.EntryID
	baseCtx context.Context
}

func New(cfg Config, store storage.Store, sessions SessionCounter, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{log: log, store: store, sessions: sessions, now: time.Now, cfg: cfg}
}

// Start schedules the job. It is a no-op when disabled or already started.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	s.baseCtx = ctx
	if !s.cfg.Enabled {
		s.log.Info("housekeeping disabled")
		return nil
	}
	cl := cronLogger{log: s.log}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		cron.WithLogger(cl),
	)
	id, err := c.AddFunc(normalize(s.cfg.Schedule), s.tick)
	if err != nil {
		return fmt.Errorf("housekeeping schedule %q: %w", s.cfg.Schedule, err)
	}
	s.c, s.entry = c, id
	c.Start()
	s.log.Info("housekeeping scheduled", logx.String("schedule", normalize(s.cfg.Schedule)), logx.Duration("audit_retention", s.cfg.AuditRetention))
	return nil
}

// Stop stops the scheduler and waits for a running job, bounded by ctx.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Apply swaps the config, rescheduling when the schedule or enabled flag changed.
func (s *Service) Apply(ctx context.Context, cfg Config) error {
	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	started := s.c != nil
	base := s.baseCtx
	s.mu.Unlock()

	if old.Enabled == cfg.Enabled && normalize(old.Schedule) == normalize(cfg.Schedule) {
		return nil
	}
	if !started && base == nil {
		return nil
	}
	if err := s.Stop(ctx); err != nil {
		return err
	}
	return s.Start(base)
}

func (s *Service) tick() {
	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithTimeout(base, runTimeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Warn("housekeeping run failed", logx.Err(err))
	}
}

// RunOnce performs one housekeeping pass.
func (s *Service) RunOnce(ctx context.Context) (Report, error) {
	start := s.now()
	s.mu.Lock()
	retention := s.cfg.AuditRetention
	s.mu.Unlock()

	var rep Report
	if s.sessions != nil {
		rep.Sessions = s.sessions.Len()
	}
	if s.store != nil && retention > 0 {
		n, err := s.store.PruneAudit(ctx, start.Add(-retention))
		if err != nil {
			return rep, fmt.Errorf("prune audit: %w", err)
		}
		rep.Pruned = n
	}
	rep.Took = s.now().Sub(start)
	s.log.Info("housekeeping done", logx.Int("sessions", rep.Sessions), logx.Int("audit_pruned", rep.Pruned), logx.Duration("took", rep.Took))
	return rep, nil
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, kvFields(kv)...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
