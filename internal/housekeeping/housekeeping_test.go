package housekeeping

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agroguru/internal/storage"
	logx "agroguru/pkg/logx"
)

type pruneStore struct {
	before time.Time
	n      int
	err    error
}

func (p *pruneStore) AppendAudit(context.Context, storage.AuditEntry) error { return nil }
func (p *pruneStore) ListAudit(context.Context, int64, int) ([]storage.AuditEntry, error) {
	return nil, nil
}
func (p *pruneStore) PruneAudit(_ context.Context, before time.Time) (int, error) {
	p.before = before
	return p.n, p.err
}
func (p *pruneStore) Close() error { return nil }

type fixedCount int

func (f fixedCount) Len() int { return int(f) }

func TestRunOnce(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC)
	st := &pruneStore{n: 3}
	s := New(Config{AuditRetention: 48 * time.Hour}, st, fixedCount(7), logx.Nop())
	s.now = func() time.Time { return now }

	rep, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Pruned)
	assert.Equal(t, 7, rep.Sessions)
	assert.True(t, st.before.Equal(now.Add(-48*time.Hour)))
}

func TestRunOnceWithoutRetentionOrStore(t *testing.T) {
	t.Parallel()

	st := &pruneStore{n: 3}
	rep, err := New(Config{}, st, fixedCount(2), logx.Nop()).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rep.Pruned)
	assert.True(t, st.before.IsZero())

	rep, err = New(Config{AuditRetention: time.Hour}, nil, nil, logx.Nop()).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rep.Pruned)
	assert.Zero(t, rep.Sessions)
}

func TestRunOncePropagatesPruneError(t *testing.T) {
	t.Parallel()

	st := &pruneStore{err: errors.New("locked")}
	_, err := New(Config{AuditRetention: time.Hour}, st, nil, logx.Nop()).RunOnce(context.Background())
	assert.ErrorContains(t, err, "locked")
}

func TestValidateSchedule(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"", "@daily", "@every 1h", "0 3 * * *"} {
		assert.NoError(t, ValidateSchedule(ok), ok)
	}
	for _, bad := range []string{"every day", "61 * * * *", "* * *"} {
		assert.Error(t, ValidateSchedule(bad), bad)
	}
}

func TestStartStopApply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(Config{Enabled: true, Schedule: "@every 1h"}, nil, fixedCount(0), logx.Nop())
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Apply(ctx, Config{Enabled: true, Schedule: "@daily"}))

	s.mu.Lock()
	started := s.c != nil
	s.mu.Unlock()
	assert.True(t, started)

	require.NoError(t, s.Apply(ctx, Config{Enabled: false}))
	s.mu.Lock()
	started = s.c != nil
	s.mu.Unlock()
	assert.False(t, started)

	require.NoError(t, s.Stop(ctx))

	bad := New(Config{Enabled: true, Schedule: "nope"}, nil, nil, logx.Nop())
	assert.Error(t, bad.Start(ctx))
}
