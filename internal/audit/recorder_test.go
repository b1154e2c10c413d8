package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agroguru/internal/eventbus"
	"agroguru/internal/storage"
	logx "agroguru/pkg/logx"
)

type memStore struct {
	mu      sync.Mutex
	entries []storage.AuditEntry
	failOn  string
}

func (m *memStore) AppendAudit(_ context.Context, e storage.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.Field == m.failOn {
		return errors.New("disk full")
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) ListAudit(context.Context, int64, int) ([]storage.AuditEntry, error) {
	return nil, nil
}

func (m *memStore) PruneAudit(context.Context, time.Time) (int, error) { return 0, nil }
func (m *memStore) Close() error                                       { return nil }

func (m *memStore) snapshot() []storage.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storage.AuditEntry(nil), m.entries...)
}

func TestRecorderWritesSettingsChanges(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	st := &memStore{failOn: "soil"}
	rec := NewRecorder(bus, st, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx, ready) }()
	<-ready

	at := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	bus.Publish(eventbus.Event{Type: eventbus.TypeConfigReloaded})
	bus.Publish(eventbus.Event{Type: eventbus.TypeSettingsChanged, Time: at, Data: eventbus.SettingsChanged{UserID: 5, ChatID: 50, Field: "area_m2", Value: "4", RequestID: "rid"}})
	bus.Publish(eventbus.Event{Type: eventbus.TypeSettingsChanged, Data: eventbus.SettingsChanged{UserID: 5, Field: "soil", Value: "loam"}})
	bus.Publish(eventbus.Event{Type: eventbus.TypeSettingsChanged, Data: "garbage"})

	require.Eventually(t, func() bool {
		w, f := rec.Stats()
		return w == 1 && f == 1
	}, time.Second, 5*time.Millisecond)

	got := st.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, storage.AuditEntry{At: at, UserID: 5, ChatID: 50, Field: "area_m2", Value: "4", RequestID: "rid"}, got[0])

	cancel()
	require.NoError(t, <-done)
}
