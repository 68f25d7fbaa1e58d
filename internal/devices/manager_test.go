package devices

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/KevinKickass/OpenPLCConsole/internal/telemetry"
	"github.com/KevinKickass/OpenPLCConsole/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingCollector struct {
	mu     sync.Mutex
	opened map[string]int
	closed map[string]int
	saved  map[string]int
}

func newCountingCollector() *countingCollector {
	return &countingCollector{
		opened: map[string]int{},
		closed: map[string]int{},
		saved:  map[string]int{},
	}
}

func (c *countingCollector) IncSessionOpened(origin string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened[origin]++
}

func (c *countingCollector) IncSessionClosed(reason string, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed[reason] += count
}

func (c *countingCollector) IncDeviceSaved(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved[source]++
}

func (c *countingCollector) ObserveProbe(string, bool, time.Duration) {}

var _ telemetry.Collector = (*countingCollector)(nil)

func newTestManager(t *testing.T, collector telemetry.Collector) *SessionManager {
	t.Helper()
	return NewSessionManager(DefaultCatalog(), SessionOptions{
		DefaultType:   "Mega",
		IdleTimeout:   10 * time.Minute,
		SweepInterval: time.Minute,
		Telemetry:     collector,
	}, zap.NewNop())
}

func TestManagerOpenNewUsesDefaultType(t *testing.T) {
	collector := newCountingCollector()
	m := newTestManager(t, collector)

	session, err := m.OpenNew("")
	require.NoError(t, err)
	require.Equal(t, "Mega", session.Record().ConstraintID)
	require.Equal(t, 1, m.Count())
	require.Equal(t, 1, collector.opened[telemetry.OriginNew])

	_, err = m.OpenNew("Nope")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 1, m.Count())
}

func TestManagerGetAndCancel(t *testing.T) {
	collector := newCountingCollector()
	m := newTestManager(t, collector)

	session, err := m.OpenNew("Uno")
	require.NoError(t, err)

	got, err := m.Get(session.ID)
	require.NoError(t, err)
	require.Same(t, session, got)

	require.NoError(t, m.Cancel(session.ID))
	require.Equal(t, 1, collector.closed[telemetry.ReasonCancelled])

	_, err = m.Get(session.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, m.Cancel(session.ID), ErrSessionNotFound)
	require.ErrorIs(t, m.Cancel(uuid.New()), ErrSessionNotFound)
}

func TestManagerSubmitRemovesSession(t *testing.T) {
	collector := newCountingCollector()
	m := newTestManager(t, collector)

	rec := types.DeviceRecord{ID: "dev-9", Name: "Pump", ConstraintID: "EPS32", Protocol: types.ProtocolTCP, Port: 502}
	session := m.OpenExisting(rec)
	require.Equal(t, 1, collector.opened[telemetry.OriginExisting])

	require.NoError(t, session.SetScalar(FieldAddress, "10.0.0.9"))

	saver := &recordingSaver{}
	saved, err := m.Submit(context.Background(), session.ID, saver)
	require.NoError(t, err)
	require.Equal(t, "dev-9", saved.ID)
	require.Equal(t, "10.0.0.9", saved.Address)

	require.Zero(t, m.Count())
	require.Equal(t, 1, collector.closed[telemetry.ReasonSubmitted])
	require.Equal(t, 1, collector.saved[telemetry.SourceSession])

	_, err = m.Submit(context.Background(), session.ID, saver)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerSubmitFailureKeepsSession(t *testing.T) {
	m := newTestManager(t, nil)

	session, err := m.OpenNew("TCP")
	require.NoError(t, err)

	_, err = m.Submit(context.Background(), session.ID, &recordingSaver{err: context.DeadlineExceeded})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, m.Count())
}

func TestManagerSweepDiscardsIdleSessions(t *testing.T) {
	collector := newCountingCollector()
	m := newTestManager(t, collector)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	stale, err := m.OpenNew("Uno")
	require.NoError(t, err)

	now = now.Add(8 * time.Minute)
	fresh, err := m.OpenNew("Uno")
	require.NoError(t, err)

	now = now.Add(3 * time.Minute)
	require.Equal(t, 1, m.Sweep())

	_, err = m.Get(stale.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(fresh.ID)
	require.NoError(t, err)
	require.Equal(t, 1, collector.closed[telemetry.ReasonExpired])

	// Get refreshed the session.
	now = now.Add(9 * time.Minute)
	require.Zero(t, m.Sweep())
}

type blockingSaver struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSaver) SaveDevice(_ context.Context, rec types.DeviceRecord) (types.DeviceRecord, error) {
	close(s.entered)
	<-s.release
	return rec, nil
}

func TestManagerStaysResponsiveDuringSave(t *testing.T) {
	m := newTestManager(t, nil)

	saving, err := m.OpenNew("TCP")
	require.NoError(t, err)
	other, err := m.OpenNew("Uno")
	require.NoError(t, err)

	saver := &blockingSaver{entered: make(chan struct{}), release: make(chan struct{})}
	submitted := make(chan error, 1)
	go func() {
		_, err := m.Submit(context.Background(), saving.ID, saver)
		submitted <- err
	}()
	<-saver.entered

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Sweep()
		_, _ = m.Get(other.ID)
		_, _ = m.Get(saving.ID)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("manager blocked by a save in progress")
	}

	close(saver.release)
	require.NoError(t, <-submitted)
	require.Equal(t, 1, m.Count())
}

func TestManagerSweepDisabledWithoutTimeout(t *testing.T) {
	m := NewSessionManager(DefaultCatalog(), SessionOptions{DefaultType: "Uno", SweepInterval: time.Second}, zap.NewNop())

	now := time.Now()
	m.now = func() time.Time { return now }
	_, err := m.OpenNew("")
	require.NoError(t, err)

	now = now.Add(24 * time.Hour)
	require.Zero(t, m.Sweep())
}

func TestManagerStartStop(t *testing.T) {
	collector := newCountingCollector()
	m := NewSessionManager(DefaultCatalog(), SessionOptions{
		DefaultType:   "Uno",
		IdleTimeout:   time.Millisecond,
		SweepInterval: 5 * time.Millisecond,
		Telemetry:     collector,
	}, zap.NewNop())

	require.NoError(t, m.Start())
	require.NoError(t, m.Start())

	_, err := m.OpenNew("")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return m.Count() == 0 }, time.Second, 5*time.Millisecond)

	_, err = m.OpenNew("")
	require.NoError(t, err)
	require.NoError(t, m.Stop(context.Background()))
	require.Zero(t, m.Count())
}

func TestManagerStartRejectsZeroInterval(t *testing.T) {
	m := NewSessionManager(DefaultCatalog(), SessionOptions{DefaultType: "Uno"}, zap.NewNop())
	require.Error(t, m.Start())
}
