package devices

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KevinKickass/OpenPLCConsole/internal/telemetry"
	"github.com/KevinKickass/OpenPLCConsole/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SessionOptions struct {
	DefaultType   string
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	Telemetry     telemetry.Collector
}

// SessionManager hosts the open edit sessions of the HTTP API. Sessions
// idle for longer than IdleTimeout are discarded by the sweeper, which is
// the same as the operator cancelling the dialog.
type SessionManager struct {
	catalog  *Catalog
	opts     SessionOptions
	sessions map[uuid.UUID]*Session
	mu       sync.RWMutex
	logger   *zap.Logger
	now      func() time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	runMu    sync.Mutex
}

func NewSessionManager(catalog *Catalog, opts SessionOptions, logger *zap.Logger) *SessionManager {
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.Noop()
	}
	return &SessionManager{
		catalog:  catalog,
		opts:     opts,
		sessions: make(map[uuid.UUID]*Session),
		logger:   logger,
		now:      time.Now,
	}
}

func (m *SessionManager) Catalog() *Catalog {
	return m.catalog
}

// OpenNew starts a session for a new device. An empty typeID selects the
// configured default type.
func (m *SessionManager) OpenNew(typeID string) (*Session, error) {
	if typeID == "" {
		typeID = m.opts.DefaultType
	}

	session, err := NewSession(m.catalog, typeID)
	if err != nil {
		return nil, err
	}

	m.add(session)
	m.opts.Telemetry.IncSessionOpened(telemetry.OriginNew)

	m.logger.Info("Edit session opened",
		zap.String("session_id", session.ID.String()),
		zap.String("device_type", typeID))

	return session, nil
}

// OpenExisting starts a session on a stored record.
func (m *SessionManager) OpenExisting(rec types.DeviceRecord) *Session {
	session := HydrateSession(m.catalog, rec)
	m.add(session)
	m.opts.Telemetry.IncSessionOpened(telemetry.OriginExisting)

	if session.Snapshot().DeviceType == nil {
		m.logger.Warn("Stored device references unknown device type",
			zap.String("device_id", rec.ID),
			zap.String("device_type", rec.ConstraintID))
	}

	m.logger.Info("Edit session opened for existing device",
		zap.String("session_id", session.ID.String()),
		zap.String("device_id", rec.ID))

	return session
}

func (m *SessionManager) add(session *Session) {
	session.touch(m.now())

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()
}

// Get returns the session and marks it active.
func (m *SessionManager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	session, exists := m.sessions[id]
	m.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	session.touch(m.now())
	return session, nil
}

// Cancel discards the session without saving anything.
func (m *SessionManager) Cancel(id uuid.UUID) error {
	m.mu.Lock()
	_, exists := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	m.opts.Telemetry.IncSessionClosed(telemetry.ReasonCancelled, 1)
	m.logger.Info("Edit session cancelled", zap.String("session_id", id.String()))
	return nil
}

// Submit saves the session's record through saver and closes the session.
// On failure the session stays open.
func (m *SessionManager) Submit(ctx context.Context, id uuid.UUID, saver Saver) (types.DeviceRecord, error) {
	session, err := m.Get(id)
	if err != nil {
		return types.DeviceRecord{}, err
	}

	rec, err := session.Submit(ctx, saver)
	if err != nil {
		return types.DeviceRecord{}, err
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	m.opts.Telemetry.IncSessionClosed(telemetry.ReasonSubmitted, 1)
	m.opts.Telemetry.IncDeviceSaved(telemetry.SourceSession)

	m.logger.Info("Edit session submitted",
		zap.String("session_id", id.String()),
		zap.String("device_id", rec.ID),
		zap.String("device_type", rec.ConstraintID))

	return rec, nil
}

func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep discards idle sessions and returns how many were removed.
func (m *SessionManager) Sweep() int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}

	cutoff := m.now().Add(-m.opts.IdleTimeout)

	// Session locks are held across saves, so idle times are read without
	// holding the manager lock.
	m.mu.RLock()
	open := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		open = append(open, session)
	}
	m.mu.RUnlock()

	var idle []*Session
	for _, session := range open {
		if session.idleSince().Before(cutoff) {
			idle = append(idle, session)
		}
	}
	if len(idle) == 0 {
		return 0
	}

	m.mu.Lock()
	removed := 0
	for _, session := range idle {
		if m.sessions[session.ID] != session {
			continue
		}
		delete(m.sessions, session.ID)
		removed++
		m.logger.Info("Idle edit session discarded", zap.String("session_id", session.ID.String()))
	}
	m.mu.Unlock()

	m.opts.Telemetry.IncSessionClosed(telemetry.ReasonExpired, removed)
	return removed
}

// Start launches the idle-session sweeper.
func (m *SessionManager) Start() error {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.running {
		return nil
	}
	if m.opts.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", m.opts.SweepInterval)
	}

	m.stopChan = make(chan struct{})
	m.running = true
	m.wg.Add(1)

	go m.sweepLoop()

	m.logger.Info("Session sweeper started",
		zap.Duration("interval", m.opts.SweepInterval),
		zap.Duration("idle_timeout", m.opts.IdleTimeout))

	return nil
}

// Stop halts the sweeper and drops every open session.
func (m *SessionManager) Stop(ctx context.Context) error {
	m.runMu.Lock()
	if m.running {
		close(m.stopChan)
		m.wg.Wait()
		m.running = false
	}
	m.runMu.Unlock()

	m.mu.Lock()
	dropped := len(m.sessions)
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()

	m.opts.Telemetry.IncSessionClosed(telemetry.ReasonShutdown, dropped)
	m.logger.Info("Session manager stopped", zap.Int("discarded_sessions", dropped))
	return nil
}

func (m *SessionManager) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
