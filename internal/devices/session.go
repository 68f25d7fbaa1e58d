package devices

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KevinKickass/OpenPLCConsole/internal/types"
	"github.com/google/uuid"
)

type SessionState int

const (
	SessionSeeded SessionState = iota
	SessionEditing
	SessionSubmitted
)

func (s SessionState) String() string {
	switch s {
	case SessionSeeded:
		return "SEEDED"
	case SessionEditing:
		return "EDITING"
	case SessionSubmitted:
		return "SUBMITTED"
	default:
		return "UNKNOWN"
	}
}

func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func ValidateTransition(from, to SessionState) error {
	validTransitions := map[SessionState][]SessionState{
		SessionSeeded:    {SessionEditing, SessionSubmitted},
		SessionEditing:   {SessionEditing, SessionSubmitted},
		SessionSubmitted: {},
	}

	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("invalid current state: %s", from)
	}

	for _, validTo := range allowed {
		if validTo == to {
			return nil
		}
	}

	if from == SessionSubmitted {
		return ErrSessionClosed
	}
	return fmt.Errorf("invalid session transition: %s -> %s", from, to)
}

// Saver persists a finished record and returns it as stored.
type Saver interface {
	SaveDevice(ctx context.Context, rec types.DeviceRecord) (types.DeviceRecord, error)
}

// Session is one operator's edit of one device record. All methods are safe
// to call from concurrent HTTP handlers; the record itself only changes
// through the engine functions.
type Session struct {
	ID uuid.UUID

	mu      sync.Mutex
	catalog *Catalog
	state   SessionState
	def     *DeviceType
	record  types.DeviceRecord
	edits   *EditSet

	// Unix nanoseconds. Kept outside mu so that a save in progress does not
	// block the manager.
	lastActivity atomic.Int64
}

// SessionSnapshot is a consistent copy of a session's state.
type SessionSnapshot struct {
	ID           uuid.UUID          `json:"id"`
	State        SessionState       `json:"state"`
	DeviceType   *DeviceType        `json:"device_type,omitempty"`
	Record       types.DeviceRecord `json:"record"`
	Edits        int                `json:"edits"`
	LastActivity time.Time          `json:"last_activity"`
}

// NewSession opens a session for a new device of type typeID.
func NewSession(catalog *Catalog, typeID string) (*Session, error) {
	def, err := catalog.Lookup(typeID)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:      uuid.New(),
		catalog: catalog,
		state:   SessionSeeded,
		def:     &def,
		record:  ReseedFrom(def),
		edits:   NewEditSet(),
	}, nil
}

// HydrateSession opens a session on a previously stored record. An unknown
// constraint id leaves the session without a device type. Values that differ
// from the type's seed are treated as operator edits, so they survive a
// later SwitchType.
func HydrateSession(catalog *Catalog, rec types.DeviceRecord) *Session {
	s := &Session{
		ID:      uuid.New(),
		catalog: catalog,
		state:   SessionSeeded,
		record:  rec.Clone(),
	}

	if def, err := catalog.Lookup(rec.ConstraintID); err == nil {
		s.def = &def
	}
	s.edits = EditsFromRecord(s.def, s.record)

	return s
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		ID:           s.ID,
		State:        s.state,
		Record:       s.record.Clone(),
		Edits:        s.edits.Len(),
		LastActivity: s.idleSince(),
	}
	if s.def != nil {
		def := s.def.Clone()
		snap.DeviceType = &def
	}
	return snap
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Record() types.DeviceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

func (s *Session) touch(now time.Time) {
	s.lastActivity.Store(now.UnixNano())
}

func (s *Session) idleSince() time.Time {
	ns := s.lastActivity.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// SetScalar applies an operator edit to a top-level field.
func (s *Session) SetScalar(field ScalarField, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ValidateTransition(s.state, SessionEditing); err != nil {
		return err
	}

	if field != FieldName {
		if _, ok := scalarLabels[field]; !ok {
			return fmt.Errorf("%w: %q", ErrInvalidField, field)
		}
		if s.def == nil {
			return ErrNoDeviceType
		}
		if !field.RelevantTo(s.def.Protocol) {
			return fmt.Errorf("%w: %s on %s device", ErrFieldNotApplicable, field, s.def.Protocol)
		}
		if s.def.IsFixed(field) {
			return fmt.Errorf("%w: %s", ErrFieldFixed, field)
		}
	}

	next, err := ApplyScalarEdit(s.record, field, value)
	if err != nil {
		return err
	}

	s.record = next
	s.edits.MarkScalar(field)
	s.state = SessionEditing
	return nil
}

// SetRegister applies an operator edit to one register leaf.
func (s *Session) SetRegister(register RegisterName, sub SubField, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ValidateTransition(s.state, SessionEditing); err != nil {
		return err
	}

	next, err := ApplyRegisterEdit(s.record, register, sub, value)
	if err != nil {
		return err
	}

	s.record = next
	s.edits.MarkRegister(register, sub)
	s.state = SessionEditing
	return nil
}

// SwitchType moves the edit to another device type. On ErrNotFound the
// session is left as it was.
func (s *Session) SwitchType(typeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ValidateTransition(s.state, SessionEditing); err != nil {
		return err
	}

	def, err := s.catalog.Lookup(typeID)
	if err != nil {
		return err
	}

	prev := s.record.Protocol
	s.record = SwitchType(s.record, def, s.edits)
	s.edits.Rebase(prev, def)
	s.def = &def
	s.state = SessionEditing
	return nil
}

// Submit conforms the record to its device type and hands it to saver. The
// session only becomes SUBMITTED when saving succeeds, so a failed save can
// be retried.
func (s *Session) Submit(ctx context.Context, saver Saver) (types.DeviceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ValidateTransition(s.state, SessionSubmitted); err != nil {
		return types.DeviceRecord{}, err
	}
	if s.def == nil {
		return types.DeviceRecord{}, ErrNoDeviceType
	}

	rec := Conform(*s.def, s.record)
	if err := ValidateRecord(rec); err != nil {
		return types.DeviceRecord{}, err
	}

	saved, err := saver.SaveDevice(ctx, rec)
	if err != nil {
		return types.DeviceRecord{}, fmt.Errorf("failed to save device: %w", err)
	}

	s.record = saved.Clone()
	s.state = SessionSubmitted
	return saved, nil
}

// IsRecoverable reports whether err is an operator-facing validation
// failure rather than a caller bug or an infrastructure error.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrFieldFixed) ||
		errors.Is(err, ErrFieldNotApplicable) ||
		errors.Is(err, ErrNoDeviceType)
}
