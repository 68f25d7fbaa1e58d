package devices

import (
	"fmt"

	"github.com/KevinKickass/OpenPLCConsole/internal/types"
)

// The functions in this file are pure: they never mutate their inputs and
// return a fresh record on every call.

// Reseed builds a new record from the catalog entry id.
func Reseed(catalog *Catalog, id string) (types.DeviceRecord, error) {
	def, err := catalog.Lookup(id)
	if err != nil {
		return types.DeviceRecord{}, err
	}
	return ReseedFrom(def), nil
}

// ReseedFrom builds a new record from def: fixed values and defaults for
// the connection parameters of def's protocol, registers from def.
func ReseedFrom(def DeviceType) types.DeviceRecord {
	rec := types.DeviceRecord{
		ConstraintID: def.ID,
		Protocol:     def.Protocol,
		SlaveID:      def.SlaveID.Value(),
		DI:           def.DI.Clone(),
		DO:           def.DO.Clone(),
		AI:           def.AI.Clone(),
		AOR:          def.AOR.Clone(),
		AOW:          def.AOW.Clone(),
	}

	switch def.Protocol {
	case types.ProtocolTCP:
		rec.Port = def.Port.Value()
	case types.ProtocolRTU:
		rec.BaudRate = def.BaudRate.Value()
		rec.DataBits = def.DataBits.Value()
		rec.StopBits = def.StopBits.Value()
	}

	return rec
}

// ApplyScalarEdit returns a copy of rec with field set to value. Numeric
// fields take an int, text fields a string.
func ApplyScalarEdit(rec types.DeviceRecord, field ScalarField, value any) (types.DeviceRecord, error) {
	if _, ok := scalarLabels[field]; !ok {
		return rec, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}

	var n int
	var s string
	if field.Numeric() {
		v, ok := value.(int)
		if !ok {
			return rec, fmt.Errorf("%w: %s expects a number, got %T", ErrInvalidValue, field, value)
		}
		if v < 0 {
			return rec, fmt.Errorf("%w: %s must not be negative", ErrInvalidValue, field)
		}
		n = v
	} else {
		v, ok := value.(string)
		if !ok {
			return rec, fmt.Errorf("%w: %s expects text, got %T", ErrInvalidValue, field, value)
		}
		s = v
	}

	out := rec.Clone()
	switch field {
	case FieldName:
		out.Name = s
	case FieldSlaveID:
		out.SlaveID = n
	case FieldAddress:
		out.Address = s
	case FieldPort:
		out.Port = n
	case FieldCommPort:
		out.CommPort = s
	case FieldBaudRate:
		out.BaudRate = n
	case FieldParity:
		out.Parity = s
	case FieldDataBits:
		out.DataBits = n
	case FieldStopBits:
		out.StopBits = n
	}
	return out, nil
}

// ApplyRegisterEdit returns a copy of rec with one register leaf replaced.
// The sibling leaf and all other registers keep their values.
func ApplyRegisterEdit(rec types.DeviceRecord, register RegisterName, sub SubField, value int) (types.DeviceRecord, error) {
	out := rec.Clone()

	r, ok := registerOf(&out, register)
	if !ok {
		return rec, fmt.Errorf("%w: unknown register %q", ErrInvalidField, register)
	}
	leaf, ok := leafOf(r, sub)
	if !ok {
		return rec, fmt.Errorf("%w: unknown register field %q", ErrInvalidField, sub)
	}
	if value < 0 {
		return rec, fmt.Errorf("%w: %s.%s must not be negative", ErrInvalidValue, register, sub)
	}

	v := value
	*leaf = &v
	return out, nil
}

// SwitchType reseeds rec from def. id and name always survive. Register
// leaves recorded in edits survive. Connection values in edits survive only
// when the protocol is unchanged and def leaves the field editable, so
// moving from RTU to TCP drops every serial parameter.
func SwitchType(rec types.DeviceRecord, def DeviceType, edits *EditSet) types.DeviceRecord {
	next := ReseedFrom(def)
	next.ID = rec.ID
	next.Name = rec.Name

	if rec.Protocol == def.Protocol {
		for _, f := range connectionFields {
			if !edits.HasScalar(f) || !f.RelevantTo(def.Protocol) || def.IsFixed(f) {
				continue
			}
			next, _ = ApplyScalarEdit(next, f, scalarValue(rec, f))
		}
	}

	for _, name := range RegisterNames {
		src, _ := registerOf(&rec, name)
		dst, _ := registerOf(&next, name)
		for _, sub := range []SubField{SubFieldStart, SubFieldSize} {
			if !edits.HasRegister(name, sub) {
				continue
			}
			from, _ := leafOf(src, sub)
			to, _ := leafOf(dst, sub)
			if *from == nil {
				*to = nil
				continue
			}
			v := **from
			*to = &v
		}
	}

	return next
}

// EditsFromRecord rebuilds the edit set of a stored record. Every value
// that differs from what def would seed counts as entered by hand. With a
// nil def every non-empty value counts.
func EditsFromRecord(def *DeviceType, rec types.DeviceRecord) *EditSet {
	edits := NewEditSet()

	var seed types.DeviceRecord
	if def != nil {
		seed = ReseedFrom(*def)
	}

	for _, f := range connectionFields {
		if !f.RelevantTo(rec.Protocol) || (def != nil && def.IsFixed(f)) {
			continue
		}
		v := scalarValue(rec, f)
		if v == 0 || v == "" || v == scalarValue(seed, f) {
			continue
		}
		edits.MarkScalar(f)
	}

	for _, name := range RegisterNames {
		got, _ := registerOf(&rec, name)
		want, _ := registerOf(&seed, name)
		for _, sub := range []SubField{SubFieldStart, SubFieldSize} {
			g, _ := leafOf(got, sub)
			w, _ := leafOf(want, sub)
			if *g == nil {
				continue
			}
			if *w == nil || **g != **w {
				edits.MarkRegister(name, sub)
			}
		}
	}

	return edits
}

// Normalize zeroes the fields that do not apply to rec's protocol.
func Normalize(rec types.DeviceRecord) types.DeviceRecord {
	out := rec.Clone()
	switch out.Protocol {
	case types.ProtocolTCP:
		out.CommPort = ""
		out.BaudRate = 0
		out.Parity = ""
		out.DataBits = 0
		out.StopBits = 0
	case types.ProtocolRTU:
		out.Address = ""
		out.Port = 0
	}
	return out
}

// Conform binds a record that arrived from outside an edit session to def:
// fixed values are forced, empty editable values take their defaults and
// unset register leaves are filled from def.
func Conform(def DeviceType, rec types.DeviceRecord) types.DeviceRecord {
	out := rec.Clone()
	out.ConstraintID = def.ID
	out.Protocol = def.Protocol

	out.SlaveID = def.SlaveID.Resolve(out.SlaveID)
	switch def.Protocol {
	case types.ProtocolTCP:
		out.Port = def.Port.Resolve(out.Port)
	case types.ProtocolRTU:
		out.BaudRate = def.BaudRate.Resolve(out.BaudRate)
		out.DataBits = def.DataBits.Resolve(out.DataBits)
		out.StopBits = def.StopBits.Resolve(out.StopBits)
	}

	for _, name := range RegisterNames {
		r, _ := registerOf(&out, name)
		capacity := def.Register(name)
		if r.Start == nil {
			r.Start = capacity.Start
		}
		if r.Size == nil {
			r.Size = capacity.Size
		}
	}

	return Normalize(out)
}

// ValidateRecord checks the value constraints a persisted record must meet.
func ValidateRecord(rec types.DeviceRecord) error {
	if !rec.Protocol.Valid() {
		return fmt.Errorf("%w: unknown protocol %q", ErrInvalidValue, rec.Protocol)
	}
	for _, f := range scalarFields {
		if !f.Numeric() {
			continue
		}
		if v, _ := scalarValue(rec, f).(int); v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidValue, f)
		}
	}
	for _, name := range RegisterNames {
		r, _ := registerOf(&rec, name)
		if r.Start != nil && *r.Start < 0 {
			return fmt.Errorf("%w: %s.start must not be negative", ErrInvalidValue, name)
		}
		if r.Size != nil && *r.Size < 0 {
			return fmt.Errorf("%w: %s.size must not be negative", ErrInvalidValue, name)
		}
	}
	return nil
}

type registerLeaf struct {
	register RegisterName
	sub      SubField
}

// EditSet remembers which values the operator entered by hand. A nil
// *EditSet is an empty set.
type EditSet struct {
	scalars   map[ScalarField]struct{}
	registers map[registerLeaf]struct{}
}

func NewEditSet() *EditSet {
	return &EditSet{
		scalars:   make(map[ScalarField]struct{}),
		registers: make(map[registerLeaf]struct{}),
	}
}

func (e *EditSet) MarkScalar(f ScalarField) {
	e.scalars[f] = struct{}{}
}

func (e *EditSet) MarkRegister(r RegisterName, sub SubField) {
	e.registers[registerLeaf{r, sub}] = struct{}{}
}

func (e *EditSet) HasScalar(f ScalarField) bool {
	if e == nil {
		return false
	}
	_, ok := e.scalars[f]
	return ok
}

func (e *EditSet) HasRegister(r RegisterName, sub SubField) bool {
	if e == nil {
		return false
	}
	_, ok := e.registers[registerLeaf{r, sub}]
	return ok
}

func (e *EditSet) Len() int {
	if e == nil {
		return 0
	}
	return len(e.scalars) + len(e.registers)
}

// Rebase drops the connection marks that lost their value when a record
// moved from protocol prev to def: all of them on a protocol change, and
// the fields def fixes otherwise.
func (e *EditSet) Rebase(prev types.Protocol, def DeviceType) {
	if e == nil {
		return
	}
	for f := range e.scalars {
		if f == FieldName {
			continue
		}
		if prev != def.Protocol || !f.RelevantTo(def.Protocol) || def.IsFixed(f) {
			delete(e.scalars, f)
		}
	}
}
