package devices

import (
	"fmt"

	"github.com/KevinKickass/OpenPLCConsole/internal/types"
)

const DefaultModbusTCPPort = 502

// DeviceType is a template a device record is seeded from. Each connection
// parameter is either fixed by the hardware or editable with a default.
type DeviceType struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Protocol types.Protocol `json:"protocol"`

	SlaveID Field[int] `json:"slaveId"`

	// TCP only
	Port Field[int] `json:"port"`

	// RTU only
	BaudRate Field[int] `json:"baudRate"`
	DataBits Field[int] `json:"dataBits"`
	StopBits Field[int] `json:"stopBits"`

	DI  types.RegisterRange `json:"di"`
	DO  types.RegisterRange `json:"do"`
	AI  types.RegisterRange `json:"ai"`
	AOR types.RegisterRange `json:"aor"`
	AOW types.RegisterRange `json:"aow"`
}

func (d DeviceType) Clone() DeviceType {
	out := d
	out.DI = d.DI.Clone()
	out.DO = d.DO.Clone()
	out.AI = d.AI.Clone()
	out.AOR = d.AOR.Clone()
	out.AOW = d.AOW.Clone()
	return out
}

// Register returns a copy of the named register capacity.
func (d DeviceType) Register(name RegisterName) types.RegisterRange {
	switch name {
	case RegisterDI:
		return d.DI.Clone()
	case RegisterDO:
		return d.DO.Clone()
	case RegisterAI:
		return d.AI.Clone()
	case RegisterAOR:
		return d.AOR.Clone()
	case RegisterAOW:
		return d.AOW.Clone()
	}
	return types.RegisterRange{}
}

// numericField returns the definition entry behind a numeric scalar.
func (d DeviceType) numericField(f ScalarField) (Field[int], bool) {
	switch f {
	case FieldSlaveID:
		return d.SlaveID, true
	case FieldPort:
		return d.Port, true
	case FieldBaudRate:
		return d.BaudRate, true
	case FieldDataBits:
		return d.DataBits, true
	case FieldStopBits:
		return d.StopBits, true
	}
	return Field[int]{}, false
}

// IsFixed reports whether the device type owns the value of f. Text fields
// (name, address, commPort, parity) are never fixed.
func (d DeviceType) IsFixed(f ScalarField) bool {
	field, ok := d.numericField(f)
	return ok && field.IsFixed()
}

func (d DeviceType) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("device type id is empty")
	}
	if !d.Protocol.Valid() {
		return fmt.Errorf("device type %s: unknown protocol %q", d.ID, d.Protocol)
	}

	for _, f := range []ScalarField{FieldPort, FieldBaudRate, FieldDataBits, FieldStopBits} {
		field, _ := d.numericField(f)
		if !f.RelevantTo(d.Protocol) && field != (Field[int]{}) {
			return fmt.Errorf("device type %s: %s does not apply to %s devices", d.ID, f, d.Protocol)
		}
		if field.Value() < 0 {
			return fmt.Errorf("device type %s: %s is negative", d.ID, f)
		}
	}
	if d.SlaveID.Value() < 0 {
		return fmt.Errorf("device type %s: slaveId is negative", d.ID)
	}

	for _, name := range RegisterNames {
		r := d.Register(name)
		if (r.Start != nil && *r.Start < 0) || (r.Size != nil && *r.Size < 0) {
			return fmt.Errorf("device type %s: register %s is negative", d.ID, name)
		}
	}
	return nil
}

// Catalog is the read-only set of known device types. It is built once at
// startup and never changes afterwards, so concurrent readers need no lock.
type Catalog struct {
	order []string
	types map[string]DeviceType
}

func NewCatalog(defs ...DeviceType) (*Catalog, error) {
	c := &Catalog{
		order: make([]string, 0, len(defs)),
		types: make(map[string]DeviceType, len(defs)),
	}

	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.types[def.ID]; dup {
			return nil, fmt.Errorf("duplicate device type id: %s", def.ID)
		}
		c.order = append(c.order, def.ID)
		c.types[def.ID] = def.Clone()
	}

	return c, nil
}

// Lookup returns a copy of the definition, or ErrNotFound.
func (c *Catalog) Lookup(id string) (DeviceType, error) {
	def, ok := c.types[id]
	if !ok {
		return DeviceType{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return def.Clone(), nil
}

// List returns all definitions in catalog order.
func (c *Catalog) List() []DeviceType {
	out := make([]DeviceType, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.types[id].Clone())
	}
	return out
}

func (c *Catalog) Len() int { return len(c.order) }

// Builtin returns the device types shipped with the console.
func Builtin() []DeviceType {
	rr := types.NewRegisterRange
	return []DeviceType{
		{
			ID:       "Uno",
			Name:     "Arduino Uno",
			Protocol: types.ProtocolRTU,
			SlaveID:  Fixed(0),
			BaudRate: Fixed(11500),
			DataBits: Fixed(8),
			StopBits: Fixed(1),
			DI:       rr(0, 5),
			DO:       rr(0, 4),
			AI:       rr(0, 6),
			AOR:      rr(0, 0),
			AOW:      rr(0, 3),
		},
		{
			ID:       "Mega",
			Name:     "Arduino Mega",
			Protocol: types.ProtocolRTU,
			SlaveID:  Fixed(0),
			BaudRate: Fixed(11500),
			DataBits: Fixed(8),
			StopBits: Fixed(1),
			DI:       rr(0, 24),
			DO:       rr(0, 16),
			AI:       rr(0, 16),
			AOR:      rr(0, 0),
			AOW:      rr(0, 12),
		},
		{
			ID:       "EPS32",
			Name:     "EPS32",
			Protocol: types.ProtocolTCP,
			SlaveID:  Fixed(0),
			Port:     Editable(DefaultModbusTCPPort),
			DI:       rr(0, 8),
			DO:       rr(0, 8),
			AI:       rr(0, 1),
			AOR:      rr(0, 0),
			AOW:      rr(0, 1),
		},
		{
			ID:       "EPS8266",
			Name:     "EPS8266",
			Protocol: types.ProtocolTCP,
			SlaveID:  Fixed(0),
			Port:     Editable(DefaultModbusTCPPort),
			DI:       rr(0, 8),
			DO:       rr(0, 8),
			AI:       rr(0, 1),
			AOR:      rr(0, 0),
			AOW:      rr(0, 1),
		},
		{
			ID:       "TCP",
			Name:     "Generic Modbus TCP Device",
			Protocol: types.ProtocolTCP,
			Port:     Editable(DefaultModbusTCPPort),
		},
		{
			ID:       "RTU",
			Name:     "Generic Modbus RTU Device",
			Protocol: types.ProtocolRTU,
		},
	}
}

// DefaultCatalog holds the built-in device types only.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(Builtin()...)
	if err != nil {
		panic(fmt.Sprintf("builtin device catalog: %v", err))
	}
	return c
}
