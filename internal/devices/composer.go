package devices

import (
	"context"

	"github.com/KevinKickass/OpenPLCConsole/internal/types"
	"go.uber.org/zap"
)

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Parities are the serial parity choices offered for RTU devices.
var Parities = []Option{
	{Value: "None", Label: "None"},
	{Value: "Even", Label: "Even"},
	{Value: "Odd", Label: "Odd"},
}

// FieldState is the merged view of one scalar: who owns it and the value to
// display.
type FieldState struct {
	Name    ScalarField `json:"name"`
	Label   string      `json:"label"`
	Mode    Mode        `json:"mode"`
	Value   any         `json:"value"`
	Options []Option    `json:"options,omitempty"`
}

// RegisterState is the merged view of one register class. MaxSize carries
// the device limit when the type declares one; enforcing it is left to the
// persistence layer.
type RegisterState struct {
	Name    RegisterName `json:"name"`
	Label   string       `json:"label"`
	Start   *int         `json:"start,omitempty"`
	Size    *int         `json:"size,omitempty"`
	MaxSize *int         `json:"max_size,omitempty"`
}

type Form struct {
	DeviceTypes []Option        `json:"device_types"`
	Selected    string          `json:"selected_type,omitempty"`
	Fields      []FieldState    `json:"fields"`
	Registers   []RegisterState `json:"registers"`
}

// Resolve decides for every field shown for def whether it is fixed or
// editable and which value it displays. ports become the commPort options.
func Resolve(def DeviceType, rec types.DeviceRecord, ports []string) []FieldState {
	fields := []FieldState{
		{Name: FieldName, Label: FieldName.Label(), Mode: ModeEditable, Value: rec.Name},
		numericState(FieldSlaveID, def.SlaveID, rec.SlaveID),
	}

	switch def.Protocol {
	case types.ProtocolRTU:
		fields = append(fields,
			FieldState{
				Name:    FieldCommPort,
				Label:   FieldCommPort.Label(),
				Mode:    ModeEditable,
				Value:   rec.CommPort,
				Options: portOptions(ports),
			},
			numericState(FieldBaudRate, def.BaudRate, rec.BaudRate),
			FieldState{
				Name:    FieldParity,
				Label:   FieldParity.Label(),
				Mode:    ModeEditable,
				Value:   rec.Parity,
				Options: Parities,
			},
			numericState(FieldDataBits, def.DataBits, rec.DataBits),
			numericState(FieldStopBits, def.StopBits, rec.StopBits),
		)
	case types.ProtocolTCP:
		fields = append(fields,
			FieldState{Name: FieldAddress, Label: FieldAddress.Label(), Mode: ModeEditable, Value: rec.Address},
			numericState(FieldPort, def.Port, rec.Port),
		)
	}

	return fields
}

func numericState(f ScalarField, field Field[int], current int) FieldState {
	return FieldState{
		Name:  f,
		Label: f.Label(),
		Mode:  field.Mode(),
		Value: field.Resolve(current),
	}
}

func portOptions(ports []string) []Option {
	options := make([]Option, 0, len(ports))
	for _, p := range ports {
		options = append(options, Option{Value: p, Label: p})
	}
	return options
}

// ResolveRegisters merges the record's register map with def's capacity.
func ResolveRegisters(def *DeviceType, rec types.DeviceRecord) []RegisterState {
	states := make([]RegisterState, 0, len(RegisterNames))
	for _, name := range RegisterNames {
		r, _ := registerOf(&rec, name)
		current := r.Clone()
		state := RegisterState{
			Name:  name,
			Label: name.Label(),
			Start: current.Start,
			Size:  current.Size,
		}
		if def != nil {
			state.MaxSize = def.Register(name).Size
		}
		states = append(states, state)
	}
	return states
}

// PortLister supplies the serial port names offered for RTU devices.
type PortLister interface {
	List(ctx context.Context) ([]string, error)
}

// Composer assembles the complete edit form for a session.
type Composer struct {
	catalog *Catalog
	ports   PortLister
	logger  *zap.Logger
}

func NewComposer(catalog *Catalog, ports PortLister, logger *zap.Logger) *Composer {
	return &Composer{
		catalog: catalog,
		ports:   ports,
		logger:  logger,
	}
}

// Compose builds the form for rec. def is nil while no device type is
// selected; only the name and the type selector are shown then.
func (c *Composer) Compose(ctx context.Context, def *DeviceType, rec types.DeviceRecord) Form {
	form := Form{
		DeviceTypes: c.deviceTypeOptions(),
		Registers:   ResolveRegisters(def, rec),
	}

	if def == nil {
		form.Fields = []FieldState{
			{Name: FieldName, Label: FieldName.Label(), Mode: ModeEditable, Value: rec.Name},
		}
		return form
	}

	form.Selected = def.ID

	var ports []string
	if def.Protocol == types.ProtocolRTU && c.ports != nil {
		var err error
		ports, err = c.ports.List(ctx)
		if err != nil {
			// The form stays usable without port suggestions.
			c.logger.Warn("Failed to enumerate serial ports", zap.Error(err))
			ports = nil
		}
	}

	form.Fields = Resolve(*def, rec, ports)

	c.logger.Debug("Composed device form",
		zap.String("device_type", def.ID),
		zap.Int("fields", len(form.Fields)),
		zap.Int("ports", len(ports)))

	return form
}

func (c *Composer) deviceTypeOptions() []Option {
	defs := c.catalog.List()
	options := make([]Option, 0, len(defs))
	for _, def := range defs {
		options = append(options, Option{Value: def.ID, Label: def.Name})
	}
	return options
}
