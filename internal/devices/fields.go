package devices

import (
	"fmt"

	"github.com/KevinKickass/OpenPLCConsole/internal/types"
)

// ScalarField names a top-level record value the operator may edit.
// id, constraintId and protocol are deliberately absent: they change only
// through SwitchType.
type ScalarField string

const (
	FieldName     ScalarField = "name"
	FieldSlaveID  ScalarField = "slaveId"
	FieldAddress  ScalarField = "address"
	FieldPort     ScalarField = "port"
	FieldCommPort ScalarField = "commPort"
	FieldBaudRate ScalarField = "baudRate"
	FieldParity   ScalarField = "parity"
	FieldDataBits ScalarField = "dataBits"
	FieldStopBits ScalarField = "stopBits"
)

var scalarFields = []ScalarField{
	FieldName, FieldSlaveID, FieldAddress, FieldPort, FieldCommPort,
	FieldBaudRate, FieldParity, FieldDataBits, FieldStopBits,
}

// connectionFields are the fields cleared or carried over on a type switch.
var connectionFields = []ScalarField{
	FieldSlaveID, FieldAddress, FieldPort, FieldCommPort,
	FieldBaudRate, FieldParity, FieldDataBits, FieldStopBits,
}

var scalarLabels = map[ScalarField]string{
	FieldName:     "Device Name",
	FieldSlaveID:  "Slave ID",
	FieldAddress:  "IP Address",
	FieldPort:     "IP Port",
	FieldCommPort: "COM Port",
	FieldBaudRate: "Baud Rate",
	FieldParity:   "Parity",
	FieldDataBits: "Data Bits",
	FieldStopBits: "Stop Bits",
}

func ParseScalarField(s string) (ScalarField, error) {
	f := ScalarField(s)
	if _, ok := scalarLabels[f]; !ok {
		return "", fmt.Errorf("%w: %q is not an editable field", ErrInvalidField, s)
	}
	return f, nil
}

func (f ScalarField) Label() string { return scalarLabels[f] }

func (f ScalarField) Numeric() bool {
	switch f {
	case FieldSlaveID, FieldPort, FieldBaudRate, FieldDataBits, FieldStopBits:
		return true
	}
	return false
}

// RelevantTo reports whether the field is shown for devices speaking p.
func (f ScalarField) RelevantTo(p types.Protocol) bool {
	switch f {
	case FieldName, FieldSlaveID:
		return true
	case FieldAddress, FieldPort:
		return p == types.ProtocolTCP
	case FieldCommPort, FieldBaudRate, FieldParity, FieldDataBits, FieldStopBits:
		return p == types.ProtocolRTU
	}
	return false
}

type RegisterName string

const (
	RegisterDI  RegisterName = "di"
	RegisterDO  RegisterName = "do"
	RegisterAI  RegisterName = "ai"
	RegisterAOR RegisterName = "aor"
	RegisterAOW RegisterName = "aow"
)

// RegisterNames lists the register classes in display order.
var RegisterNames = []RegisterName{RegisterDI, RegisterDO, RegisterAI, RegisterAOR, RegisterAOW}

var registerLabels = map[RegisterName]string{
	RegisterDI:  "Discrete Inputs (%IX100.0)",
	RegisterDO:  "Coils (%QX100.0)",
	RegisterAI:  "Input Registers (%IW100)",
	RegisterAOR: "Holding Registers - Read (%IW100)",
	RegisterAOW: "Holding Registers - Write (%QW100)",
}

func ParseRegisterName(s string) (RegisterName, error) {
	r := RegisterName(s)
	if _, ok := registerLabels[r]; !ok {
		return "", fmt.Errorf("%w: unknown register %q", ErrInvalidField, s)
	}
	return r, nil
}

func (r RegisterName) Label() string { return registerLabels[r] }

type SubField string

const (
	SubFieldStart SubField = "start"
	SubFieldSize  SubField = "size"
)

func ParseSubField(s string) (SubField, error) {
	switch SubField(s) {
	case SubFieldStart, SubFieldSize:
		return SubField(s), nil
	}
	return "", fmt.Errorf("%w: unknown register field %q", ErrInvalidField, s)
}

func registerOf(rec *types.DeviceRecord, name RegisterName) (*types.RegisterRange, bool) {
	switch name {
	case RegisterDI:
		return &rec.DI, true
	case RegisterDO:
		return &rec.DO, true
	case RegisterAI:
		return &rec.AI, true
	case RegisterAOR:
		return &rec.AOR, true
	case RegisterAOW:
		return &rec.AOW, true
	}
	return nil, false
}

func leafOf(r *types.RegisterRange, sub SubField) (**int, bool) {
	switch sub {
	case SubFieldStart:
		return &r.Start, true
	case SubFieldSize:
		return &r.Size, true
	}
	return nil, false
}

func scalarValue(rec types.DeviceRecord, f ScalarField) any {
	switch f {
	case FieldName:
		return rec.Name
	case FieldSlaveID:
		return rec.SlaveID
	case FieldAddress:
		return rec.Address
	case FieldPort:
		return rec.Port
	case FieldCommPort:
		return rec.CommPort
	case FieldBaudRate:
		return rec.BaudRate
	case FieldParity:
		return rec.Parity
	case FieldDataBits:
		return rec.DataBits
	case FieldStopBits:
		return rec.StopBits
	}
	return nil
}
