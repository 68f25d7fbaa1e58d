package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolRTU Protocol = "rtu"
)

func (p Protocol) Valid() bool {
	return p == ProtocolTCP || p == ProtocolRTU
}

// UnmarshalJSON accepts "tcp"/"rtu" as well as the numeric values used by
// older console builds (1 = TCP, 2 = RTU).
func (p *Protocol) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		switch n {
		case 1:
			*p = ProtocolTCP
		case 2:
			*p = ProtocolRTU
		default:
			return fmt.Errorf("unknown protocol: %d", n)
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid protocol: %w", err)
	}

	proto := Protocol(strings.ToLower(s))
	if !proto.Valid() {
		return fmt.Errorf("unknown protocol: %q", s)
	}
	*p = proto
	return nil
}

// RegisterRange describes one contiguous block of Modbus addresses.
// A nil Start or Size means the value is unset.
type RegisterRange struct {
	Start *int `json:"start,omitempty" yaml:"start,omitempty"`
	Size  *int `json:"size,omitempty" yaml:"size,omitempty"`
}

func NewRegisterRange(start, size int) RegisterRange {
	return RegisterRange{Start: &start, Size: &size}
}

func (r RegisterRange) Clone() RegisterRange {
	var out RegisterRange
	if r.Start != nil {
		v := *r.Start
		out.Start = &v
	}
	if r.Size != nil {
		v := *r.Size
		out.Size = &v
	}
	return out
}

func (r RegisterRange) Equal(o RegisterRange) bool {
	return intPtrEqual(r.Start, o.Start) && intPtrEqual(r.Size, o.Size)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// DeviceRecord is the operator-facing configuration of one Modbus slave.
// An empty ID marks a device that has not been persisted yet.
type DeviceRecord struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ConstraintID string   `json:"constraintId"`
	Protocol     Protocol `json:"protocol"`
	SlaveID      int      `json:"slaveId"`

	// TCP devices
	Address string `json:"address,omitempty"`
	Port    int    `json:"port,omitempty"`

	// RTU devices
	CommPort string `json:"commPort,omitempty"`
	BaudRate int    `json:"baudRate,omitempty"`
	Parity   string `json:"parity,omitempty"`
	DataBits int    `json:"dataBits,omitempty"`
	StopBits int    `json:"stopBits,omitempty"`

	DI  RegisterRange `json:"di"`
	DO  RegisterRange `json:"do"`
	AI  RegisterRange `json:"ai"`
	AOR RegisterRange `json:"aor"`
	AOW RegisterRange `json:"aow"`
}

// Clone returns a deep copy; register pointers are not shared.
func (d DeviceRecord) Clone() DeviceRecord {
	out := d
	out.DI = d.DI.Clone()
	out.DO = d.DO.Clone()
	out.AI = d.AI.Clone()
	out.AOR = d.AOR.Clone()
	out.AOW = d.AOW.Clone()
	return out
}

// Equal compares by value, including register contents.
func (d DeviceRecord) Equal(o DeviceRecord) bool {
	a, b := d, o
	a.DI, a.DO, a.AI, a.AOR, a.AOW = RegisterRange{}, RegisterRange{}, RegisterRange{}, RegisterRange{}, RegisterRange{}
	b.DI, b.DO, b.AI, b.AOR, b.AOW = RegisterRange{}, RegisterRange{}, RegisterRange{}, RegisterRange{}, RegisterRange{}
	return a == b &&
		d.DI.Equal(o.DI) &&
		d.DO.Equal(o.DO) &&
		d.AI.Equal(o.AI) &&
		d.AOR.Equal(o.AOR) &&
		d.AOW.Equal(o.AOW)
}
