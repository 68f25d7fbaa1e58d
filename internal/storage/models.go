package storage

import (
	"time"

	"github.com/KevinKickass/OpenPLCConsole/internal/types"
	"github.com/google/uuid"
)

const deviceColumns = `id, dev_name, dev_type, protocol, slave_id,
	ip_address, ip_port, com_port, baud_rate, parity, data_bits, stop_bits,
	di_start, di_size, coil_start, coil_size, ir_start, ir_size,
	hr_read_start, hr_read_size, hr_write_start, hr_write_size,
	created_at, updated_at`

// deviceRow mirrors one row of modbus_devices.
type deviceRow struct {
	ID        uuid.UUID
	Name      string
	Type      string
	Protocol  string
	SlaveID   int
	IPAddress string
	IPPort    int
	CommPort  string
	BaudRate  int
	Parity    string
	DataBits  int
	StopBits  int

	DIStart, DISize           *int
	CoilStart, CoilSize       *int
	IRStart, IRSize           *int
	HRReadStart, HRReadSize   *int
	HRWriteStart, HRWriteSize *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *deviceRow) scanTargets() []any {
	return []any{
		&r.ID, &r.Name, &r.Type, &r.Protocol, &r.SlaveID,
		&r.IPAddress, &r.IPPort, &r.CommPort, &r.BaudRate, &r.Parity, &r.DataBits, &r.StopBits,
		&r.DIStart, &r.DISize, &r.CoilStart, &r.CoilSize, &r.IRStart, &r.IRSize,
		&r.HRReadStart, &r.HRReadSize, &r.HRWriteStart, &r.HRWriteSize,
		&r.CreatedAt, &r.UpdatedAt,
	}
}

func (r *deviceRow) record() types.DeviceRecord {
	return types.DeviceRecord{
		ID:           r.ID.String(),
		Name:         r.Name,
		ConstraintID: r.Type,
		Protocol:     types.Protocol(r.Protocol),
		SlaveID:      r.SlaveID,
		Address:      r.IPAddress,
		Port:         r.IPPort,
		CommPort:     r.CommPort,
		BaudRate:     r.BaudRate,
		Parity:       r.Parity,
		DataBits:     r.DataBits,
		StopBits:     r.StopBits,
		DI:           types.RegisterRange{Start: r.DIStart, Size: r.DISize},
		DO:           types.RegisterRange{Start: r.CoilStart, Size: r.CoilSize},
		AI:           types.RegisterRange{Start: r.IRStart, Size: r.IRSize},
		AOR:          types.RegisterRange{Start: r.HRReadStart, Size: r.HRReadSize},
		AOW:          types.RegisterRange{Start: r.HRWriteStart, Size: r.HRWriteSize},
	}
}

// deviceArgs returns the insert arguments in deviceColumns order, without
// the timestamps.
func deviceArgs(id uuid.UUID, rec types.DeviceRecord) []any {
	return []any{
		id, rec.Name, rec.ConstraintID, string(rec.Protocol), rec.SlaveID,
		rec.Address, rec.Port, rec.CommPort, rec.BaudRate, rec.Parity, rec.DataBits, rec.StopBits,
		rec.DI.Start, rec.DI.Size, rec.DO.Start, rec.DO.Size, rec.AI.Start, rec.AI.Size,
		rec.AOR.Start, rec.AOR.Size, rec.AOW.Start, rec.AOW.Size,
	}
}
