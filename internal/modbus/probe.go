package modbus

import (
	"context"
	"time"

	"github.com/KevinKickass/OpenPLCConsole/internal/devices"
	"github.com/KevinKickass/OpenPLCConsole/internal/telemetry"
	"github.com/KevinKickass/OpenPLCConsole/internal/types"
	"go.uber.org/zap"
)

var registerAreas = map[devices.RegisterName]Area{
	devices.RegisterDI:  AreaDiscreteInputs,
	devices.RegisterDO:  AreaCoils,
	devices.RegisterAI:  AreaInputRegisters,
	devices.RegisterAOR: AreaHoldingRegisters,
	devices.RegisterAOW: AreaHoldingRegisters,
}

type RegisterProbe struct {
	Register devices.RegisterName `json:"register"`
	Area     string               `json:"area"`
	Start    int                  `json:"start"`
	Size     int                  `json:"size"`
	Values   []int                `json:"values,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// ProbeResult reports whether a configured device answers and what each
// configured register block returned.
type ProbeResult struct {
	DeviceID  string          `json:"device_id,omitempty"`
	Protocol  types.Protocol  `json:"protocol"`
	Target    string          `json:"target"`
	Reachable bool            `json:"reachable"`
	Error     string          `json:"error,omitempty"`
	Registers []RegisterProbe `json:"registers"`
	ElapsedMS int64           `json:"elapsed_ms"`
}

// Prober checks device records against the real hardware.
type Prober struct {
	timeout   time.Duration
	logger    *zap.Logger
	telemetry telemetry.Collector
}

func NewProber(timeout time.Duration, collector telemetry.Collector, logger *zap.Logger) *Prober {
	if collector == nil {
		collector = telemetry.Noop()
	}
	return &Prober{
		timeout:   timeout,
		logger:    logger,
		telemetry: collector,
	}
}

// Probe connects to rec and reads every register block with a non-zero
// size, clamped to one request. The error is only set when rec cannot be
// probed at all; an unreachable device is reported in the result.
func (p *Prober) Probe(ctx context.Context, rec types.DeviceRecord) (ProbeResult, error) {
	client, err := NewClient(rec, p.timeout)
	if err != nil {
		return ProbeResult{}, err
	}

	started := time.Now()
	result := ProbeResult{
		DeviceID:  rec.ID,
		Protocol:  rec.Protocol,
		Target:    client.Target(),
		Registers: make([]RegisterProbe, 0, len(devices.RegisterNames)),
	}
	defer func() {
		p.telemetry.ObserveProbe(string(rec.Protocol), result.Reachable, time.Since(started))
	}()

	if err := client.Connect(); err != nil {
		result.Error = err.Error()
		result.ElapsedMS = time.Since(started).Milliseconds()
		p.logger.Info("Device probe failed to connect",
			zap.String("device_id", rec.ID),
			zap.String("target", result.Target),
			zap.Error(err))
		return result, nil
	}
	defer client.Close()

	result.Reachable = true

	for _, name := range devices.RegisterNames {
		r := registerOf(rec, name)
		if r.Start == nil || r.Size == nil || *r.Size == 0 {
			continue
		}

		area := registerAreas[name]
		size := *r.Size
		if size > area.MaxQuantity() {
			size = area.MaxQuantity()
		}

		entry := RegisterProbe{
			Register: name,
			Area:     area.String(),
			Start:    *r.Start,
			Size:     size,
		}

		values, err := client.Read(ctx, area, *r.Start, size)
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Values = values
		}
		result.Registers = append(result.Registers, entry)

		if ctx.Err() != nil {
			break
		}
	}

	result.ElapsedMS = time.Since(started).Milliseconds()

	p.logger.Info("Device probed",
		zap.String("device_id", rec.ID),
		zap.String("target", result.Target),
		zap.Int("blocks", len(result.Registers)),
		zap.Int64("elapsed_ms", result.ElapsedMS))

	return result, nil
}

func registerOf(rec types.DeviceRecord, name devices.RegisterName) types.RegisterRange {
	switch name {
	case devices.RegisterDI:
		return rec.DI
	case devices.RegisterDO:
		return rec.DO
	case devices.RegisterAI:
		return rec.AI
	case devices.RegisterAOR:
		return rec.AOR
	case devices.RegisterAOW:
		return rec.AOW
	}
	return types.RegisterRange{}
}
