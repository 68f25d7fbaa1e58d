package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/KevinKickass/OpenPLCConsole/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SaveDevice inserts or updates a device record
func (p *PostgresClient) SaveDevice(ctx context.Context, rec types.DeviceRecord) (types.DeviceRecord, error) {
	id := uuid.New()
	if rec.ID != "" {
		parsed, err := uuid.Parse(rec.ID)
		if err != nil {
			return types.DeviceRecord{}, fmt.Errorf("invalid device id %q: %w", rec.ID, err)
		}
		id = parsed
	}

	var row deviceRow
	err := p.pool.QueryRow(ctx, `
		INSERT INTO modbus_devices (
			id, dev_name, dev_type, protocol, slave_id,
			ip_address, ip_port, com_port, baud_rate, parity, data_bits, stop_bits,
			di_start, di_size, coil_start, coil_size, ir_start, ir_size,
			hr_read_start, hr_read_size, hr_write_start, hr_write_size
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (id)
		DO UPDATE SET
			dev_name = EXCLUDED.dev_name,
			dev_type = EXCLUDED.dev_type,
			protocol = EXCLUDED.protocol,
			slave_id = EXCLUDED.slave_id,
			ip_address = EXCLUDED.ip_address,
			ip_port = EXCLUDED.ip_port,
			com_port = EXCLUDED.com_port,
			baud_rate = EXCLUDED.baud_rate,
			parity = EXCLUDED.parity,
			data_bits = EXCLUDED.data_bits,
			stop_bits = EXCLUDED.stop_bits,
			di_start = EXCLUDED.di_start,
			di_size = EXCLUDED.di_size,
			coil_start = EXCLUDED.coil_start,
			coil_size = EXCLUDED.coil_size,
			ir_start = EXCLUDED.ir_start,
			ir_size = EXCLUDED.ir_size,
			hr_read_start = EXCLUDED.hr_read_start,
			hr_read_size = EXCLUDED.hr_read_size,
			hr_write_start = EXCLUDED.hr_write_start,
			hr_write_size = EXCLUDED.hr_write_size,
			updated_at = NOW()
		RETURNING `+deviceColumns,
		deviceArgs(id, rec)...,
	).Scan(row.scanTargets()...)

	if err != nil {
		return types.DeviceRecord{}, fmt.Errorf("failed to upsert device: %w", err)
	}

	return row.record(), nil
}

// GetDevice loads one device by id
func (p *PostgresClient) GetDevice(ctx context.Context, id string) (types.DeviceRecord, error) {
	deviceID, err := uuid.Parse(id)
	if err != nil {
		return types.DeviceRecord{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	var row deviceRow
	err = p.pool.QueryRow(ctx, `
		SELECT `+deviceColumns+`
		FROM modbus_devices
		WHERE id = $1
	`, deviceID).Scan(row.scanTargets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.DeviceRecord{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
		}
		return types.DeviceRecord{}, fmt.Errorf("failed to get device: %w", err)
	}

	return row.record(), nil
}

// ListDevices loads all devices ordered by name
func (p *PostgresClient) ListDevices(ctx context.Context) ([]types.DeviceRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+deviceColumns+`
		FROM modbus_devices
		ORDER BY dev_name, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := make([]types.DeviceRecord, 0)

	for rows.Next() {
		var row deviceRow
		if err := rows.Scan(row.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, row.record())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}

	return devices, nil
}

// DeleteDevice removes a device from database
func (p *PostgresClient) DeleteDevice(ctx context.Context, id string) error {
	deviceID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	result, err := p.pool.Exec(ctx, `
		DELETE FROM modbus_devices
		WHERE id = $1
	`, deviceID)

	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	return nil
}
