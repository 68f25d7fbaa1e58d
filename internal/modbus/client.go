package modbus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/KevinKickass/OpenPLCConsole/internal/types"
	mb "github.com/goburrow/modbus"
)

var (
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
	ErrIncompleteAddress   = errors.New("device address incomplete")
	ErrInvalidUnitID       = errors.New("slave id out of range")
	ErrNotConnected        = errors.New("not connected")
)

// Area is one of the four Modbus data tables.
type Area int

const (
	AreaDiscreteInputs Area = iota
	AreaCoils
	AreaInputRegisters
	AreaHoldingRegisters
)

func (a Area) String() string {
	switch a {
	case AreaDiscreteInputs:
		return "discrete_inputs"
	case AreaCoils:
		return "coils"
	case AreaInputRegisters:
		return "input_registers"
	case AreaHoldingRegisters:
		return "holding_registers"
	default:
		return "unknown"
	}
}

// MaxQuantity is the largest read the protocol allows in one request.
func (a Area) MaxQuantity() int {
	switch a {
	case AreaDiscreteInputs, AreaCoils:
		return 2000
	default:
		return 125
	}
}

const maxUnitID = 247

type transport interface {
	mb.ClientHandler
	Connect() error
	Close() error
}

// Client reads from one configured device over Modbus TCP or RTU.
type Client struct {
	target    string
	timeout   time.Duration
	handler   transport
	client    mb.Client
	mu        sync.Mutex
	connected bool
}

// NewClient prepares a client for rec. Nothing is dialled until Connect.
func NewClient(rec types.DeviceRecord, timeout time.Duration) (*Client, error) {
	if rec.SlaveID < 0 || rec.SlaveID > maxUnitID {
		return nil, fmt.Errorf("%w: %d", ErrInvalidUnitID, rec.SlaveID)
	}

	c := &Client{timeout: timeout}

	switch rec.Protocol {
	case types.ProtocolTCP:
		if rec.Address == "" || rec.Port <= 0 {
			return nil, fmt.Errorf("%w: tcp device needs ip address and port", ErrIncompleteAddress)
		}
		c.target = net.JoinHostPort(rec.Address, strconv.Itoa(rec.Port))

		handler := mb.NewTCPClientHandler(c.target)
		handler.Timeout = timeout
		handler.SlaveId = byte(rec.SlaveID)
		c.handler = handler

	case types.ProtocolRTU:
		if rec.CommPort == "" {
			return nil, fmt.Errorf("%w: rtu device needs a com port", ErrIncompleteAddress)
		}
		c.target = rec.CommPort

		handler := mb.NewRTUClientHandler(rec.CommPort)
		handler.Timeout = timeout
		handler.SlaveId = byte(rec.SlaveID)
		handler.BaudRate = rec.BaudRate
		handler.DataBits = rec.DataBits
		handler.StopBits = rec.StopBits
		handler.Parity = serialParity(rec.Parity)
		c.handler = handler

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, rec.Protocol)
	}

	c.client = mb.NewClient(c.handler)
	return c, nil
}

// serialParity maps the console's parity names onto the serial library's.
func serialParity(parity string) string {
	switch parity {
	case "Even":
		return "E"
	case "Odd":
		return "O"
	default:
		return "N"
	}
}

// Target is the host:port or serial device the client talks to.
func (c *Client) Target() string {
	return c.target
}

func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	if err := c.handler.Connect(); err != nil {
		return fmt.Errorf("connection to %s failed: %w", c.target, err)
	}

	c.connected = true
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}

	c.connected = false
	return c.handler.Close()
}

// Read returns quantity values from area starting at start. Bits come back
// as 0 or 1, registers as their unsigned value.
func (c *Client) Read(ctx context.Context, area Area, start, quantity int) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if start < 0 || start > 0xFFFF {
		return nil, fmt.Errorf("start address out of range: %d", start)
	}
	if quantity <= 0 || quantity > area.MaxQuantity() {
		return nil, fmt.Errorf("quantity out of range for %s: %d", area, quantity)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, ErrNotConnected
	}

	addr, qty := uint16(start), uint16(quantity)

	var (
		raw []byte
		err error
	)
	switch area {
	case AreaDiscreteInputs:
		raw, err = c.client.ReadDiscreteInputs(addr, qty)
	case AreaCoils:
		raw, err = c.client.ReadCoils(addr, qty)
	case AreaInputRegisters:
		raw, err = c.client.ReadInputRegisters(addr, qty)
	case AreaHoldingRegisters:
		raw, err = c.client.ReadHoldingRegisters(addr, qty)
	default:
		return nil, fmt.Errorf("unknown area %d", area)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s %d+%d failed: %w", area, start, quantity, err)
	}

	if area == AreaDiscreteInputs || area == AreaCoils {
		return unpackBits(raw, quantity)
	}
	return unpackRegisters(raw, quantity)
}

func unpackBits(raw []byte, quantity int) ([]int, error) {
	if len(raw)*8 < quantity {
		return nil, fmt.Errorf("incomplete response: %d bytes for %d bits", len(raw), quantity)
	}

	values := make([]int, quantity)
	for i := range values {
		values[i] = int(raw[i/8]>>(uint(i)%8)) & 1
	}
	return values, nil
}

func unpackRegisters(raw []byte, quantity int) ([]int, error) {
	if len(raw) < quantity*2 {
		return nil, fmt.Errorf("incomplete response: %d bytes for %d registers", len(raw), quantity)
	}

	values := make([]int, quantity)
	for i := range values {
		values[i] = int(binary.BigEndian.Uint16(raw[i*2 : i*2+2]))
	}
	return values, nil
}
