package modbus

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/KevinKickass/OpenPLCConsole/internal/types"
	"github.com/stretchr/testify/require"
	"github.com/tbrandon/mbserver"
)

// startSlave runs an in-process Modbus TCP slave and returns its port.
func startSlave(t *testing.T) (*mbserver.Server, int) {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())

	slave := mbserver.NewServer()
	require.NoError(t, slave.ListenTCP(net.JoinHostPort("127.0.0.1", strconv.Itoa(port))))
	t.Cleanup(slave.Close)

	return slave, port
}

// closedPort returns a local port nothing listens on.
func closedPort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())
	return port
}

func tcpRecord(port int) types.DeviceRecord {
	return types.DeviceRecord{
		ID:       "dev-1",
		Protocol: types.ProtocolTCP,
		SlaveID:  1,
		Address:  "127.0.0.1",
		Port:     port,
	}
}

func TestNewClientValidatesRecord(t *testing.T) {
	tests := []struct {
		name string
		rec  types.DeviceRecord
		err  error
	}{
		{"tcp without address", types.DeviceRecord{Protocol: types.ProtocolTCP, Port: 502}, ErrIncompleteAddress},
		{"tcp without port", types.DeviceRecord{Protocol: types.ProtocolTCP, Address: "10.0.0.1"}, ErrIncompleteAddress},
		{"rtu without com port", types.DeviceRecord{Protocol: types.ProtocolRTU, BaudRate: 9600}, ErrIncompleteAddress},
		{"unknown protocol", types.DeviceRecord{Protocol: "can"}, ErrUnsupportedProtocol},
		{"slave id too large", types.DeviceRecord{Protocol: types.ProtocolTCP, SlaveID: 248}, ErrInvalidUnitID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.rec, time.Second)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestNewClientTargets(t *testing.T) {
	c, err := NewClient(tcpRecord(1502), time.Second)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:1502", c.Target())

	c, err = NewClient(types.DeviceRecord{
		Protocol: types.ProtocolRTU,
		CommPort: "/dev/ttyUSB0",
		BaudRate: 19200,
		Parity:   "Even",
		DataBits: 8,
		StopBits: 1,
	}, time.Second)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB0", c.Target())
}

func TestSerialParity(t *testing.T) {
	require.Equal(t, "N", serialParity("None"))
	require.Equal(t, "N", serialParity(""))
	require.Equal(t, "E", serialParity("Even"))
	require.Equal(t, "O", serialParity("Odd"))
}

func TestClientReadsAllAreas(t *testing.T) {
	slave, port := startSlave(t)
	slave.DiscreteInputs[2] = 1
	slave.Coils[0] = 1
	slave.Coils[3] = 1
	slave.InputRegisters[10] = 1234
	slave.HoldingRegisters[5] = 0xFFFF

	c, err := NewClient(tcpRecord(port), time.Second)
	require.NoError(t, err)
	require.NoError(t, c.Connect())
	defer c.Close()

	ctx := context.Background()

	values, err := c.Read(ctx, AreaDiscreteInputs, 0, 4)
	require.NoError(t, err)
	require.Equal(t, []int{0, 0, 1, 0}, values)

	values, err = c.Read(ctx, AreaCoils, 0, 4)
	require.NoError(t, err)
	require.Equal(t, []int{1, 0, 0, 1}, values)

	values, err = c.Read(ctx, AreaInputRegisters, 10, 2)
	require.NoError(t, err)
	require.Equal(t, []int{1234, 0}, values)

	values, err = c.Read(ctx, AreaHoldingRegisters, 5, 1)
	require.NoError(t, err)
	require.Equal(t, []int{65535}, values)
}

func TestClientReadGuards(t *testing.T) {
	c, err := NewClient(tcpRecord(closedPort(t)), 200*time.Millisecond)
	require.NoError(t, err)

	_, err = c.Read(context.Background(), AreaCoils, 0, 1)
	require.ErrorIs(t, err, ErrNotConnected)

	_, err = c.Read(context.Background(), AreaInputRegisters, 0, 126)
	require.Error(t, err)

	_, err = c.Read(context.Background(), AreaCoils, -1, 1)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Read(ctx, AreaCoils, 0, 1)
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, c.Close())
}

func TestUnpack(t *testing.T) {
	bits, err := unpackBits([]byte{0b0000_0101, 0b0000_0001}, 9)
	require.NoError(t, err)
	require.Equal(t, []int{1, 0, 1, 0, 0, 0, 0, 0, 1}, bits)

	_, err = unpackBits([]byte{0x01}, 9)
	require.Error(t, err)

	regs, err := unpackRegisters([]byte{0x01, 0x02, 0x00, 0x0A}, 2)
	require.NoError(t, err)
	require.Equal(t, []int{0x0102, 10}, regs)

	_, err = unpackRegisters([]byte{0x01}, 1)
	require.Error(t, err)
}
