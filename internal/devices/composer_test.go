package devices

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticPorts struct {
	ports []string
	err   error
	calls int
}

func (p *staticPorts) List(context.Context) ([]string, error) {
	p.calls++
	return p.ports, p.err
}

func fieldNames(fields []FieldState) []ScalarField {
	names := make([]ScalarField, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return names
}

func findField(t *testing.T, fields []FieldState, name ScalarField) FieldState {
	t.Helper()
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("field %s not in form", name)
	return FieldState{}
}

func TestResolveRTU(t *testing.T) {
	def := mustLookup(t, "Mega")
	rec := ReseedFrom(def)
	rec.CommPort = "/dev/ttyUSB0"

	fields := Resolve(def, rec, []string{"/dev/ttyUSB0", "/dev/ttyS0"})

	require.Equal(t, []ScalarField{
		FieldName, FieldSlaveID, FieldCommPort, FieldBaudRate, FieldParity, FieldDataBits, FieldStopBits,
	}, fieldNames(fields))

	baud := findField(t, fields, FieldBaudRate)
	require.Equal(t, ModeFixed, baud.Mode)
	require.Equal(t, 11500, baud.Value)

	comm := findField(t, fields, FieldCommPort)
	require.Equal(t, ModeEditable, comm.Mode)
	require.Equal(t, "/dev/ttyUSB0", comm.Value)
	require.Len(t, comm.Options, 2)

	parity := findField(t, fields, FieldParity)
	require.Equal(t, Parities, parity.Options)
}

func TestResolveTCP(t *testing.T) {
	def := mustLookup(t, "EPS32")
	rec := ReseedFrom(def)
	rec.Port = 0

	fields := Resolve(def, rec, nil)

	require.Equal(t, []ScalarField{FieldName, FieldSlaveID, FieldAddress, FieldPort}, fieldNames(fields))

	port := findField(t, fields, FieldPort)
	require.Equal(t, ModeEditable, port.Mode)
	require.Equal(t, DefaultModbusTCPPort, port.Value)
	require.Equal(t, ModeFixed, findField(t, fields, FieldSlaveID).Mode)
}

func TestResolveRegistersCarriesCapacity(t *testing.T) {
	def := mustLookup(t, "Mega")
	rec := ReseedFrom(def)
	rec.AOW.Size = intPtr(20)

	states := ResolveRegisters(&def, rec)
	require.Len(t, states, len(RegisterNames))

	aow := states[4]
	require.Equal(t, RegisterAOW, aow.Name)
	require.Equal(t, 20, *aow.Size)
	require.Equal(t, 12, *aow.MaxSize)

	states = ResolveRegisters(nil, rec)
	require.Nil(t, states[0].MaxSize)
}

func TestComposerListsPortsForRTUOnly(t *testing.T) {
	ports := &staticPorts{ports: []string{"/dev/ttyACM0"}}
	composer := NewComposer(DefaultCatalog(), ports, zap.NewNop())

	def := mustLookup(t, "Uno")
	form := composer.Compose(context.Background(), &def, ReseedFrom(def))
	require.Equal(t, "Uno", form.Selected)
	require.Len(t, form.DeviceTypes, DefaultCatalog().Len())
	require.Len(t, findField(t, form.Fields, FieldCommPort).Options, 1)
	require.Equal(t, 1, ports.calls)

	tcp := mustLookup(t, "TCP")
	composer.Compose(context.Background(), &tcp, ReseedFrom(tcp))
	require.Equal(t, 1, ports.calls)
}

func TestComposerSurvivesPortErrors(t *testing.T) {
	composer := NewComposer(DefaultCatalog(), &staticPorts{err: errors.New("permission denied")}, zap.NewNop())

	def := mustLookup(t, "RTU")
	form := composer.Compose(context.Background(), &def, ReseedFrom(def))

	require.Empty(t, findField(t, form.Fields, FieldCommPort).Options)
}

func TestComposerWithoutDeviceType(t *testing.T) {
	composer := NewComposer(DefaultCatalog(), nil, zap.NewNop())

	def := mustLookup(t, "Uno")
	rec := ReseedFrom(def)
	rec.Name = "Orphan"

	form := composer.Compose(context.Background(), nil, rec)
	require.Empty(t, form.Selected)
	require.Equal(t, []ScalarField{FieldName}, fieldNames(form.Fields))
	require.Equal(t, "Orphan", form.Fields[0].Value)
	require.Len(t, form.Registers, len(RegisterNames))
}
