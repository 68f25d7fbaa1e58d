package devices

import (
	"encoding/json"
	"testing"

	"github.com/KevinKickass/OpenPLCConsole/internal/types"
	"github.com/stretchr/testify/require"
)

func TestCatalogLookup(t *testing.T) {
	catalog := DefaultCatalog()

	def, err := catalog.Lookup("EPS32")
	require.NoError(t, err)
	require.Equal(t, types.ProtocolTCP, def.Protocol)
	require.True(t, def.IsFixed(FieldSlaveID))
	require.False(t, def.IsFixed(FieldPort))
	require.Equal(t, DefaultModbusTCPPort, def.Port.Value())

	_, err = catalog.Lookup("DoesNotExist")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogLookupReturnsCopy(t *testing.T) {
	catalog := DefaultCatalog()

	def, err := catalog.Lookup("Uno")
	require.NoError(t, err)
	*def.DI.Size = 1000

	again, err := catalog.Lookup("Uno")
	require.NoError(t, err)
	require.Equal(t, 5, *again.DI.Size)
}

func TestCatalogListKeepsOrder(t *testing.T) {
	catalog := DefaultCatalog()

	ids := make([]string, 0, catalog.Len())
	for _, def := range catalog.List() {
		ids = append(ids, def.ID)
	}
	require.Equal(t, []string{"Uno", "Mega", "EPS32", "EPS8266", "TCP", "RTU"}, ids)
}

func TestNewCatalogRejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		defs []DeviceType
	}{
		{"empty id", []DeviceType{{Protocol: types.ProtocolTCP}}},
		{"unknown protocol", []DeviceType{{ID: "x", Protocol: "can"}}},
		{"serial field on tcp", []DeviceType{{ID: "x", Protocol: types.ProtocolTCP, BaudRate: Fixed(9600)}}},
		{"port on rtu", []DeviceType{{ID: "x", Protocol: types.ProtocolRTU, Port: Editable(502)}}},
		{"negative register", []DeviceType{{ID: "x", Protocol: types.ProtocolRTU, DI: types.NewRegisterRange(-1, 4)}}},
		{"duplicate id", []DeviceType{
			{ID: "x", Protocol: types.ProtocolRTU},
			{ID: "x", Protocol: types.ProtocolTCP},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.defs...)
			require.Error(t, err)
		})
	}
}

func TestFieldResolve(t *testing.T) {
	fixed := Fixed(8)
	require.True(t, fixed.IsFixed())
	require.Equal(t, 8, fixed.Resolve(7))
	require.Equal(t, 8, fixed.Resolve(0))

	editable := Editable(502)
	require.False(t, editable.IsFixed())
	require.Equal(t, 1502, editable.Resolve(1502))
	require.Equal(t, 502, editable.Resolve(0))

	var unset Field[int]
	require.Equal(t, ModeEditable, unset.Mode())
	require.Equal(t, 0, unset.Resolve(0))
}

func TestFieldMarshalJSON(t *testing.T) {
	data, err := json.Marshal(Fixed(115200))
	require.NoError(t, err)
	require.JSONEq(t, `{"mode":"fixed","value":115200}`, string(data))
}

func TestParseFieldNames(t *testing.T) {
	f, err := ParseScalarField("baudRate")
	require.NoError(t, err)
	require.Equal(t, FieldBaudRate, f)

	_, err = ParseScalarField("constraintId")
	require.ErrorIs(t, err, ErrInvalidField)

	r, err := ParseRegisterName("aor")
	require.NoError(t, err)
	require.Equal(t, RegisterAOR, r)

	_, err = ParseRegisterName("hr")
	require.ErrorIs(t, err, ErrInvalidField)

	_, err = ParseSubField("length")
	require.ErrorIs(t, err, ErrInvalidField)
}

func TestRelevantTo(t *testing.T) {
	for _, f := range []ScalarField{FieldCommPort, FieldBaudRate, FieldParity, FieldDataBits, FieldStopBits} {
		require.False(t, f.RelevantTo(types.ProtocolTCP), f)
		require.True(t, f.RelevantTo(types.ProtocolRTU), f)
	}
	for _, f := range []ScalarField{FieldAddress, FieldPort} {
		require.True(t, f.RelevantTo(types.ProtocolTCP), f)
		require.False(t, f.RelevantTo(types.ProtocolRTU), f)
	}
	require.True(t, FieldName.RelevantTo(types.ProtocolTCP))
	require.True(t, FieldSlaveID.RelevantTo(types.ProtocolRTU))
}
