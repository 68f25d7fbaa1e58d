package devices

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KevinKickass/OpenPLCConsole/internal/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const nanoYAML = `
id: Nano
name: Arduino Nano
protocol: rtu
slave_id:
  fixed: 0
baud_rate:
  fixed: 115200
data_bits:
  fixed: 8
stop_bits:
  fixed: 1
registers:
  di: {start: 0, size: 5}
  do: {start: 0, size: 4}
  ai: {start: 0, size: 6}
  aor: {start: 0, size: 0}
  aow: {start: 0, size: 3}
`

const gatewayJSON = `{
  "id": "Gateway",
  "name": "Serial Gateway",
  "protocol": "tcp",
  "slave_id": {"default": 1},
  "registers": {"ai": {"start": 100}}
}`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadCatalogMergesDescriptors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nano.yaml", nanoYAML)
	writeFile(t, dir, "gateway.json", gatewayJSON)
	writeFile(t, dir, "README.md", "not a descriptor")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	catalog, err := LoadCatalog([]string{dir, filepath.Join(dir, "missing")}, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, len(Builtin())+2, catalog.Len())

	nano, err := catalog.Lookup("Nano")
	require.NoError(t, err)
	require.Equal(t, types.ProtocolRTU, nano.Protocol)
	require.True(t, nano.BaudRate.IsFixed())
	require.Equal(t, 115200, nano.BaudRate.Value())
	require.Equal(t, 6, *nano.AI.Size)

	rec := ReseedFrom(nano)
	require.Equal(t, 115200, rec.BaudRate)

	gateway, err := catalog.Lookup("Gateway")
	require.NoError(t, err)
	require.False(t, gateway.IsFixed(FieldSlaveID))
	require.Equal(t, 1, gateway.SlaveID.Value())
	require.Equal(t, DefaultModbusTCPPort, gateway.Port.Value())
	require.Equal(t, 100, *gateway.AI.Start)
	require.Nil(t, gateway.AI.Size)
	require.Nil(t, gateway.DI.Start)
}

func TestLoadCatalogRejectsInvalidDescriptor(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"baud rate on tcp", "bad.json", `{"id":"X","name":"X","protocol":"tcp","baud_rate":{"fixed":9600}}`},
		{"port on rtu", "bad.yaml", "id: X\nname: X\nprotocol: rtu\nport: {default: 502}\n"},
		{"fixed and default", "bad.json", `{"id":"X","name":"X","protocol":"rtu","slave_id":{"fixed":1,"default":2}}`},
		{"negative size", "bad.json", `{"id":"X","name":"X","protocol":"rtu","registers":{"di":{"size":-1}}}`},
		{"unknown register", "bad.json", `{"id":"X","name":"X","protocol":"rtu","registers":{"hr":{"size":1}}}`},
		{"broken yaml", "bad.yml", "id: [unterminated"},
		{"duplicate builtin", "dup.json", `{"id":"Mega","name":"Another Mega","protocol":"rtu"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, tt.file, tt.content)

			_, err := LoadCatalog([]string{dir}, zap.NewNop())
			require.Error(t, err)
		})
	}
}

func TestValidatorAcceptsShippedDescriptor(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "device-types", "nano.yaml"))
	require.NoError(t, err)

	doc, err := yamlToJSON(data)
	require.NoError(t, err)

	validator, err := NewValidator()
	require.NoError(t, err)
	require.NoError(t, validator.ValidateDescriptor(doc))
}
