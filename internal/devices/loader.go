package devices

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KevinKickass/OpenPLCConsole/internal/types"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type fieldSpec struct {
	Fixed   *int `json:"fixed"`
	Default *int `json:"default"`
}

func (f *fieldSpec) field() Field[int] {
	switch {
	case f == nil:
		return Field[int]{}
	case f.Fixed != nil:
		return Fixed(*f.Fixed)
	case f.Default != nil:
		return Editable(*f.Default)
	}
	return Field[int]{}
}

type descriptor struct {
	ID        string                         `json:"id"`
	Name      string                         `json:"name"`
	Protocol  types.Protocol                 `json:"protocol"`
	SlaveID   *fieldSpec                     `json:"slave_id"`
	Port      *fieldSpec                     `json:"port"`
	BaudRate  *fieldSpec                     `json:"baud_rate"`
	DataBits  *fieldSpec                     `json:"data_bits"`
	StopBits  *fieldSpec                     `json:"stop_bits"`
	Registers map[string]types.RegisterRange `json:"registers"`
}

func (d descriptor) deviceType() DeviceType {
	def := DeviceType{
		ID:       d.ID,
		Name:     d.Name,
		Protocol: d.Protocol,
		SlaveID:  d.SlaveID.field(),
		Port:     d.Port.field(),
		BaudRate: d.BaudRate.field(),
		DataBits: d.DataBits.field(),
		StopBits: d.StopBits.field(),
		DI:       d.Registers[string(RegisterDI)],
		DO:       d.Registers[string(RegisterDO)],
		AI:       d.Registers[string(RegisterAI)],
		AOR:      d.Registers[string(RegisterAOR)],
		AOW:      d.Registers[string(RegisterAOW)],
	}

	if def.Protocol == types.ProtocolTCP && d.Port == nil {
		def.Port = Editable(DefaultModbusTCPPort)
	}

	return def
}

// LoadCatalog builds the catalog from the built-in device types plus every
// descriptor (*.json, *.yaml, *.yml) found directly in searchPaths.
// Missing directories are skipped; an invalid descriptor fails the load.
func LoadCatalog(searchPaths []string, logger *zap.Logger) (*Catalog, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	defs := Builtin()

	for _, searchPath := range searchPaths {
		entries, err := os.ReadDir(searchPath)
		if os.IsNotExist(err) {
			logger.Warn("Device type directory does not exist", zap.String("path", searchPath))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", searchPath, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !isDescriptorFile(entry.Name()) {
				continue
			}

			fullPath := filepath.Join(searchPath, entry.Name())
			def, err := loadDescriptor(validator, fullPath)
			if err != nil {
				return nil, err
			}

			logger.Info("Loaded device type",
				zap.String("id", def.ID),
				zap.String("protocol", string(def.Protocol)),
				zap.String("path", fullPath))

			defs = append(defs, def)
		}
	}

	catalog, err := NewCatalog(defs...)
	if err != nil {
		return nil, fmt.Errorf("failed to build device catalog: %w", err)
	}

	logger.Info("Device catalog ready", zap.Int("device_types", catalog.Len()))
	return catalog, nil
}

func isDescriptorFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func loadDescriptor(validator *Validator, path string) (DeviceType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DeviceType{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		data, err = yamlToJSON(data)
		if err != nil {
			return DeviceType{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := validator.ValidateDescriptor(data); err != nil {
		return DeviceType{}, fmt.Errorf("validation failed for %s: %w", path, err)
	}

	var d descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return DeviceType{}, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}

	return d.deviceType(), nil
}

// yamlToJSON re-encodes a YAML document so that it can go through the same
// schema check as JSON descriptors.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
