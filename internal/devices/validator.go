package devices

import (
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/device-type-v1.json
var deviceTypeSchemaJSON string

type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource("device-type-v1.json",
		strings.NewReader(deviceTypeSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("device-type-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// ValidateDescriptor checks a JSON encoded device type descriptor.
func (v *Validator) ValidateDescriptor(data []byte) error {
	var descriptor interface{}
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := v.schema.Validate(descriptor); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}
