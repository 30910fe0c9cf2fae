package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiledSchema wraps a compiled capability schema. A nil *compiledSchema
// accepts any params.
type compiledSchema struct {
	schema *jsonschema.Schema
}

// compileSchema compiles raw as a JSON Schema. Empty, null and "{}" schemas
// compile to nil, meaning no constraint.
func compileSchema(capabilityID string, raw json.RawMessage) (*compiledSchema, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return nil, nil
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(trimmed))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	location := fmt.Sprintf("urn:capability:%s", capabilityID)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(location, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := compiler.Compile(location)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &compiledSchema{schema: schema}, nil
}

// validate checks params against the schema. Missing params validate as an
// empty object.
func (c *compiledSchema) validate(params json.RawMessage) error {
	if c == nil {
		return nil
	}
	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 {
		trimmed = []byte("{}")
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(trimmed))
	if err != nil {
		return fmt.Errorf("params are not valid JSON: %w", err)
	}
	return c.schema.Validate(inst)
}
