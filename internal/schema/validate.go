package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Compile turns a schema map into a reusable validator.
func Compile(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}

// ValidateJSON validates raw JSON against a compiled schema.
func ValidateJSON(s *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	s, err := Compile("schema.json", schemaMap)
	if err != nil {
		return err
	}
	return ValidateJSON(s, data)
}

// ValidateValue marshals v and validates it against s.
func ValidateValue(s *jsonschema.Schema, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	return ValidateJSON(s, b)
}

var (
	outputOnce   sync.Once
	outputSchema *jsonschema.Schema
	outputErr    error
)

// OutputValidator returns the compiled schema of the caller-facing output shape.
func OutputValidator() (*jsonschema.Schema, error) {
	outputOnce.Do(func() {
		outputSchema, outputErr = Compile("output.json", BuildOutputJSONSchema())
	})
	return outputSchema, outputErr
}
