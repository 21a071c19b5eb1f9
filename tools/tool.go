// Package tools defines the statically registered tools a server can execute.
package tools

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/google/jsonschema-go/jsonschema"
)

// ErrInvalidInput is returned when a tool is called with arguments that don't
// match its declared inputs.
var ErrInvalidInput = errors.New("invalid input")

// ExecuteFunc runs a tool against already validated inputs.
type ExecuteFunc func(ctx context.Context, inputs map[string]any) (map[string]any, error)

// Definition describes a single tool and how to run it.
type Definition struct {
	Name        string
	Description string

	// InputShape and OutputShape map each parameter name to a human-readable
	// type description. They are what clients see during discovery.
	InputShape  map[string]string
	OutputShape map[string]string

	// InputSchema is checked against the inputs before Execute runs.
	InputSchema *jsonschema.Schema

	Execute ExecuteFunc

	resolved *jsonschema.Resolved
}

// Summary is the public view of a tool; it never includes the execute function.
type Summary struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	InputSchema  map[string]string `json:"inputSchema"`
	OutputSchema map[string]string `json:"outputSchema"`
}

// Summary returns the public description of the tool.
func (d *Definition) Summary() Summary {
	return Summary{
		Name:         d.Name,
		Description:  d.Description,
		InputSchema:  maps.Clone(d.InputShape),
		OutputSchema: maps.Clone(d.OutputShape),
	}
}

// Call validates inputs and runs the tool.
// Validation failures wrap ErrInvalidInput.
func (d *Definition) Call(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	if err := d.validate(inputs); err != nil {
		return nil, err
	}
	return d.Execute(ctx, inputs)
}

func (d *Definition) validate(inputs map[string]any) error {
	if inputs == nil {
		return fmt.Errorf("%w: %s requires an inputs object", ErrInvalidInput, d.Name)
	}
	if d.resolved == nil {
		return nil
	}
	if err := d.resolved.Validate(inputs); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidInput, d.Name, err)
	}
	return nil
}

func (d *Definition) resolve() error {
	if d.Name == "" {
		return errors.New("tool name is required")
	}
	if d.Execute == nil {
		return fmt.Errorf("tool %s has no execute function", d.Name)
	}
	if d.InputSchema == nil {
		return nil
	}
	resolved, err := d.InputSchema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolve input schema for %s: %w", d.Name, err)
	}
	d.resolved = resolved
	return nil
}
