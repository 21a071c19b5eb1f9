package tools

import "fmt"

// Toolset is a named group of tool summaries exposed during discovery.
type Toolset struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tools       []Summary `json:"tools"`
}

// Registry is an immutable, ordered collection of tools keyed by name.
type Registry struct {
	name        string
	description string
	tools       []*Definition
	byName      map[string]*Definition
}

// NewRegistry builds a registry from the given definitions. Names must be
// unique and every input schema must resolve.
func NewRegistry(name, description string, defs ...*Definition) (*Registry, error) {
	r := &Registry{
		name:        name,
		description: description,
		byName:      make(map[string]*Definition, len(defs)),
	}
	for _, def := range defs {
		if err := def.resolve(); err != nil {
			return nil, err
		}
		if _, exists := r.byName[def.Name]; exists {
			return nil, fmt.Errorf("duplicate tool name %q", def.Name)
		}
		r.byName[def.Name] = def
		r.tools = append(r.tools, def)
	}
	return r, nil
}

// Lookup finds a tool by exact, case-sensitive name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	def, ok := r.byName[name]
	return def, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for _, def := range r.tools {
		names = append(names, def.Name)
	}
	return names
}

// Toolset returns the public summary of every registered tool.
func (r *Registry) Toolset() Toolset {
	summaries := make([]Summary, 0, len(r.tools))
	for _, def := range r.tools {
		summaries = append(summaries, def.Summary())
	}
	return Toolset{
		Name:        r.name,
		Description: r.description,
		Tools:       summaries,
	}
}
