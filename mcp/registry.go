package mcp

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Handler executes one tool call. Expected failures belong in the returned
// value as a structured error object; a non-nil error means the handler
// itself broke.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Schema describes a tool's input as a JSON-schema object.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// Tool is a named, schema-described operation.
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	InputSchema Schema  `json:"inputSchema"`
	Handler     Handler `json:"-"`
}

// ErrUnknownTool reports a dispatch on an unregistered name.
type ErrUnknownTool struct {
	Name string
}

func (e *ErrUnknownTool) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}

// PanicError wraps a panic recovered from a handler, keeping the stack for
// the response error data.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("tool panicked: %v", e.Value)
}

// Registry is the name-keyed tool catalogue. Registration happens once at
// startup; there is no dynamic add or remove.
type Registry struct {
	order []string
	tools map[string]*Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: map[string]*Tool{}}
}

func (r *Registry) Register(t *Tool) {
	if _, ok := r.tools[t.Name]; ok {
		panic(fmt.Sprintf("tool registered twice: %s", t.Name))
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// List returns the descriptors in registration order.
func (r *Registry) List() []*Tool {
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Call dispatches by name. Panics inside the handler are recovered into a
// PanicError so the engine can answer instead of crashing the transport.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (result any, err error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, &ErrUnknownTool{Name: name}
	}

	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p, Stack: string(debug.Stack())}
		}
	}()

	if args == nil {
		args = map[string]any{}
	}
	return tool.Handler(ctx, args)
}
