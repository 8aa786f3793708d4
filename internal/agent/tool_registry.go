package agent

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func mustReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// toolNamePattern mirrors the function-name constraints shared by the
// providers this runtime talks to (Anthropic, OpenAI, Gemini, Bedrock).
var toolNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,127}$`)

// ToolRegistry holds every ToolHandler the process knows about, keyed by
// name, along with a compiled JSON Schema validator per handler used by the
// Tool Dispatcher to reject malformed arguments before Execute ever runs.
type ToolRegistry struct {
	mu        sync.RWMutex
	handlers  map[string]ToolHandler
	validator map[string]*jsonschema.Schema
}

// NewToolRegistry returns an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		handlers:  make(map[string]ToolHandler),
		validator: make(map[string]*jsonschema.Schema),
	}
}

// Register adds handler to the registry. It panics on an invalid name or an
// unparsable schema: both indicate a programming error in a built-in tool,
// never a runtime condition to recover from.
func (r *ToolRegistry) Register(handler ToolHandler) {
	name := handler.Name()
	if !toolNamePattern.MatchString(name) {
		panic(fmt.Sprintf("tool_registry: invalid tool name %q", name))
	}

	compiled, err := compileSchema(name, handler.Schema())
	if err != nil {
		panic(fmt.Sprintf("tool_registry: invalid schema for tool %q: %v", name, err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
	r.validator[name] = compiled
}

func compileSchema(name string, schema []byte) (*jsonschema.Schema, error) {
	if len(schema) == 0 {
		schema = []byte(`{}`)
	}
	compiler := jsonschema.NewCompiler()
	resource := "tool://" + name + ".json"
	if err := compiler.AddResource(resource, mustReader(schema)); err != nil {
		return nil, err
	}
	return compiler.Compile(resource)
}

// Unregister removes a tool, e.g. when a plugin is unloaded.
func (r *ToolRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
	delete(r.validator, name)
}

// Get returns a handler by name.
func (r *ToolRegistry) Get(name string) (ToolHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Validator returns the compiled JSON Schema for a registered tool.
func (r *ToolRegistry) Validator(name string) (*jsonschema.Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validator[name]
	return v, ok
}

// All returns every registered handler, in no particular order. Callers
// that need a stable order (e.g. building a deterministic tool-schema list
// for a Chat Client) should sort by Name().
func (r *ToolRegistry) All() []ToolHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolHandler, 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, h)
	}
	return out
}
