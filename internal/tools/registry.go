package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/cloudwego/eino/components/tool"
)

// Registry is the unified registry for all native tools.
type Registry struct {
	tools     map[string]tool.InvokableTool
	manifests map[string]*ToolManifest // tool name → parent manifest
	specs     map[string]*ToolSpec     // tool name → specific ToolSpec
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]tool.InvokableTool),
		manifests: make(map[string]*ToolManifest),
		specs:     make(map[string]*ToolSpec),
	}
}

// Register adds a tool with its manifest. Every tool named in the manifest
// must be registered individually.
func (r *Registry) Register(name string, t tool.InvokableTool, manifest *ToolManifest) error {
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	r.manifests[name] = manifest
	for i := range manifest.Tools {
		if manifest.Tools[i].Name == name {
			r.specs[name] = &manifest.Tools[i]
			break
		}
	}
	return nil
}

// Tools returns all registered tools as a slice for model binding.
func (r *Registry) Tools() []tool.InvokableTool {
	result := make([]tool.InvokableTool, 0, len(r.tools))
	for _, name := range r.ToolNames() {
		result = append(result, r.tools[name])
	}
	return result
}

// Tool returns the InvokableTool for a given name, or nil if not found.
func (r *Registry) Tool(name string) tool.InvokableTool {
	return r.tools[name]
}

// Spec returns the ToolSpec for a given tool name.
func (r *Registry) Spec(name string) *ToolSpec {
	return r.specs[name]
}

// Manifest returns the parent manifest for a given tool name.
func (r *Registry) Manifest(name string) *ToolManifest {
	return r.manifests[name]
}

// ToolNames returns all registered tool names, sorted.
func (r *Registry) ToolNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllToolDescriptions returns a map of tool name → description for every
// registered tool.
func (r *Registry) AllToolDescriptions() map[string]string {
	descs := make(map[string]string, len(r.tools))
	for name := range r.tools {
		if spec, ok := r.specs[name]; ok {
			descs[name] = spec.Description
		} else {
			descs[name] = ""
		}
	}
	return descs
}

// Execute validates the arguments against the tool's spec and runs the tool.
// The result is always a plain string for the model.
func (r *Registry) Execute(ctx context.Context, name, argumentsInJSON string) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	if spec, ok := r.specs[name]; ok {
		if err := ValidateArgs(spec, argumentsInJSON); err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
	}
	return t.InvokableRun(ctx, argumentsInJSON)
}
