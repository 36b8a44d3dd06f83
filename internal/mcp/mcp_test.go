package mcp

import (
	"encoding/json"
	"testing"

	"github.com/avezard/epigraph/internal/taskgraph"
	"github.com/avezard/epigraph/internal/tools"
)

func TestToolSpecToMCPTool(t *testing.T) {
	spec := &tools.ToolSpec{
		Name:        "test_tool",
		Description: "A test tool",
		Parameters: map[string]tools.ParamSpec{
			"name": {
				Type:        "string",
				Description: "The name",
				Required:    true,
			},
			"count": {
				Type:        "integer",
				Description: "A count",
				Required:    false,
			},
			"mode": {
				Type:        "string",
				Description: "The mode",
				Required:    true,
				Enum:        []string{"fast", "slow"},
			},
			"ids": {
				Type:        "array",
				Description: "Some ids",
				Items:       &tools.ParamSpec{Type: "integer"},
			},
		},
	}

	mcpTool := toolSpecToMCPTool(spec)

	if mcpTool.Name != "test_tool" {
		t.Errorf("Name = %q, want %q", mcpTool.Name, "test_tool")
	}
	if mcpTool.Description != "A test tool" {
		t.Errorf("Description = %q, want %q", mcpTool.Description, "A test tool")
	}

	// Verify InputSchema is a proper JSON Schema object
	schemaBytes, err := json.Marshal(mcpTool.InputSchema)
	if err != nil {
		t.Fatalf("marshal InputSchema: %v", err)
	}

	var schema map[string]any
	if err := json.Unmarshal(schemaBytes, &schema); err != nil {
		t.Fatalf("unmarshal InputSchema: %v", err)
	}

	if schema["type"] != "object" {
		t.Errorf("schema type = %v, want %q", schema["type"], "object")
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatal("schema properties not a map")
	}
	if len(props) != 4 {
		t.Errorf("schema properties len = %d, want 4", len(props))
	}

	// Check required field (sorted)
	req, ok := schema["required"].([]any)
	if !ok {
		t.Fatal("schema required not an array")
	}
	if len(req) != 2 {
		t.Fatalf("schema required len = %d, want 2", len(req))
	}
	if req[0] != "mode" || req[1] != "name" {
		t.Errorf("schema required = %v, want [mode, name]", req)
	}

	// Check enum on mode
	modeProp, ok := props["mode"].(map[string]any)
	if !ok {
		t.Fatal("mode property not a map")
	}
	enumVal, ok := modeProp["enum"].([]any)
	if !ok {
		t.Fatal("mode enum not an array")
	}
	if len(enumVal) != 2 {
		t.Errorf("mode enum len = %d, want 2", len(enumVal))
	}

	// Array items schema
	idsProp, ok := props["ids"].(map[string]any)
	if !ok {
		t.Fatal("ids property not a map")
	}
	items, ok := idsProp["items"].(map[string]any)
	if !ok || items["type"] != "integer" {
		t.Fatalf("ids items = %v", idsProp["items"])
	}
}

func TestToolSpecToMCPTool_NoParams(t *testing.T) {
	spec := &tools.ToolSpec{
		Name:        "simple",
		Description: "A simple tool",
		Parameters:  map[string]tools.ParamSpec{},
	}

	mcpTool := toolSpecToMCPTool(spec)

	schemaBytes, err := json.Marshal(mcpTool.InputSchema)
	if err != nil {
		t.Fatalf("marshal InputSchema: %v", err)
	}

	var schema map[string]any
	if err := json.Unmarshal(schemaBytes, &schema); err != nil {
		t.Fatalf("unmarshal InputSchema: %v", err)
	}

	if schema["type"] != "object" {
		t.Errorf("schema type = %v, want %q", schema["type"], "object")
	}
	if _, ok := schema["required"]; ok {
		t.Error("schema should not have required field when no params are required")
	}
}

func newRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	store, err := taskgraph.New(taskgraph.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("taskgraph.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	r := tools.NewRegistry()
	if err := tools.RegisterTaskTools(r, store); err != nil {
		t.Fatalf("RegisterTaskTools: %v", err)
	}
	return r
}

func TestNewServer_AllTools(t *testing.T) {
	server := NewServer(newRegistry(t), nil)
	if server == nil {
		t.Fatal("NewServer returned nil")
	}
}

func TestNewServer_WithFilter(t *testing.T) {
	server := NewServer(newRegistry(t), []string{"list_tasks"})
	if server == nil {
		t.Fatal("NewServer with filter returned nil")
	}
}
