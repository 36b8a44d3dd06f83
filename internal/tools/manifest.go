// Package tools provides the native tool set exposed to the agent loop.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/cloudwego/eino/schema"
)

var (
	// ErrToolInput is returned when arguments fail schema validation.
	ErrToolInput = errors.New("invalid tool input")
	// ErrUnknownTool is returned when no tool is registered under a name.
	ErrUnknownTool = errors.New("unknown tool")
)

// ToolManifest describes a tool bundle's metadata and its tools.
type ToolManifest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Provider    string     `json:"provider"` // always "native"
	Dangerous   bool       `json:"dangerous"`
	Tools       []ToolSpec `json:"tools"`
}

// ToolSpec describes a single tool interface.
type ToolSpec struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]ParamSpec `json:"parameters"`
}

// ParamSpec describes a single tool parameter.
type ParamSpec struct {
	Type        string               `json:"type"` // "string", "number", "boolean", "integer", "array", "object"
	Description string               `json:"description"`
	Required    bool                 `json:"required"`
	Enum        []string             `json:"enum,omitempty"`
	Items       *ParamSpec           `json:"items,omitempty"`      // element schema for arrays
	Properties  map[string]ParamSpec `json:"properties,omitempty"` // sub-properties for objects
}

// ValidateArgs checks a JSON arguments payload against the spec before the
// handler runs: required presence, primitive types, and enum membership.
// Keys not named in the spec are ignored.
func ValidateArgs(spec *ToolSpec, argumentsInJSON string) error {
	var args map[string]any
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return fmt.Errorf("%w: not a JSON object: %v", ErrToolInput, err)
	}

	for name, p := range spec.Parameters {
		value, present := args[name]
		if !present || value == nil {
			if p.Required {
				return fmt.Errorf("%w: %s is required", ErrToolInput, name)
			}
			continue
		}
		if err := checkType(name, p, value); err != nil {
			return err
		}
	}
	return nil
}

func checkType(name string, p ParamSpec, value any) error {
	switch p.Type {
	case "string":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s must be a string", ErrToolInput, name)
		}
		if len(p.Enum) > 0 && !containsString(p.Enum, s) {
			return fmt.Errorf("%w: %s must be one of %v", ErrToolInput, name, p.Enum)
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("%w: %s must be a number", ErrToolInput, name)
		}
	case "integer":
		f, ok := value.(float64)
		if !ok || f != math.Trunc(f) {
			return fmt.Errorf("%w: %s must be an integer", ErrToolInput, name)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%w: %s must be a boolean", ErrToolInput, name)
		}
	case "array":
		items, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%w: %s must be an array", ErrToolInput, name)
		}
		if p.Items != nil {
			for i, item := range items {
				if err := checkType(fmt.Sprintf("%s[%d]", name, i), *p.Items, item); err != nil {
					return err
				}
			}
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("%w: %s must be an object", ErrToolInput, name)
		}
	}
	return nil
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// toolSpecToToolInfo converts a ToolSpec to an Eino schema.ToolInfo.
func toolSpecToToolInfo(spec *ToolSpec) *schema.ToolInfo {
	info := &schema.ToolInfo{
		Name: spec.Name,
		Desc: spec.Description,
	}

	if len(spec.Parameters) > 0 {
		params := make(map[string]*schema.ParameterInfo, len(spec.Parameters))
		for name, p := range spec.Parameters {
			params[name] = &schema.ParameterInfo{
				Type:     paramTypeToDataType(p.Type),
				Desc:     p.Description,
				Required: p.Required,
				Enum:     p.Enum,
			}
		}
		info.ParamsOneOf = schema.NewParamsOneOfByParams(params)
	}

	return info
}

// paramTypeToDataType maps string type names to Eino DataType constants.
func paramTypeToDataType(t string) schema.DataType {
	switch t {
	case "string":
		return schema.String
	case "number":
		return schema.Number
	case "integer":
		return schema.Integer
	case "boolean":
		return schema.Boolean
	case "array":
		return schema.Array
	case "object":
		return schema.Object
	default:
		return schema.String
	}
}
