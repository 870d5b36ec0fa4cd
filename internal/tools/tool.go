package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Tool defines the interface for all assistant capabilities.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema for the tool's inputs
	Execute(ctx context.Context, input string) (string, error)
}

// Info describes one tool for catalog discovery.
type Info struct {
	Name        string
	Description string
	ParamNames  []string
}

// Invoker is the capability the execution pipeline needs from the tool
// subsystem: call a tool by name and enumerate the catalog. Results are raw
// strings that may themselves be JSON.
type Invoker interface {
	CallTool(ctx context.Context, name string, arguments map[string]any) (string, error)
	Catalog(ctx context.Context) ([]Info, error)
}

// Registry manages the set of available tools.
type Registry struct {
	Tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		Tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(t Tool) {
	r.Tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	return r.Tools[name]
}

func (r *Registry) CallTool(ctx context.Context, name string, arguments map[string]any) (string, error) {
	t := r.Tools[name]
	if t == nil {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	input, err := json.Marshal(arguments)
	if err != nil {
		return "", fmt.Errorf("cannot encode arguments for %s: %w", name, err)
	}
	return t.Execute(ctx, string(input))
}

// Catalog returns tool descriptions sorted by name. Parameter names come
// from the "properties" object of each tool's JSON schema.
func (r *Registry) Catalog(ctx context.Context) ([]Info, error) {
	infos := make([]Info, 0, len(r.Tools))
	for _, t := range r.Tools {
		info := Info{Name: t.Name(), Description: t.Description()}
		if props, ok := t.Parameters()["properties"].(map[string]any); ok {
			for p := range props {
				info.ParamNames = append(info.ParamNames, p)
			}
			sort.Strings(info.ParamNames)
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// jsonResult encodes a tool result payload as a compact JSON string so the
// pipeline's success heuristics can inspect structured fields.
func jsonResult(payload map[string]any) string {
	blob, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(blob)
}

func errorResult(msg string) string {
	return jsonResult(map[string]any{"error": msg})
}
