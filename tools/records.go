// Package tools carries the cached tool-definition records the core uses for
// context-overhead accounting, and the converters that translate those
// definitions into each provider's wire format.
//
// The core never fetches tool definitions itself: the external tool-registry
// collaborator (the MCP manager, local tool registry) hands over a flattened
// list of records and the core only reads it.
package tools

import (
	"encoding/json"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Record is the flattened description of one registered tool: everything the
// token estimator needs to account for the tool's share of prompt overhead.
type Record struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// Source exposes the cached record list. Local tools and dynamically
// discovered remote tools are summed identically through this interface.
type Source interface {
	Records() []Record
}

// StaticSource is a fixed record list, used for local tool registries and in
// tests.
type StaticSource []Record

func (s StaticSource) Records() []Record { return s }

// ToMCP rebuilds MCP tool definitions from cached records, the inverse of
// FromMCP. Records with unparseable schemas become tools with an empty
// object schema.
func ToMCP(records []Record) []mcptypes.Tool {
	mcpTools := make([]mcptypes.Tool, 0, len(records))
	for _, r := range records {
		var schema struct {
			Type       string         `json:"type"`
			Properties map[string]any `json:"properties"`
			Required   []string       `json:"required"`
		}
		if len(r.Schema) > 0 {
			_ = json.Unmarshal(r.Schema, &schema)
		}
		if schema.Type == "" {
			schema.Type = "object"
		}
		mcpTools = append(mcpTools, mcptypes.Tool{
			Name:        r.Name,
			Description: r.Description,
			InputSchema: mcptypes.ToolInputSchema{
				Type:       schema.Type,
				Properties: schema.Properties,
				Required:   schema.Required,
			},
		})
	}
	return mcpTools
}

// FromMCP flattens MCP tool definitions into records. Schemas that fail to
// marshal are recorded with an empty schema rather than dropped; the tool
// still costs its name and description.
func FromMCP(mcpTools []mcptypes.Tool) []Record {
	records := make([]Record, 0, len(mcpTools))
	for _, t := range mcpTools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			schema = nil
		}
		records = append(records, Record{
			Name:        t.Name,
			Description: t.Description,
			Schema:      schema,
		})
	}
	return records
}
