package tools

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// ToOpenAI converts tool definitions to the OpenAI chat-completions format,
// which Cerebras and other OpenAI-compatible endpoints share. Both sides are
// JSON Schema; the conversion is a re-shaping, not a re-encoding.
func ToOpenAI(mcpTools []mcptypes.Tool) []openai.ChatCompletionToolUnionParam {
	if len(mcpTools) == 0 {
		return nil
	}

	result := make([]openai.ChatCompletionToolUnionParam, len(mcpTools))
	for i, tool := range mcpTools {
		params := openai.FunctionParameters{
			"type":       tool.InputSchema.Type,
			"properties": tool.InputSchema.Properties,
		}
		if len(tool.InputSchema.Required) > 0 {
			params["required"] = tool.InputSchema.Required
		}
		if tool.InputSchema.Defs != nil {
			params["$defs"] = tool.InputSchema.Defs
		}

		result[i] = openai.ChatCompletionFunctionTool(
			openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  params,
			},
		)
	}
	return result
}

// ToAnthropic converts tool definitions to Anthropic's tool-use format.
func ToAnthropic(mcpTools []mcptypes.Tool) []anthropic.ToolUnionParam {
	if len(mcpTools) == 0 {
		return nil
	}

	result := make([]anthropic.ToolUnionParam, len(mcpTools))
	for i, tool := range mcpTools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Properties: tool.InputSchema.Properties,
		}
		if len(tool.InputSchema.Required) > 0 {
			inputSchema.Required = tool.InputSchema.Required
		}
		if tool.InputSchema.Defs != nil {
			inputSchema.ExtraFields = map[string]any{
				"$defs": tool.InputSchema.Defs,
			}
		}

		result[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Name)
		if tool.Description != "" {
			result[i].OfTool.Description = anthropic.String(tool.Description)
		}
	}
	return result
}

// ToOllama converts tool definitions to the Ollama API tool format.
func ToOllama(mcpTools []mcptypes.Tool) []api.Tool {
	if len(mcpTools) == 0 {
		return nil
	}

	result := make([]api.Tool, 0, len(mcpTools))
	for _, tool := range mcpTools {
		params := api.ToolFunctionParameters{
			Type:       tool.InputSchema.Type,
			Required:   tool.InputSchema.Required,
			Properties: make(map[string]api.ToolProperty),
		}
		if tool.InputSchema.Defs != nil {
			params.Defs = tool.InputSchema.Defs
		}
		for name, value := range tool.InputSchema.Properties {
			params.Properties[name] = toOllamaProperty(value)
		}

		result = append(result, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return result
}

// toOllamaProperty maps one JSON Schema property into Ollama's typed
// property struct. Unknown shapes degrade to an empty property rather than
// failing the whole conversion.
func toOllamaProperty(value any) api.ToolProperty {
	prop := api.ToolProperty{}

	propMap, ok := value.(map[string]any)
	if !ok {
		raw, err := json.Marshal(value)
		if err != nil {
			return prop
		}
		if err := json.Unmarshal(raw, &propMap); err != nil {
			return prop
		}
	}

	switch t := propMap["type"].(type) {
	case string:
		prop.Type = api.PropertyType{t}
	case []string:
		prop.Type = api.PropertyType(t)
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok {
				prop.Type = append(prop.Type, s)
			}
		}
	}

	if desc, ok := propMap["description"].(string); ok {
		prop.Description = desc
	}
	if enum, ok := propMap["enum"].([]any); ok {
		prop.Enum = enum
	}
	if items, ok := propMap["items"]; ok {
		prop.Items = items
	}
	if anyOf, ok := propMap["anyOf"].([]any); ok {
		for _, item := range anyOf {
			prop.AnyOf = append(prop.AnyOf, toOllamaProperty(item))
		}
	}

	return prop
}
