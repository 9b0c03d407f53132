package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"tandem/model"
	"tandem/tools"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicInvoker calls the Anthropic API through the official SDK.
type AnthropicInvoker struct {
	client  *anthropic.Client
	model   anthropic.Model
	baseURL string
}

// NewAnthropicInvoker creates an Anthropic-backed invoker. The API key is
// required; baseURL defaults to the public endpoint.
func NewAnthropicInvoker(baseURL, apiKey, modelName string) (*AnthropicInvoker, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	if modelName == "" {
		modelName = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &AnthropicInvoker{
		client:  &client,
		model:   anthropic.Model(modelName),
		baseURL: baseURL,
	}, nil
}

// Invoke implements model.Invoker.
func (p *AnthropicInvoker) Invoke(ctx context.Context, req model.Request) (*model.Result, error) {
	messages, systemBlocks := convertToAnthropicMessages(req.History)

	if req.System != "" {
		systemBlocks = append([]anthropic.TextBlockParam{{Text: req.System}}, systemBlocks...)
	}

	params := anthropic.MessageNewParams{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: 8192,
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if len(req.Tools) > 0 {
		params.Tools = tools.ToAnthropic(req.Tools)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, model.ClassifyInvokeError(string(p.model), ctx, err)
	}

	msg := model.Message{Kind: model.KindResponse}
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			msg.Parts = append(msg.Parts, model.Part{Kind: model.PartText, Text: variant.Text})
		case anthropic.ThinkingBlock:
			msg.Parts = append(msg.Parts, model.Part{
				Kind:      model.PartThinking,
				Text:      variant.Thinking,
				Signature: variant.Signature,
			})
		case anthropic.ToolUseBlock:
			var args map[string]any
			if err := json.Unmarshal(variant.Input, &args); err != nil {
				args = map[string]any{}
			}
			msg.Parts = append(msg.Parts, model.Part{
				Kind:       model.PartToolCall,
				ToolCallID: variant.ID,
				ToolName:   variant.Name,
				ToolArgs:   args,
			})
		}
	}

	return &model.Result{
		Message: msg,
		Usage: &model.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
		ServedBy: string(resp.Model),
	}, nil
}

// Model implements model.Invoker.
func (p *AnthropicInvoker) Model() string { return string(p.model) }

// SetModel implements model.Invoker.
func (p *AnthropicInvoker) SetModel(m string) { p.model = anthropic.Model(m) }

// convertToAnthropicMessages converts a history to Anthropic format. System
// messages become system blocks (Anthropic keeps them out of the messages
// array); tool returns ride in user messages as text, matching how the rest
// of the adapters replay them.
func convertToAnthropicMessages(h model.History) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var systemBlocks []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(h))

	for _, m := range h {
		switch m.Kind {
		case model.KindSystem:
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: m.Text()})
		case model.KindRequest:
			messages = append(messages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(renderRequestText(m))),
			)
		case model.KindResponse:
			messages = append(messages,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(renderResponseText(m))),
			)
		}
	}
	return messages, systemBlocks
}
