package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"tandem/model"
	"tandem/tools"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIInvoker calls any OpenAI-compatible chat-completions endpoint through
// the official SDK. Cerebras speaks this protocol, so the same adapter serves
// both with a different base URL.
type OpenAIInvoker struct {
	client  openai.Client
	model   string
	baseURL string
}

// NewOpenAIInvoker creates an invoker against the OpenAI API.
func NewOpenAIInvoker(baseURL, apiKey, modelName string) (*OpenAIInvoker, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return newOpenAICompat(baseURL, apiKey, modelName, "gpt-4o")
}

// NewCerebrasInvoker creates an invoker against the Cerebras inference API,
// which is OpenAI-compatible.
func NewCerebrasInvoker(baseURL, apiKey, modelName string) (*OpenAIInvoker, error) {
	if baseURL == "" {
		baseURL = "https://api.cerebras.ai/v1"
	}
	return newOpenAICompat(baseURL, apiKey, modelName, "qwen-3-coder-480b")
}

func newOpenAICompat(baseURL, apiKey, modelName, defaultModel string) (*OpenAIInvoker, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for %s", baseURL)
	}
	if modelName == "" {
		modelName = defaultModel
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAIInvoker{
		client:  client,
		model:   modelName,
		baseURL: baseURL,
	}, nil
}

// Invoke implements model.Invoker.
func (p *OpenAIInvoker) Invoke(ctx context.Context, req model.Request) (*model.Result, error) {
	messages := convertToOpenAIMessages(req.System, req.History)

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(p.model),
	}
	if len(req.Tools) > 0 {
		params.Tools = tools.ToOpenAI(req.Tools)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, model.ClassifyInvokeError(p.model, ctx, err)
	}
	if len(completion.Choices) == 0 {
		return nil, model.ClassifyInvokeError(p.model, ctx, fmt.Errorf("empty completion from %s", p.baseURL))
	}

	choice := completion.Choices[0].Message
	msg := model.Message{Kind: model.KindResponse}
	if choice.Content != "" {
		msg.Parts = append(msg.Parts, model.Part{Kind: model.PartText, Text: choice.Content})
	}
	for _, call := range choice.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			args = map[string]any{}
		}
		msg.Parts = append(msg.Parts, model.Part{
			Kind:       model.PartToolCall,
			ToolCallID: call.ID,
			ToolName:   call.Function.Name,
			ToolArgs:   args,
		})
	}

	result := &model.Result{
		Message:  msg,
		ServedBy: completion.Model,
	}
	if completion.Usage.TotalTokens > 0 {
		result.Usage = &model.Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
		}
	}
	return result, nil
}

// Model implements model.Invoker.
func (p *OpenAIInvoker) Model() string { return p.model }

// SetModel implements model.Invoker.
func (p *OpenAIInvoker) SetModel(m string) { p.model = m }

// convertToOpenAIMessages converts the system prompt plus history to the
// chat-completions message format.
func convertToOpenAIMessages(system string, h model.History) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(h)+1)
	if system != "" {
		result = append(result, openai.SystemMessage(system))
	}
	for _, m := range h {
		switch m.Kind {
		case model.KindSystem:
			result = append(result, openai.SystemMessage(m.Text()))
		case model.KindRequest:
			result = append(result, openai.UserMessage(renderRequestText(m)))
		case model.KindResponse:
			result = append(result, openai.AssistantMessage(renderResponseText(m)))
		}
	}
	return result
}
