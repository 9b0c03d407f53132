package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"tandem/model"
	"tandem/tools"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"
)

// OllamaInvoker calls a local Ollama server. Ollama does not assign tool-call
// ids, so the adapter synthesizes them; the integrity guard needs stable ids
// to pair calls with returns.
type OllamaInvoker struct {
	client  *api.Client
	model   string
	baseURL string
}

// NewOllamaInvoker creates an invoker against a local Ollama server.
func NewOllamaInvoker(baseURL, modelName string) (*OllamaInvoker, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llama3.1:latest"
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &OllamaInvoker{
		client:  api.NewClient(parsed, http.DefaultClient),
		model:   modelName,
		baseURL: baseURL,
	}, nil
}

// Invoke implements model.Invoker.
func (p *OllamaInvoker) Invoke(ctx context.Context, req model.Request) (*model.Result, error) {
	messages := convertToOllamaMessages(req.System, req.History)

	stream := false
	chatReq := &api.ChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   &stream,
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = tools.ToOllama(req.Tools)
	}

	var (
		msg    = model.Message{Kind: model.KindResponse}
		usage  *model.Usage
		served = p.model
	)
	err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		if resp.Message.Content != "" {
			msg.Parts = append(msg.Parts, model.Part{Kind: model.PartText, Text: resp.Message.Content})
		}
		for _, call := range resp.Message.ToolCalls {
			msg.Parts = append(msg.Parts, model.Part{
				Kind:       model.PartToolCall,
				ToolCallID: uuid.New().String(),
				ToolName:   call.Function.Name,
				ToolArgs:   call.Function.Arguments,
			})
		}
		if resp.Done {
			if resp.Model != "" {
				served = resp.Model
			}
			if resp.Metrics.PromptEvalCount > 0 || resp.Metrics.EvalCount > 0 {
				usage = &model.Usage{
					InputTokens:  resp.Metrics.PromptEvalCount,
					OutputTokens: resp.Metrics.EvalCount,
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, model.ClassifyInvokeError(p.model, ctx, err)
	}

	return &model.Result{Message: msg, Usage: usage, ServedBy: served}, nil
}

// Model implements model.Invoker.
func (p *OllamaInvoker) Model() string { return p.model }

// SetModel implements model.Invoker.
func (p *OllamaInvoker) SetModel(m string) { p.model = m }

// convertToOllamaMessages converts the system prompt plus history to Ollama
// API messages.
func convertToOllamaMessages(system string, h model.History) []api.Message {
	result := make([]api.Message, 0, len(h)+1)
	if system != "" {
		result = append(result, api.Message{Role: "system", Content: system})
	}
	for _, m := range h {
		switch m.Kind {
		case model.KindSystem:
			result = append(result, api.Message{Role: "system", Content: m.Text()})
		case model.KindRequest:
			result = append(result, api.Message{Role: "user", Content: renderRequestText(m)})
		case model.KindResponse:
			result = append(result, api.Message{Role: "assistant", Content: renderResponseText(m)})
		}
	}
	return result
}
