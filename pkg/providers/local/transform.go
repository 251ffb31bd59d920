package local

import (
	"veil-hq/relay/pkg/providers"
)

// Wire types for the OpenAI-compatible chat completions dialect served by
// local runtimes (Ollama, LM Studio, vLLM).

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// transformRequest maps the provider-agnostic request onto the wire format.
func transformRequest(model string, req *providers.Request) *chatRequest {
	out := &chatRequest{
		Model:       model,
		Messages:    make([]chatMessage, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	}
	for i, msg := range req.Messages {
		out.Messages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}
	return out
}

// transformResponse maps the wire response back to the agnostic reply.
// An empty choice list or empty content is a malformed completion.
func transformResponse(provider string, resp *chatResponse) (*providers.Reply, error) {
	if len(resp.Choices) == 0 {
		return nil, &providers.ModelError{
			Provider: provider,
			Message:  "completion response contained no choices",
		}
	}
	choice := resp.Choices[0]
	if choice.Message.Content == "" {
		return nil, &providers.ModelError{
			Provider: provider,
			Message:  "completion response contained empty content",
		}
	}

	return &providers.Reply{
		Text:  choice.Message.Content,
		Model: resp.Model,
		Usage: providers.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
