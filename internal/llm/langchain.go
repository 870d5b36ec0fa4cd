package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// LangChainClient adapts a langchaingo llms.Model to the Client interface.
type LangChainClient struct {
	Model llms.Model
	Name  string
}

func NewLangChainClient(model llms.Model, name string) *LangChainClient {
	return &LangChainClient{Model: model, Name: name}
}

func (c *LangChainClient) Generate(ctx context.Context, messages []Message) (*Response, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		var role schema.ChatMessageType
		switch m.Role {
		case RoleSystem:
			role = schema.ChatMessageTypeSystem
		case RoleAssistant:
			role = schema.ChatMessageTypeAI
		default:
			role = schema.ChatMessageTypeHuman
		}
		content = append(content, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}

	resp, err := c.Model.GenerateContent(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("llm call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm returned no choices")
	}

	return &Response{Response: resp.Choices[0].Content, Model: c.Name}, nil
}
