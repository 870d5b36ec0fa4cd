package llm

import "context"

// Message roles mirror the usual chat-completion convention.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Response is the model's reply plus whatever metadata the provider reports.
type Response struct {
	Response string
	Model    string
}

// Client is the single capability the execution pipeline needs from a
// language model: turn a message list into a text response.
type Client interface {
	Generate(ctx context.Context, messages []Message) (*Response, error)
}

func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }
