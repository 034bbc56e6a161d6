package llm

import "context"

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is an internal message representation that can include system prompts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one completion call.
type Request struct {
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
}

// Response carries the model output.
type Response struct {
	Text string
}

// Client is the opaque model-inference capability. Implementations may fail
// generically; callers own the fallback behavior.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
