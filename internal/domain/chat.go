package domain

import "context"

// Chat conversation roles.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn of a chat completion conversation.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatResult carries the completion text and token usage.
type ChatResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatCompleter is the structured completion contract. Implementations
// request JSON output, so prompts must describe a JSON response.
type ChatCompleter interface {
	Complete(ctx context.Context, msgs []ChatMessage) (ChatResult, error)
}

// ChatStreamer streams completion text deltas while accumulating the
// full result. An onDelta error aborts the stream.
type ChatStreamer interface {
	StreamComplete(ctx context.Context, msgs []ChatMessage, onDelta func(delta string) error) (ChatResult, error)
}
