package models

import "fmt"

// Role identifies the author of a conversation turn sent to the completion service
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a completion conversation
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// CompletionRequest describes one call to the completion service
type CompletionRequest struct {
	Turns       []Turn   `json:"turns"`
	System      string   `json:"system,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// Validate enforces the request invariant: at least one turn
func (r CompletionRequest) Validate() error {
	if len(r.Turns) == 0 {
		return fmt.Errorf("completion request requires at least one turn")
	}
	return nil
}

// CompletionResult is the immutable outcome of a completion call
type CompletionResult struct {
	Text         string
	StopReason   string
	InputTokens  int
	OutputTokens int
}

// TotalTokens returns the combined token count of a completion
func (r CompletionResult) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}
