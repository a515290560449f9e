package ports

import (
	"context"

	"crewsight/models"
)

// CompletionClient is the contract for the external language-model
// completion service. Implementations own retry/backoff and transport
// timeouts; callers see only terminal errors.
type CompletionClient interface {
	// Complete runs a plain-text completion
	Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResult, error)

	// CompleteJSON runs a completion and parses the model's text as JSON
	// into out, tolerating a markdown code-fence wrapper
	CompleteJSON(ctx context.Context, req models.CompletionRequest, out any) (*models.CompletionResult, error)

	// StreamComplete yields text-delta chunks until the completion finishes.
	// The sequence is finite and not restartable.
	StreamComplete(ctx context.Context, req models.CompletionRequest) (<-chan string, error)
}
