package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"crewsight/internal/errors"
	"crewsight/models"
)

const (
	// maxRetries is the number of retries after the initial attempt
	maxRetries = 3
	// initialDelay seeds the geometric backoff: 1s, 2s, 4s
	initialDelay = 1000 * time.Millisecond
)

// Client wraps the external completion service with retry/backoff and
// plain-text, JSON-structured, and streaming completion modes.
type Client struct {
	config     *models.AIConfig
	httpClient *http.Client

	// sleep is swapped out in tests to observe backoff without waiting
	sleep func(time.Duration)
}

// NewClient creates a completion client from AI configuration
func NewClient(config *models.AIConfig) *Client {
	log.Printf("[CompletionClient] Initializing client with model=%s, temp=%.2f, maxTokens=%d, timeout=%v",
		config.OpenAIModel, config.Temperature, config.MaxTokens, config.Timeout)

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		sleep:      time.Sleep,
	}
}

// Complete runs a plain-text completion with retry/backoff
func (c *Client) Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResult, error) {
	return c.completeWithRetry(ctx, req, false)
}

// CompleteJSON runs a completion in JSON mode and parses the model's text
// into out, tolerating a markdown code-fence wrapper around the JSON.
func (c *Client) CompleteJSON(ctx context.Context, req models.CompletionRequest, out any) (*models.CompletionResult, error) {
	result, err := c.completeWithRetry(ctx, req, true)
	if err != nil {
		return nil, err
	}

	content := cleanJSONContent(result.Text)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		log.Printf("[CompletionClient] ERROR: Failed to unmarshal JSON content: %v", err)
		return nil, errors.MalformedOutput("completion output did not parse as valid JSON", err)
	}
	return result, nil
}

// completeWithRetry applies the retry policy around a single completion
// call. Authentication failures and non-429 client errors fail immediately;
// transient failures are retried with geometric backoff.
func (c *Client) completeWithRetry(ctx context.Context, req models.CompletionRequest, jsonMode bool) (*models.CompletionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid completion request")
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := initialDelay * (1 << (attempt - 1))
			log.Printf("[CompletionClient] Retry %d/%d after %v (last error: %v)", attempt, maxRetries, delay, lastErr)
			c.sleep(delay)
		}

		attempts++
		result, err := c.doComplete(ctx, req, jsonMode)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) {
			log.Printf("[CompletionClient] Non-retryable failure, giving up: %v", err)
			return nil, err
		}
	}

	return nil, errors.ServiceUnavailable(
		fmt.Sprintf("completion service unavailable after %d attempts", attempts), lastErr)
}

// isRetryable reports whether the failure class permits another attempt
func isRetryable(err error) bool {
	if errors.HasCode(err, errors.CodeAuthentication) {
		return false
	}
	if errors.HasCode(err, errors.CodeInvalidInput) {
		return false
	}
	return true
}

// chatMessage is one message of the provider chat-completions payload
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the provider chat-completions payload
type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature,omitempty"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	Stop           []string      `json:"stop,omitempty"`
	Stream         bool          `json:"stream,omitempty"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

// chatResponse is the provider chat-completions envelope
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// buildPayload maps a CompletionRequest onto the provider wire shape
func (c *Client) buildPayload(req models.CompletionRequest, jsonMode, stream bool) chatRequest {
	messages := make([]chatMessage, 0, len(req.Turns)+1)

	system := req.System
	if system == "" {
		system = c.config.SystemContext
	}
	if jsonMode && !strings.Contains(strings.ToLower(system), "json") {
		system += "\n\nIMPORTANT: Respond with valid JSON output."
	}
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	for _, turn := range req.Turns {
		messages = append(messages, chatMessage{Role: string(turn.Role), Content: turn.Text})
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.config.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}

	payload := chatRequest{
		Model:       c.config.OpenAIModel,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stop:        req.Stop,
		Stream:      stream,
	}
	if jsonMode {
		payload.ResponseFormat = &struct {
			Type string `json:"type"`
		}{Type: "json_object"}
	}
	return payload
}

// doComplete performs exactly one HTTP call to the completion service
func (c *Client) doComplete(ctx context.Context, req models.CompletionRequest, jsonMode bool) (*models.CompletionResult, error) {
	payload := c.buildPayload(req, jsonMode, false)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal completion request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create completion request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.OpenAIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.TransientService("completion request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.TransientService("failed to read completion response", err)
	}

	var envelope chatResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.MalformedOutput("completion envelope did not parse", err)
	}
	if len(envelope.Choices) == 0 {
		return nil, errors.MalformedOutput("completion envelope contained no choices", nil)
	}

	choice := envelope.Choices[0]
	log.Printf("[CompletionClient] Completion finished: reason=%s, in=%d, out=%d",
		choice.FinishReason, envelope.Usage.PromptTokens, envelope.Usage.CompletionTokens)

	return &models.CompletionResult{
		Text:         choice.Message.Content,
		StopReason:   choice.FinishReason,
		InputTokens:  envelope.Usage.PromptTokens,
		OutputTokens: envelope.Usage.CompletionTokens,
	}, nil
}

// classifyStatus maps an HTTP failure status into the error taxonomy:
// 401/403 authentication (never retried), other non-429 4xx invalid input
// (never retried), everything else transient.
func classifyStatus(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)
	detail := strings.TrimSpace(string(raw))
	if len(detail) > 300 {
		detail = detail[:300]
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Authentication(fmt.Sprintf("completion service rejected credentials (status %d): %s", resp.StatusCode, detail))
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return errors.WithCode(errors.CodeInvalidInput,
			fmt.Errorf("completion service rejected request (status %d): %s", resp.StatusCode, detail))
	default:
		return errors.TransientService(
			fmt.Sprintf("completion service error (status %d)", resp.StatusCode),
			fmt.Errorf("%s", detail))
	}
}

// streamEvent is one SSE payload of a streaming completion
type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// StreamComplete yields text-delta chunks from a streaming completion.
// Only text deltas are forwarded; any other event kind is ignored. The
// stream is finite and not restartable.
func (c *Client) StreamComplete(ctx context.Context, req models.CompletionRequest) (<-chan string, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid completion request")
	}

	payload := c.buildPayload(req, false, true)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal streaming request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create streaming request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.OpenAIKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.TransientService("streaming request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, classifyStatus(resp)
	}

	chunks := make(chan string)
	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var event streamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				// Non-delta event kinds are ignored
				continue
			}
			if len(event.Choices) == 0 || event.Choices[0].Delta.Content == "" {
				continue
			}

			select {
			case chunks <- event.Choices[0].Delta.Content:
			case <-ctx.Done():
				return
			}
		}
	}()

	return chunks, nil
}
