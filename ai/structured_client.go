package ai

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"crewsight/internal/errors"
	"crewsight/models"
	"crewsight/ports"
)

// CompleteStructured makes a typed completion call and parses the JSON
// response into T. It is a convenience wrapper around CompleteJSON for
// callers that want a concrete type rather than an out-parameter.
func CompleteStructured[T any](ctx context.Context, client ports.CompletionClient, req models.CompletionRequest) (*T, *models.CompletionResult, error) {
	var result T
	usage, err := client.CompleteJSON(ctx, req, &result)
	if err != nil {
		return nil, nil, err
	}
	return &result, usage, nil
}

// ParseStructured parses already-completed model text into T, applying the
// same code-fence cleaning as CompleteJSON.
func ParseStructured[T any](text string) (*T, error) {
	var result T
	content := cleanJSONContent(text)
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, errors.MalformedOutput("model text did not parse as structured JSON", err)
	}
	return &result, nil
}

// cleanJSONContent removes markdown code blocks and chatter around JSON
func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)

	// Remove markdown code blocks with various prefixes
	if strings.HasPrefix(content, "```json") && strings.HasSuffix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	} else if strings.HasPrefix(content, "```") && strings.HasSuffix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	// Remove common chatter lines that might precede or trail the JSON
	lines := strings.Split(content, "\n")
	cleanedLines := make([]string, 0, len(lines))
	skippedLines := 0

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if trimmed == "" ||
			strings.HasPrefix(lower, "here is") ||
			strings.HasPrefix(lower, "the json") ||
			strings.HasPrefix(lower, "output:") ||
			strings.HasPrefix(lower, "response:") ||
			strings.HasPrefix(trimmed, "##") {
			skippedLines++
			continue
		}
		cleanedLines = append(cleanedLines, trimmed)
	}

	if skippedLines > 0 {
		log.Printf("[StructuredClient] Filtered out %d lines of chatter around JSON", skippedLines)
	}

	content = strings.TrimSpace(strings.Join(cleanedLines, "\n"))

	// If a chatter prefix survived, cut to the first JSON object or array
	if strings.Contains(content, "\n{") {
		parts := strings.SplitN(content, "\n{", 2)
		if len(parts) == 2 && !strings.Contains(parts[0], "{") && !strings.Contains(parts[0], "[") {
			content = "{" + parts[1]
		}
	} else if strings.Contains(content, "\n[") {
		parts := strings.SplitN(content, "\n[", 2)
		if len(parts) == 2 && !strings.Contains(parts[0], "{") && !strings.Contains(parts[0], "[") {
			content = "[" + parts[1]
		}
	}

	return content
}
