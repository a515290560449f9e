package ai

import (
	"context"
	"os"
	"testing"
	"time"

	"crewsight/models"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSONContent(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain object untouched",
			in:   `{"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "json fence removed",
			in:   "```json\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "bare fence removed",
			in:   "```\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "chatter prefix dropped",
			in:   "Here is the requested output:\n{\"a\":1}",
			want: `{"a":1}`,
		},
		{
			name: "prefix before array trimmed",
			in:   "The result follows\n[{\"a\":1}]",
			want: `[{"a":1}]`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cleanJSONContent(tc.in))
		})
	}
}

func TestParseStructured(t *testing.T) {
	type verdict struct {
		Ready bool   `json:"ready"`
		Note  string `json:"note"`
	}

	out, err := ParseStructured[verdict]("```json\n{\"ready\": true, \"note\": \"ok\"}\n```")
	require.NoError(t, err)
	assert.True(t, out.Ready)
	assert.Equal(t, "ok", out.Note)

	_, err = ParseStructured[verdict]("no JSON here at all")
	assert.Error(t, err)
}

// TestLiveStructuredCompletion exercises the real completion service.
// Skipped unless OPENAI_API_KEY is present.
func TestLiveStructuredCompletion(t *testing.T) {
	if err := godotenv.Load("../.env"); err != nil {
		_ = godotenv.Load(".env")
	}
	if os.Getenv("OPENAI_API_KEY") == "" {
		t.Skip("Skipping live test: OPENAI_API_KEY not set")
	}

	config := models.DefaultAIConfig()
	if config.OpenAIModel == "" {
		config.OpenAIModel = "gpt-4o-mini"
	}
	config.Timeout = 60 * time.Second
	client := NewClient(config)

	type pong struct {
		Reply string `json:"reply"`
	}
	out, usage, err := CompleteStructured[pong](context.Background(), client, models.CompletionRequest{
		Turns: []models.Turn{{
			Role: models.RoleUser,
			Text: `Respond with JSON: {"reply": "pong"}`,
		}},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, out.Reply)
	assert.Greater(t, usage.TotalTokens(), 0)
}
