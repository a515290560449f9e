package ai

import (
	"strings"
	"testing"

	"crewsight/models"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokensIsCeilingOfQuarterLength(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 100), 25},
		{strings.Repeat("x", 101), 26},
		{strings.Repeat("x", 103), 26},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, EstimateTokens(tc.text), "len=%d", len(tc.text))
	}
}

func TestEstimateConversationTokensAddsPerMessageOverhead(t *testing.T) {
	turns := []models.Turn{
		{Role: models.RoleUser, Text: strings.Repeat("a", 8)},      // 2 + 4
		{Role: models.RoleAssistant, Text: strings.Repeat("b", 9)}, // 3 + 4
	}

	assert.Equal(t, 13, EstimateConversationTokens(turns))
	assert.Equal(t, 0, EstimateConversationTokens(nil))
}
