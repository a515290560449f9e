package ai

import "crewsight/models"

// perMessageOverhead approximates the framing cost of one chat message
const perMessageOverhead = 4

// EstimateTokens is a planning heuristic, not billing-accurate:
// ceil(character count / 4).
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// EstimateConversationTokens sums per-turn estimates plus a fixed
// per-message overhead across a conversation.
func EstimateConversationTokens(turns []models.Turn) int {
	total := 0
	for _, turn := range turns {
		total += EstimateTokens(turn.Text) + perMessageOverhead
	}
	return total
}
