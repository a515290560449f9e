package postgres

import (
	"context"

	"crewsight/models"
	"crewsight/ports"

	"github.com/jmoiron/sqlx"
)

// ConversationRepositoryImpl implements ConversationRepository for PostgreSQL
type ConversationRepositoryImpl struct {
	db *sqlx.DB
}

// NewConversationRepository creates a new PostgreSQL conversation repository
func NewConversationRepository(db *sqlx.DB) ports.ConversationRepository {
	return &ConversationRepositoryImpl{db: db}
}

// Append records one turn at the end of a conversation
func (r *ConversationRepositoryImpl) Append(ctx context.Context, turn *models.ConversationTurn) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO conversation_turns (conversation_id, role, text, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, turn.ConversationID, turn.Role, turn.Text).Scan(&turn.ID, &turn.CreatedAt)
}

// Tail returns the most recent turns in chronological order, capped at limit
func (r *ConversationRepositoryImpl) Tail(ctx context.Context, conversationID string, limit int) ([]models.ConversationTurn, error) {
	var turns []models.ConversationTurn
	err := r.db.SelectContext(ctx, &turns, `
		SELECT id, conversation_id, role, text, created_at
		FROM (
			SELECT id, conversation_id, role, text, created_at
			FROM conversation_turns
			WHERE conversation_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id ASC
	`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	return turns, nil
}
