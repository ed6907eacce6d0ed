package postgres

import (
	"context"
	"errors"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationStore is the Postgres-backed ports.ConversationStore
// adapter. ForkConversation uses domain.Conversation.ForkAt to compute
// the prefix in Go and persists the result as a brand new row, mirroring
// the in-memory fork semantics instead of a recursive SQL copy.
type ConversationStore struct {
	pool *pgxpool.Pool
}

func NewConversationStore(pool *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{pool: pool}
}

func (s *ConversationStore) GetConversation(ctx context.Context, userID, id string) (*domain.Conversation, error) {
	convoID, err := uuid.Parse(id)
	if err != nil {
		return nil, corerr.Wrap(corerr.InvalidInput, "parse conversation id", err)
	}

	row := s.pool.QueryRow(ctx, `SELECT id, user_id FROM conversations WHERE id = $1 AND user_id = $2`, convoID, userID)
	var c domain.Conversation
	if err := row.Scan(&c.ID, &c.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, corerr.New(corerr.NotFound, "conversation not found")
		}
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
SELECT id, role, content, timestamp, updated_at, updated_by, feedback_received
FROM conversation_messages WHERE conversation_id = $1 ORDER BY timestamp`, convoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.Timestamp, &m.UpdatedAt, &m.UpdatedBy, &m.FeedbackReceived); err != nil {
			return nil, err
		}
		c.Messages = append(c.Messages, m)
	}
	return &c, rows.Err()
}

func (s *ConversationStore) AppendMessage(ctx context.Context, userID, conversationID string, msg domain.Message) error {
	convoID, err := uuid.Parse(conversationID)
	if err != nil {
		return corerr.Wrap(corerr.InvalidInput, "parse conversation id", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO conversations(id, user_id) VALUES ($1,$2) ON CONFLICT (id) DO NOTHING`, convoID, userID)
	if err != nil {
		return err
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO conversation_messages(id, conversation_id, role, content, timestamp, updated_at, updated_by, feedback_received)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		msg.ID, convoID, msg.Role, msg.Content, msg.Timestamp, msg.UpdatedAt, msg.UpdatedBy, msg.FeedbackReceived)
	return err
}

func (s *ConversationStore) UpdateMessage(ctx context.Context, userID, conversationID string, msg domain.Message) error {
	convoID, err := uuid.Parse(conversationID)
	if err != nil {
		return corerr.Wrap(corerr.InvalidInput, "parse conversation id", err)
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE conversation_messages SET content = $3, updated_at = $4, updated_by = $5, feedback_received = $6
WHERE conversation_id = $1 AND id = $2`,
		convoID, msg.ID, msg.Content, msg.UpdatedAt, msg.UpdatedBy, msg.FeedbackReceived)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return corerr.New(corerr.NotFound, "message not found")
	}
	return nil
}

func (s *ConversationStore) ForkConversation(ctx context.Context, userID, conversationID, messageID string) (*domain.Conversation, error) {
	msgID, err := uuid.Parse(messageID)
	if err != nil {
		return nil, corerr.Wrap(corerr.InvalidInput, "parse message id", err)
	}
	c, err := s.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	forked, ok := c.ForkAt(msgID)
	if !ok {
		return nil, corerr.New(corerr.NotFound, "fork point message not found")
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO conversations(id, user_id) VALUES ($1,$2)`, forked.ID, forked.UserID)
	if err != nil {
		return nil, err
	}
	for _, m := range forked.Messages {
		if _, err := s.pool.Exec(ctx, `
INSERT INTO conversation_messages(id, conversation_id, role, content, timestamp, updated_at, updated_by, feedback_received)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			uuid.New(), forked.ID, m.Role, m.Content, m.Timestamp, m.UpdatedAt, m.UpdatedBy, m.FeedbackReceived); err != nil {
			return nil, err
		}
	}
	return forked, nil
}

func (s *ConversationStore) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	convoID, err := uuid.Parse(conversationID)
	if err != nil {
		return corerr.Wrap(corerr.InvalidInput, "parse conversation id", err)
	}
	_, err = s.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1 AND user_id = $2`, convoID, userID)
	return err
}
