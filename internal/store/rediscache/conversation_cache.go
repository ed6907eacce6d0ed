// Package rediscache wraps a ports.ConversationStore with a Redis-backed
// read-through cache of each conversation as GetConversation returns it
// (redis.NewClient, cfg.Addr/DB, one colon-joined key per cached value).
// Conversation history only changes through this process's own
// AppendMessage/UpdateMessage calls, so invalidation is a plain Del on
// write rather than a pub/sub broadcast.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/agixt-go/orchestrator/internal/observability"
	"github.com/agixt-go/orchestrator/internal/ports"
)

const ttl = 10 * time.Minute

// ConversationStore decorates a ports.ConversationStore with a Redis
// cache of GetConversation results, invalidated on every write.
type ConversationStore struct {
	next   ports.ConversationStore
	client redis.UniversalClient
}

func New(next ports.ConversationStore, addr string, db int) *ConversationStore {
	return &ConversationStore{
		next:   next,
		client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
	}
}

func key(userID, conversationID string) string {
	return "conversation:" + userID + ":" + conversationID
}

func (c *ConversationStore) GetConversation(ctx context.Context, userID, id string) (*domain.Conversation, error) {
	log := observability.LoggerWithTrace(ctx)

	if cached, err := c.client.Get(ctx, key(userID, id)).Bytes(); err == nil {
		var convo domain.Conversation
		if json.Unmarshal(cached, &convo) == nil {
			return &convo, nil
		}
	}

	convo, err := c.next.GetConversation(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(convo); err == nil {
		if err := c.client.Set(ctx, key(userID, id), data, ttl).Err(); err != nil {
			log.Debug().Err(err).Msg("conversation_cache_set_failed")
		}
	}
	return convo, nil
}

func (c *ConversationStore) AppendMessage(ctx context.Context, userID, conversationID string, msg domain.Message) error {
	if err := c.next.AppendMessage(ctx, userID, conversationID, msg); err != nil {
		return err
	}
	return c.invalidate(ctx, userID, conversationID)
}

func (c *ConversationStore) UpdateMessage(ctx context.Context, userID, conversationID string, msg domain.Message) error {
	if err := c.next.UpdateMessage(ctx, userID, conversationID, msg); err != nil {
		return err
	}
	return c.invalidate(ctx, userID, conversationID)
}

func (c *ConversationStore) ForkConversation(ctx context.Context, userID, conversationID, messageID string) (*domain.Conversation, error) {
	return c.next.ForkConversation(ctx, userID, conversationID, messageID)
}

func (c *ConversationStore) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if err := c.next.DeleteConversation(ctx, userID, conversationID); err != nil {
		return err
	}
	return c.invalidate(ctx, userID, conversationID)
}

func (c *ConversationStore) invalidate(ctx context.Context, userID, conversationID string) error {
	return c.client.Del(ctx, key(userID, conversationID)).Err()
}
