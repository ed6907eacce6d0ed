package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role enumerates the participant that authored a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleActivity  Role = "activity"
)

// Message is one entry in a Conversation's append-only history. Edits set
// UpdatedAt/UpdatedBy and never change ID (Conversation
// invariant).
type Message struct {
	ID              uuid.UUID
	Role            Role
	Content         string
	Timestamp       time.Time
	UpdatedAt       time.Time
	UpdatedBy       string
	FeedbackReceived bool
}

// Conversation is an ordered, append-only sequence of Messages scoped to a
// user.
type Conversation struct {
	ID       uuid.UUID
	UserID   string
	Messages []Message
}

// Append adds msg to the conversation, enforcing the monotonic-timestamp
// and unique-id invariants.
func (c *Conversation) Append(msg Message) error {
	if len(c.Messages) > 0 {
		last := c.Messages[len(c.Messages)-1]
		if msg.Timestamp.Before(last.Timestamp) {
			msg.Timestamp = last.Timestamp
		}
		if msg.ID == last.ID {
			msg.ID = uuid.New()
		}
	}
	c.Messages = append(c.Messages, msg)
	return nil
}

// ForkAt returns a new Conversation whose history is the prefix of c up to
// and including messageID.
func (c *Conversation) ForkAt(messageID uuid.UUID) (*Conversation, bool) {
	for i, m := range c.Messages {
		if m.ID == messageID {
			forked := &Conversation{
				ID:       uuid.New(),
				UserID:   c.UserID,
				Messages: append([]Message(nil), c.Messages[:i+1]...),
			}
			return forked, true
		}
	}
	return nil, false
}
