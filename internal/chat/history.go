// Package chat stores conversation transcripts for signed-in users (database)
// and anonymous devices (kv), behind one History interface.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/suPer8Hu/estate-chat/internal/common"
)

var ErrSessionNotFound = errors.New("chat session not found")

// History is one owner's view of their transcripts. Load returns messages in
// the order they were appended and is idempotent.
type History interface {
	Create(ctx context.Context) (*Session, error)
	Append(ctx context.Context, sessionID string, user, assistant Message) error
	Load(ctx context.Context, sessionID string) ([]Message, error)
}

func NewSessionID() string {
	return uuid.NewString()
}

// stamp fills id and timestamps for a pair about to be stored. The user
// message always sorts first.
func stamp(now time.Time, user, assistant *Message) error {
	for _, m := range []*Message{user, assistant} {
		if m.ID == "" {
			id, err := common.NewULID()
			if err != nil {
				return err
			}
			m.ID = id
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
	}
	user.Role = RoleUser
	assistant.Role = RoleAssistant
	return nil
}
