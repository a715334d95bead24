package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/suPer8Hu/estate-chat/internal/kv"
)

// localTranscript is the whole stored value of one anonymous session.
type localTranscript struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// LocalHistory keeps an anonymous device's sessions in kv, one key per
// session. Every append rewrites the full transcript.
type LocalHistory struct {
	kv       kv.Store
	deviceID string
	expiry   kv.Expiry
	now      func() time.Time
}

func NewLocalHistory(store kv.Store, deviceID string, expiry kv.Expiry) *LocalHistory {
	if expiry == nil {
		expiry = kv.NoExpiry
	}
	return &LocalHistory{kv: store, deviceID: deviceID, expiry: expiry, now: time.Now}
}

func (h *LocalHistory) key(sessionID string) string {
	return kv.DeviceKey(h.deviceID, "chat", sessionID)
}

func (h *LocalHistory) read(ctx context.Context, sessionID string) (*localTranscript, error) {
	raw, ok, err := h.kv.Get(ctx, h.key(sessionID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	var t localTranscript
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *LocalHistory) write(ctx context.Context, sessionID string, t *localTranscript) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return h.kv.Set(ctx, h.key(sessionID), string(raw), h.expiry(h.now()))
}

func (h *LocalHistory) Create(ctx context.Context) (*Session, error) {
	now := h.now()
	id := NewSessionID()
	t := &localTranscript{CreatedAt: now, UpdatedAt: now, Messages: []Message{}}
	if err := h.write(ctx, id, t); err != nil {
		return nil, err
	}
	return &Session{ID: id, CreatedAt: now, UpdatedAt: now}, nil
}

func (h *LocalHistory) Append(ctx context.Context, sessionID string, user, assistant Message) error {
	t, err := h.read(ctx, sessionID)
	if err != nil {
		return err
	}
	now := h.now()
	if err := stamp(now, &user, &assistant); err != nil {
		return err
	}
	t.Messages = append(t.Messages, user, assistant)
	t.UpdatedAt = now
	return h.write(ctx, sessionID, t)
}

func (h *LocalHistory) Load(ctx context.Context, sessionID string) ([]Message, error) {
	t, err := h.read(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if t.Messages == nil {
		return []Message{}, nil
	}
	return t.Messages, nil
}
