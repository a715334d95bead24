package chat

import (
	"context"
	"errors"
	"time"

	"github.com/suPer8Hu/estate-chat/internal/property"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&sessionRow{}, &messageRow{})
}

// CloudHistory keeps a signed-in user's sessions in the shared database.
// Sessions owned by another user are reported as not found.
type CloudHistory struct {
	db     *gorm.DB
	userID uint64
	now    func() time.Time
}

func NewCloudHistory(db *gorm.DB, userID uint64) *CloudHistory {
	return &CloudHistory{db: db, userID: userID, now: time.Now}
}

func (h *CloudHistory) Create(ctx context.Context) (*Session, error) {
	row := &sessionRow{SessionID: NewSessionID(), UserID: h.userID}
	if err := h.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return &Session{ID: row.SessionID, UserID: row.UserID, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}, nil
}

func (h *CloudHistory) session(ctx context.Context, db *gorm.DB, sessionID string) (*sessionRow, error) {
	var s sessionRow
	err := db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, h.userID).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (h *CloudHistory) Append(ctx context.Context, sessionID string, user, assistant Message) error {
	if err := stamp(h.now(), &user, &assistant); err != nil {
		return err
	}
	return h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := h.session(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		rows := []messageRow{h.row(sessionID, user), h.row(sessionID, assistant)}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		return tx.Model(s).Update("updated_at", h.now()).Error
	})
}

func (h *CloudHistory) row(sessionID string, m Message) messageRow {
	return messageRow{
		ID:          m.ID,
		SessionID:   sessionID,
		UserID:      h.userID,
		Role:        m.Role,
		Content:     m.Content,
		Properties:  datatypes.JSONSlice[property.Property](m.Properties),
		Suggestions: datatypes.JSONSlice[string](m.Suggestions),
		CreatedAt:   m.CreatedAt,
	}
}

func (h *CloudHistory) Load(ctx context.Context, sessionID string) ([]Message, error) {
	if _, err := h.session(ctx, h.db, sessionID); err != nil {
		return nil, err
	}
	var rows []messageRow
	if err := h.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, h.userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.message())
	}
	return out, nil
}
