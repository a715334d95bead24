package budget

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenBalance is the shared balance of an account, one row per user.
type TokenBalance struct {
	UserID    uint64 `gorm:"primaryKey;autoIncrement:false"`
	Remaining int    `gorm:"not null"`
	ResetOn   string `gorm:"type:varchar(10);not null"`
	UpdatedAt time.Time
}

func (TokenBalance) TableName() string { return "token_balances" }

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&TokenBalance{})
}

// UserStore keeps an authenticated user's balance in the database so every
// device of the account shares it.
type UserStore struct {
	db     *gorm.DB
	userID uint64
}

func NewUserStore(db *gorm.DB, userID uint64) *UserStore {
	return &UserStore{db: db, userID: userID}
}

func (s *UserStore) Load(ctx context.Context) (Balance, bool, error) {
	var row TokenBalance
	err := s.db.WithContext(ctx).First(&row, "user_id = ?", s.userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Balance{}, false, nil
	}
	if err != nil {
		return Balance{}, false, err
	}
	return Balance{Remaining: row.Remaining, ResetOn: row.ResetOn}, true, nil
}

func (s *UserStore) Save(ctx context.Context, b Balance) error {
	row := TokenBalance{UserID: s.userID, Remaining: b.Remaining, ResetOn: b.ResetOn}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"remaining", "reset_on", "updated_at"}),
	}).Create(&row).Error
}
