package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/suPer8Hu/estate-chat/internal/models"
	"gorm.io/gorm"
)

const (
	MinPasswordLen  = 8
	DefaultTokenTTL = 24 * time.Hour
)

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// Accounts registers users and issues their tokens.
type Accounts struct {
	db     *gorm.DB
	secret string
	ttl    time.Duration
}

func NewAccounts(db *gorm.DB, secret string, ttl time.Duration) *Accounts {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Accounts{db: db, secret: secret, ttl: ttl}
}

// NormalizeEmail lowercases and trims; addresses are matched in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates the user and returns it with a fresh token.
func (a *Accounts) Register(ctx context.Context, email, password string) (*models.User, string, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, "", ErrInvalidEmail
	}
	if len(password) < MinPasswordLen {
		return nil, "", ErrWeakPassword
	}

	db := a.db.WithContext(ctx)
	var cnt int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&cnt).Error; err != nil {
		return nil, "", err
	}
	if cnt > 0 {
		return nil, "", ErrEmailTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	username, err := a.freeUsername(ctx)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{Email: email, Username: username, PasswordHash: hash}
	if err := db.Create(user).Error; err != nil {
		// lost a race with a concurrent signup on the unique index
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}

	token, err := SignJWT(user.ID, a.secret, a.ttl)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login checks the password and returns a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (a *Accounts) Login(ctx context.Context, email, password string) (string, error) {
	var user models.User
	err := a.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	return SignJWT(user.ID, a.secret, a.ttl)
}

func (a *Accounts) User(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	err := a.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// freeUsername draws random 11 character handles until one is unused.
func (a *Accounts) freeUsername(ctx context.Context) (string, error) {
	for i := 0; i < 5; i++ {
		u, err := randomUsername(11)
		if err != nil {
			return "", err
		}
		var cnt int64
		if err := a.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", u).Count(&cnt).Error; err != nil {
			return "", err
		}
		if cnt == 0 {
			return u, nil
		}
	}
	return "", errors.New("failed to allocate username")
}

func randomUsername(n int) (string, error) {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	out := make([]byte, n)
	for i := range out {
		k, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		out[i] = letters[k.Int64()]
	}
	return string(out), nil
}
