package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/suPer8Hu/estate-chat/internal/models"
	"gorm.io/gorm"
)

func TestPasswordRoundTrip(t *testing.T) {
	h, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(h, "s3cret!") || CheckPassword(h, "wrong") {
		t.Fatalf("password check mismatch")
	}
}

func TestJWT(t *testing.T) {
	tok, err := SignJWT(42, "k1", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	c, err := ParseJWT(tok, "k1")
	if err != nil || c.UserID != 42 {
		t.Fatalf("parse: %+v %v", c, err)
	}
	if _, err := ParseJWT(tok, "other"); err == nil {
		t.Fatalf("expected signature failure")
	}

	expired, _ := SignJWT(42, "k1", -time.Minute)
	if _, err := ParseJWT(expired, "k1"); err == nil {
		t.Fatalf("expected expiry failure")
	}
}

func TestIdentity(t *testing.T) {
	anon := Identity{DeviceID: "d1"}
	if anon.Authenticated() || anon.Owner() != "device:d1" {
		t.Fatalf("unexpected anon identity %+v", anon)
	}
	user := Identity{UserID: 9, DeviceID: "d1"}
	if !user.Authenticated() || user.Owner() != "user:9" {
		t.Fatalf("unexpected user identity %+v", user)
	}
}

func newAccounts(t *testing.T) *Accounts {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(gormsqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return NewAccounts(db, "k1", time.Hour)
}

func TestAccounts_RegisterAndLogin(t *testing.T) {
	a := newAccounts(t)
	ctx := context.Background()

	u, tok, err := a.Register(ctx, "  Agent@Example.COM ", "longenough")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "agent@example.com" || len(u.Username) != 11 {
		t.Fatalf("unexpected user %+v", u)
	}
	if c, err := ParseJWT(tok, "k1"); err != nil || c.UserID != u.ID {
		t.Fatalf("token does not identify the user: %+v %v", c, err)
	}

	if _, _, err := a.Register(ctx, "agent@example.com", "otherpass1"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := a.Login(ctx, "AGENT@example.com", "longenough"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := a.Login(ctx, "agent@example.com", "nope-nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := a.Login(ctx, "ghost@example.com", "longenough"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email must look like a bad password, got %v", err)
	}
	if _, err := a.User(ctx, u.ID+100); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAccounts_Validation(t *testing.T) {
	a := newAccounts(t)
	if _, _, err := a.Register(context.Background(), "not-an-email", "longenough"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, _, err := a.Register(context.Background(), "a@b.co", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}
