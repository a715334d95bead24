package turn

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/suPer8Hu/estate-chat/internal/assistant"
	"github.com/suPer8Hu/estate-chat/internal/auth"
	"github.com/suPer8Hu/estate-chat/internal/budget"
	"github.com/suPer8Hu/estate-chat/internal/chat"
	"github.com/suPer8Hu/estate-chat/internal/kv"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(gormsqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := chat.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate chat: %v", err)
	}
	if err := budget.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate budget: %v", err)
	}
	return db
}

type fakeTurner struct {
	calls  int
	answer string
	err    error
	before func(ctx context.Context, onToken func(string))
}

func (f *fakeTurner) ProcessTurn(ctx context.Context, _ string, text string, onToken func(string)) (*assistant.Result, error) {
	f.calls++
	if f.before != nil {
		f.before(ctx, onToken)
	}
	if f.err != nil {
		var te *assistant.TurnError
		if errors.As(f.err, &te) && te.Kind == assistant.KindSearch {
			return nil, f.err
		}
	}
	return &assistant.Result{
		Answer:       f.answer,
		Suggestions:  []string{"Q1"},
		InputLength:  utf8.RuneCountInString(text),
		OutputLength: utf8.RuneCountInString(f.answer),
	}, f.err
}

func newController(t *testing.T, turner Turner, dailyCap int) *Controller {
	t.Helper()
	return NewController(openTestDB(t), kv.NewMemoryStore(nil), turner, Config{DailyCap: dailyCap}, nil)
}

func TestRun_AnonymousCreatesSessionPersistsAndCharges(t *testing.T) {
	ft := &fakeTurner{answer: "Two listings match."}
	c := newController(t, ft, 100)
	id := auth.Identity{DeviceID: "dev-1"}
	ctx := context.Background()

	out, err := c.Run(ctx, id, "", "2 bhk pune", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.SessionID == "" {
		t.Fatalf("expected a new session id")
	}
	want := 100 - len("2 bhk pune") - len("Two listings match.")
	if out.Remaining != want {
		t.Fatalf("remaining = %d, want %d", out.Remaining, want)
	}

	msgs, err := c.Backends(id).History.Load(ctx, out.SessionID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "2 bhk pune" || msgs[1].Content != "Two listings match." {
		t.Fatalf("unexpected transcript %+v", msgs)
	}

	// another device sees neither the transcript nor the spend
	other := c.Backends(auth.Identity{DeviceID: "dev-2"})
	if _, err := other.History.Load(ctx, out.SessionID); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("transcript leaked across devices: %v", err)
	}
	if n, _ := other.Budget.Remaining(ctx); n != 100 {
		t.Fatalf("budget leaked across devices: %d", n)
	}
}

func TestRun_AuthenticatedSharesBudgetAcrossDevices(t *testing.T) {
	ft := &fakeTurner{answer: "ok"}
	c := newController(t, ft, 100)
	ctx := context.Background()
	phone := auth.Identity{UserID: 5, DeviceID: "phone"}
	laptop := auth.Identity{UserID: 5, DeviceID: "laptop"}

	s, err := c.Backends(phone).History.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.Run(ctx, phone, s.ID, "hello", nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	msgs, err := c.Backends(laptop).History.Load(ctx, s.ID)
	if err != nil || len(msgs) != 2 {
		t.Fatalf("expected transcript on second device, got %d %v", len(msgs), err)
	}
	if n, _ := c.Backends(laptop).Budget.Remaining(ctx); n != 100-7 {
		t.Fatalf("expected shared balance 93, got %d", n)
	}
}

func TestRun_BudgetExhaustedBlocksModelCall(t *testing.T) {
	ft := &fakeTurner{answer: strings.Repeat("a", 50)}
	c := newController(t, ft, 10)
	id := auth.Identity{DeviceID: "dev-3"}
	ctx := context.Background()

	out, err := c.Run(ctx, id, "", "hi", nil)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if out.Remaining != 0 {
		t.Fatalf("expected clamp to 0, got %d", out.Remaining)
	}

	if _, err := c.Run(ctx, id, out.SessionID, "again", nil); !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("expected ErrBudgetExhausted, got %v", err)
	}
	if ft.calls != 1 {
		t.Fatalf("model called after exhaustion: %d calls", ft.calls)
	}
}

func TestRun_BudgetExhaustedCreatesNoSession(t *testing.T) {
	ft := &fakeTurner{answer: strings.Repeat("a", 50)}
	db := openTestDB(t)
	c := NewController(db, kv.NewMemoryStore(nil), ft, Config{DailyCap: 10}, nil)
	id := auth.Identity{UserID: 9, DeviceID: "dev-9"}
	ctx := context.Background()

	if _, err := c.Run(ctx, id, "", "hi", nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := c.Run(ctx, id, "", "again", nil); !errors.Is(err, ErrBudgetExhausted) {
			t.Fatalf("expected ErrBudgetExhausted, got %v", err)
		}
	}

	var n int64
	if err := db.Table("chat_sessions").Count(&n).Error; err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if n != 1 {
		t.Fatalf("refused sends left sessions behind: %d sessions", n)
	}
}

func TestRun_SearchFailurePersistsNothing(t *testing.T) {
	ft := &fakeTurner{err: &assistant.TurnError{Kind: assistant.KindSearch, Message: "try again", Err: errors.New("db down")}}
	c := newController(t, ft, 100)
	id := auth.Identity{DeviceID: "dev-4"}
	ctx := context.Background()
	s, _ := c.Backends(id).History.Create(ctx)

	out, err := c.Run(ctx, id, s.ID, "2 bhk", nil)
	var te *assistant.TurnError
	if out != nil || !errors.As(err, &te) || te.Kind != assistant.KindSearch {
		t.Fatalf("expected search TurnError only, got %v / %v", out, err)
	}
	msgs, _ := c.Backends(id).History.Load(ctx, s.ID)
	if len(msgs) != 0 {
		t.Fatalf("search failure touched the transcript: %+v", msgs)
	}
	if n, _ := c.Backends(id).Budget.Remaining(ctx); n != 100 {
		t.Fatalf("search failure was charged: %d", n)
	}
}

func TestRun_PartialGenerationPersistedAndCharged(t *testing.T) {
	ft := &fakeTurner{
		answer: "Sea Breeze is a",
		err:    &assistant.TurnError{Kind: assistant.KindGeneration, Message: "stopped", Partial: "Sea Breeze is a", Err: errors.New("reset")},
	}
	c := newController(t, ft, 100)
	id := auth.Identity{UserID: 11}
	ctx := context.Background()
	s, _ := c.Backends(id).History.Create(ctx)

	out, err := c.Run(ctx, id, s.ID, "hi", nil)
	if err == nil || out == nil {
		t.Fatalf("expected outcome and error, got %v / %v", out, err)
	}
	msgs, _ := c.Backends(id).History.Load(ctx, s.ID)
	if len(msgs) != 2 || msgs[1].Content != "Sea Breeze is a" {
		t.Fatalf("partial answer not persisted: %+v", msgs)
	}
	if out.Remaining != 100-2-15 {
		t.Fatalf("partial turn not charged: %d", out.Remaining)
	}
}

func TestRun_CancelledConsumerStillPersists(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var delivered []string
	var runCtxErr error
	ft := &fakeTurner{
		answer: "done",
		before: func(runCtx context.Context, onToken func(string)) {
			onToken("do")
			cancel()
			onToken("ne")
			runCtxErr = runCtx.Err()
		},
	}
	c := newController(t, ft, 100)
	id := auth.Identity{DeviceID: "dev-5"}
	s, _ := c.Backends(id).History.Create(context.Background())

	if _, err := c.Run(ctx, id, s.ID, "hi", func(tok string) { delivered = append(delivered, tok) }); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(delivered) != 1 || delivered[0] != "do" {
		t.Fatalf("tokens delivered after cancel: %v", delivered)
	}
	if runCtxErr != nil {
		t.Fatalf("turn context cancelled with the request: %v", runCtxErr)
	}
	msgs, _ := c.Backends(id).History.Load(context.Background(), s.ID)
	if len(msgs) != 2 {
		t.Fatalf("turn not persisted after cancel: %d", len(msgs))
	}
}

func TestRun_UnknownSession(t *testing.T) {
	c := newController(t, &fakeTurner{answer: "x"}, 100)
	if _, err := c.Run(context.Background(), auth.Identity{DeviceID: "d"}, "nope", "hi", nil); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
