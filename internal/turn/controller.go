// Package turn wires one chat turn end to end: backends chosen from the
// caller's identity, the budget precondition, the assistant call, then
// best-effort persistence and charging.
package turn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suPer8Hu/estate-chat/internal/assistant"
	"github.com/suPer8Hu/estate-chat/internal/auth"
	"github.com/suPer8Hu/estate-chat/internal/budget"
	"github.com/suPer8Hu/estate-chat/internal/chat"
	"github.com/suPer8Hu/estate-chat/internal/kv"
	"github.com/suPer8Hu/estate-chat/internal/platform/logger"
	"gorm.io/gorm"
)

var ErrBudgetExhausted = errors.New("daily assistant allowance used up, it resets tomorrow")

const defaultTimeout = 2 * time.Minute

// Turner is the assistant session as the controller uses it.
type Turner interface {
	ProcessTurn(ctx context.Context, sessionID, text string, onToken func(string)) (*assistant.Result, error)
}

// Backends are the per-identity stores, picked once per request.
type Backends struct {
	History chat.History
	Budget  *budget.Tracker
}

type Config struct {
	DailyCap int
	// Timeout bounds a turn after it is detached from the request.
	Timeout time.Duration
	// ChatExpiry applies to anonymous transcripts; nil keeps them forever.
	ChatExpiry kv.Expiry
}

type Controller struct {
	db      *gorm.DB
	kv      kv.Store
	session Turner
	cfg     Config
	log     *logger.Logger
	now     func() time.Time
}

func NewController(db *gorm.DB, store kv.Store, session Turner, cfg Config, log *logger.Logger) *Controller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.DailyCap <= 0 {
		cfg.DailyCap = budget.DefaultDailyCap
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{db: db, kv: store, session: session, cfg: cfg, log: log, now: time.Now}
}

// Backends selects database-backed stores for signed-in users and
// device-scoped kv stores otherwise.
func (c *Controller) Backends(id auth.Identity) Backends {
	if id.Authenticated() {
		return Backends{
			History: chat.NewCloudHistory(c.db, id.UserID),
			Budget:  budget.NewTracker(budget.NewUserStore(c.db, id.UserID), c.cfg.DailyCap, c.now),
		}
	}
	return Backends{
		History: chat.NewLocalHistory(c.kv, id.DeviceID, c.cfg.ChatExpiry),
		Budget:  budget.NewTracker(budget.NewDeviceStore(c.kv, id.DeviceID, c.now), c.cfg.DailyCap, c.now),
	}
}

type Outcome struct {
	SessionID string            `json:"session_id"`
	Result    *assistant.Result `json:"result"`
	Remaining int               `json:"remaining"`
}

// Run processes text in sessionID, creating a session when sessionID is
// empty. Once the budget check passes the turn runs to completion even if ctx
// is cancelled; onToken stops being called when ctx is done.
//
// A generation failure after some text streamed returns both the Outcome
// (with the partial answer, already persisted and charged) and the error.
func (c *Controller) Run(ctx context.Context, id auth.Identity, sessionID, text string, onToken func(string)) (*Outcome, error) {
	b := c.Backends(id)
	log := c.log.With("user_id", id.UserID, "device_id", id.DeviceID)

	if sessionID != "" {
		if _, err := b.History.Load(ctx, sessionID); err != nil {
			return nil, err
		}
	}

	ok, err := b.Budget.CheckAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("check budget: %w", err)
	}
	if !ok {
		return nil, ErrBudgetExhausted
	}

	// only create once the turn is allowed, so refused sends leave nothing behind
	if sessionID == "" {
		s, err := b.History.Create(ctx)
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		sessionID = s.ID
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
	defer cancel()

	res, turnErr := c.session.ProcessTurn(runCtx, sessionID, text, guard(ctx, onToken))
	if turnErr != nil && (res == nil || res.Answer == "") {
		return nil, turnErr
	}

	user := chat.Message{Content: text}
	reply := chat.Message{Content: res.Answer, Properties: res.Properties, Suggestions: res.Suggestions}
	if err := b.History.Append(runCtx, sessionID, user, reply); err != nil {
		log.Error("persist turn failed", "session_id", sessionID, "err", err)
	}

	if err := b.Budget.Consume(runCtx, res.InputLength+res.OutputLength); err != nil {
		log.Error("charge turn failed", "session_id", sessionID, "err", err)
	}
	remaining, err := b.Budget.Remaining(runCtx)
	if err != nil {
		log.Warn("read budget failed", "session_id", sessionID, "err", err)
	}

	return &Outcome{SessionID: sessionID, Result: res, Remaining: remaining}, turnErr
}

// guard drops tokens once the consumer behind ctx has gone away.
func guard(ctx context.Context, onToken func(string)) func(string) {
	if onToken == nil {
		return nil
	}
	return func(tok string) {
		if ctx.Err() != nil {
			return
		}
		onToken(tok)
	}
}
