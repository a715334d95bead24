// Package budget rations assistant usage with a per-day token balance.
package budget

import (
	"context"
	"time"
)

const DefaultDailyCap = 5000

const dateLayout = "2006-01-02"

// Balance is the stored state. ResetOn is the calendar day the balance was
// last restored to the cap.
type Balance struct {
	Remaining int    `json:"remaining"`
	ResetOn   string `json:"reset_on"`
}

// Store persists one owner's balance. Load reports ok=false when nothing has
// been stored yet.
type Store interface {
	Load(ctx context.Context) (b Balance, ok bool, err error)
	Save(ctx context.Context, b Balance) error
}

// Tracker applies the daily reset and the zero clamp on top of a Store.
// Updates are read-modify-write without locking; two concurrent consumers of
// the same balance can lose an update.
type Tracker struct {
	store Store
	cap   int
	now   func() time.Time
}

func NewTracker(store Store, dailyCap int, now func() time.Time) *Tracker {
	if dailyCap <= 0 {
		dailyCap = DefaultDailyCap
	}
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: store, cap: dailyCap, now: now}
}

func (t *Tracker) Cap() int { return t.cap }

// refresh loads the balance, restoring it to the cap when the stored day
// differs from today.
func (t *Tracker) refresh(ctx context.Context) (Balance, error) {
	today := t.now().Format(dateLayout)
	b, ok, err := t.store.Load(ctx)
	if err != nil {
		return Balance{}, err
	}
	if ok && b.ResetOn == today {
		return b, nil
	}
	b = Balance{Remaining: t.cap, ResetOn: today}
	if err := t.store.Save(ctx, b); err != nil {
		return Balance{}, err
	}
	return b, nil
}

// CheckAvailable is false once the balance reaches zero, until the next day.
func (t *Tracker) CheckAvailable(ctx context.Context) (bool, error) {
	b, err := t.refresh(ctx)
	if err != nil {
		return false, err
	}
	return b.Remaining > 0, nil
}

func (t *Tracker) Remaining(ctx context.Context) (int, error) {
	b, err := t.refresh(ctx)
	if err != nil {
		return 0, err
	}
	return b.Remaining, nil
}

func (t *Tracker) Consume(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	b, err := t.refresh(ctx)
	if err != nil {
		return err
	}
	b.Remaining -= n
	if b.Remaining < 0 {
		b.Remaining = 0
	}
	return t.store.Save(ctx, b)
}
