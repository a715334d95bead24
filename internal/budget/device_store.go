package budget

import (
	"context"
	"encoding/json"
	"time"

	"github.com/suPer8Hu/estate-chat/internal/kv"
)

// DeviceExpiry drops an anonymous balance a day after the day it was written.
var DeviceExpiry = kv.UntilEndOfDay(24 * time.Hour)

// DeviceStore keeps an anonymous device's balance and reset marker under one
// kv key.
type DeviceStore struct {
	kv     kv.Store
	key    string
	expiry kv.Expiry
	now    func() time.Time
}

func NewDeviceStore(store kv.Store, deviceID string, now func() time.Time) *DeviceStore {
	if now == nil {
		now = time.Now
	}
	return &DeviceStore{
		kv:     store,
		key:    kv.DeviceKey(deviceID, "budget"),
		expiry: DeviceExpiry,
		now:    now,
	}
}

func (s *DeviceStore) Load(ctx context.Context) (Balance, bool, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil || !ok {
		return Balance{}, false, err
	}
	var b Balance
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		// a corrupt entry behaves like a first visit
		return Balance{}, false, nil
	}
	return b, true, nil
}

func (s *DeviceStore) Save(ctx context.Context, b Balance) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.key, string(raw), s.expiry(s.now()))
}
