// Package kv is the small durable key-value state scoped to a device or a
// cache namespace. Every writer declares how long its keys live.
package kv

import (
	"context"
	"strings"
	"time"
)

type Store interface {
	// Get reports ok=false for a missing or expired key.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value; ttl <= 0 means the key never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Expiry computes the ttl for a key written at now.
type Expiry func(now time.Time) time.Duration

func NoExpiry(time.Time) time.Duration { return 0 }

func Fixed(d time.Duration) Expiry {
	return func(time.Time) time.Duration { return d }
}

// UntilEndOfDay keeps a key until the next calendar day boundary in now's
// location, plus grace.
func UntilEndOfDay(grace time.Duration) Expiry {
	return func(now time.Time) time.Duration {
		y, m, d := now.Date()
		midnight := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
		return midnight.Sub(now) + grace
	}
}

// DeviceKey namespaces a key under an anonymous device id.
func DeviceKey(deviceID string, parts ...string) string {
	return "device:" + deviceID + ":" + strings.Join(parts, ":")
}
