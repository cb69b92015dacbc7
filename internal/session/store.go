// Package session persists per-session storefront state: the auth token,
// the cached user profile, the remembered email and the discount handoff
// slot. It is a TTL key-value surface with one extra primitive, TakeOnce,
// which reads a key and clears it in the same step so handed-off values can
// never be observed twice.
package session

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("session key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// TakeOnce returns the value and removes it atomically. A second call
	// reports ErrNotFound.
	TakeOnce(ctx context.Context, key string) ([]byte, error)
}

// Key builders. One session owns one value per concern.

func TokenKey(sessionID string) string { return "session:" + sessionID + ":token" }

func ProfileKey(sessionID string) string { return "session:" + sessionID + ":profile" }

func RememberedEmailKey(sessionID string) string { return "session:" + sessionID + ":remembered_email" }

// HandoffKey is the short-lived slot that carries the discount grant across
// the cart-to-checkout navigation.
func HandoffKey(sessionID string) string { return "session:" + sessionID + ":discount_handoff" }

// HandoffTTL bounds how long a handed-off grant stays readable. The slot is
// consumed on checkout mount; the TTL only covers abandoned navigations.
const HandoffTTL = 10 * time.Minute
