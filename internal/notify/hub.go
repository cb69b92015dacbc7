// Package notify fans user notifications out to active sessions. Events
// arrive over the Kafka push channel when brokers are configured, or
// through the REST polling fallback otherwise. The hub offers no ordering,
// retry or delivery guarantees of its own; those live server-side.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/quyennx102/storefront-bff/internal/domain"
	"github.com/quyennx102/storefront-bff/internal/messaging"
)

// Topic is the backend's notification event stream.
const Topic = "notification.created"

type Hub struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string]map[chan domain.Notification]struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[string]map[chan domain.Notification]struct{}),
	}
}

// Subscribe registers a channel for one user's notifications. The returned
// cancel func must be called when the consumer goes away.
func (h *Hub) Subscribe(userID string) (<-chan domain.Notification, func()) {
	ch := make(chan domain.Notification, 16)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan domain.Notification]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[userID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, userID)
			}
		}
	}
	return ch, cancel
}

// Publish delivers to every live subscription of the target user. A slow
// subscriber drops the event rather than blocking the source.
func (h *Hub) Publish(n domain.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[n.UserID] {
		select {
		case ch <- n:
		default:
			h.logger.Warn("notification dropped for slow subscriber", "user_id", n.UserID, "id", n.ID)
		}
	}
}

// RunConsumer feeds the hub from the Kafka push channel until ctx is
// cancelled.
func (h *Hub) RunConsumer(ctx context.Context, consumer *messaging.Consumer) error {
	return consumer.Consume(ctx, func(ctx context.Context, payload []byte) error {
		var n domain.Notification
		if err := json.Unmarshal(payload, &n); err != nil {
			return fmt.Errorf("unmarshal notification event: %w", err)
		}
		h.logger.Info("notification received", "user_id", n.UserID, "kind", n.Kind)
		h.Publish(n)
		return nil
	})
}
