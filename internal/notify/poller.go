package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/quyennx102/storefront-bff/internal/domain"
)

// Lister is the REST polling fallback endpoint.
type Lister interface {
	ListNotifications(ctx context.Context, after time.Time) ([]domain.Notification, error)
}

// Poller periodically fetches a user's notifications when no push channel
// is available and emits only ones newer than the last poll. Poll failures
// are logged and retried on the next tick; there is no backoff or
// redelivery.
type Poller struct {
	api      Lister
	interval time.Duration
	logger   *slog.Logger
}

func NewPoller(api Lister, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{api: api, interval: interval, logger: logger}
}

// Run polls until ctx is cancelled, emitting each new notification.
func (p *Poller) Run(ctx context.Context, emit func(domain.Notification)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var lastSeen time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			notifications, err := p.api.ListNotifications(ctx, lastSeen)
			if err != nil {
				p.logger.Error("notification poll failed", "error", err)
				continue
			}
			for _, n := range notifications {
				if n.CreatedAt.After(lastSeen) {
					lastSeen = n.CreatedAt
				}
				emit(n)
			}
		}
	}
}
