package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quyennx102/storefront-bff/internal/domain"
	"github.com/quyennx102/storefront-bff/internal/notify"
)

// HandleNotificationStream streams notifications to the UI as server-sent
// events. When the Kafka consumer is running, events come from the fan-out
// hub; otherwise a per-connection poller falls back to the REST listing.
func (h *Handler) HandleNotificationStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	profile, err := h.profile(r.Context(), sess)
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var events <-chan domain.Notification
	if h.pushEnabled {
		ch, cancel := h.hub.Subscribe(profile.ID)
		defer cancel()
		events = ch
	} else {
		ch := make(chan domain.Notification, 16)
		poller := notify.NewPoller(sess.API, h.pollInterval, h.logger)
		go func() {
			_ = poller.Run(r.Context(), func(n domain.Notification) {
				select {
				case ch <- n:
				case <-r.Context().Done():
				}
			})
		}()
		events = ch
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case n := <-events:
			data, err := json.Marshal(n)
			if err != nil {
				h.logger.Error("failed to encode notification", "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
