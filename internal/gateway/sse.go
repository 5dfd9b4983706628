// ABOUTME: Server-Sent Events endpoint for live message delivery
// ABOUTME: Streams notifier events to a connected user over HTTP

package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// handleStream handles GET /api/stream?user_id=X. It subscribes the caller to
// the notifier and streams events until the client disconnects.
func (g *Gateway) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		g.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	events, subID := g.notifier.Subscribe(r.Context(), userID)
	g.logger.Info("stream connected", "user_id", userID, "subscription_id", subID)

	writeSSEEvent(w, "connected", map[string]string{"user_id": userID})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			g.logger.Info("stream disconnected", "user_id", userID, "subscription_id", subID)
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			writeSSEEvent(w, event.Kind, event)
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes a single SSE frame with the given event name and
// JSON-encoded payload.
func writeSSEEvent(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", data)
}
