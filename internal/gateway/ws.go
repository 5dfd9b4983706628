// ABOUTME: WebSocket endpoint for bidirectional live delivery
// ABOUTME: Pushes notifier events out and accepts typing frames in

package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/2389/ember/internal/notify"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsInbound is a client-to-server frame. Only typing indicators are accepted;
// message sends go through the HTTP API.
type wsInbound struct {
	Kind        string `json:"kind"`
	RecipientID string `json:"recipient_id"`
}

// handleWebSocket handles GET /ws?user_id=X. The connection receives the same
// events as the SSE stream and may send typing frames back.
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	events, subID := g.notifier.Subscribe(r.Context(), userID)
	g.logger.Info("websocket connected", "user_id", userID, "subscription_id", subID)

	done := make(chan struct{})

	go g.wsReadLoop(conn, userID, done)
	g.wsWriteLoop(conn, events, done)

	g.notifier.Unsubscribe(userID, subID)
	conn.Close()
	g.logger.Info("websocket disconnected", "user_id", userID, "subscription_id", subID)
}

// wsReadLoop drains inbound frames until the connection drops. Typing frames
// are forwarded to the recipient; everything else is ignored.
func (g *Gateway) wsReadLoop(conn *websocket.Conn, userID string, done chan struct{}) {
	defer close(done)

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame wsInbound
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Kind == "typing" && frame.RecipientID != "" {
			g.service.Typing(userID, frame.RecipientID)
		}
	}
}

// wsWriteLoop pushes notifier events and periodic pings until the reader
// exits or the subscription closes.
func (g *Gateway) wsWriteLoop(conn *websocket.Conn, events <-chan *notify.Event, done chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case event, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
