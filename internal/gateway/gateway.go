// ABOUTME: HTTP server assembly and lifecycle for the ember gateway
// ABOUTME: Wires the messaging service, notifier, and transports onto one mux

package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/ember/internal/messaging"
	"github.com/2389/ember/internal/notify"
)

// Gateway exposes the messaging service over HTTP, SSE, and WebSocket.
type Gateway struct {
	service    *messaging.Service
	notifier   *notify.Notifier
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a gateway listening on addr.
// Pass nil logger for default.
func New(addr string, service *messaging.Service, notifier *notify.Notifier, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}

	g := &Gateway{
		service:  service,
		notifier: notifier,
		logger:   logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/health/ready", g.handleReady)

	// Messaging API
	mux.HandleFunc("/api/conversations", g.handleConversations)
	mux.HandleFunc("/api/conversations/", g.handleConversationRoutes)
	mux.HandleFunc("/api/messages", g.handleSendMessage)
	mux.HandleFunc("/api/messages/", g.handleMessageRoutes)
	mux.HandleFunc("/api/unread", g.handleUnread)
	mux.HandleFunc("/api/typing", g.handleTyping)

	// Live delivery transports
	mux.HandleFunc("/api/stream", g.handleStream)
	mux.HandleFunc("/ws", g.handleWebSocket)

	g.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return g
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", g.httpServer.Addr)
		if err := g.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		return err
	}

	// Fresh context: the original is already canceled
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g.notifier.Close()
	return g.httpServer.Shutdown(shutdownCtx)
}

// handleHealth returns 200 OK while the process is up.
func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady mirrors handleHealth; the gateway is ready as soon as the
// store opened during startup.
func (g *Gateway) handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
