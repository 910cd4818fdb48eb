package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/events"
)

const wsWriteWait = 10 * time.Second

// serveSSE streams the caller's events as server-sent events. Every event
// is sent as "message"; its type is inside the JSON envelope.
func (s *Server) serveSSE(w http.ResponseWriter, r *http.Request) {
	if s.d.Hub == nil {
		unavailable(w, r, "event stream")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "stream_unsupported", "Streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	acct := accountFrom(r.Context()).ID
	ch := s.d.Hub.Subscribe(acct)
	defer s.d.Hub.Unsubscribe(ch)

	ping := events.New(events.TypePing, acct, "", nil)
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", ping.JSON())
	flusher.Flush()

	ticker := time.NewTicker(s.d.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case e, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", e.JSON())
			flusher.Flush()
		}
	}
}

// serveWS streams the same events over a WebSocket. Client messages are
// read and discarded; a read error ends the stream.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	if s.d.Hub == nil {
		unavailable(w, r, "event stream")
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		zap.L().Debug("api: websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close() //nolint:errcheck

	acct := accountFrom(r.Context()).ID
	ch := s.d.Hub.Subscribe(acct)
	defer s.d.Hub.Unsubscribe(ch)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msgType int, data []byte) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteMessage(msgType, data)
	}
	if err := write(websocket.TextMessage, events.New(events.TypePing, acct, "", nil).JSON()); err != nil {
		return
	}

	ticker := time.NewTicker(s.d.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		case e, ok := <-ch:
			if !ok {
				_ = write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := write(websocket.TextMessage, e.JSON()); err != nil {
				zap.L().Debug("api: websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

// checkOrigin applies the CORS allow-list to WebSocket handshakes.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.d.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
