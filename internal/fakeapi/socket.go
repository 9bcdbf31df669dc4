package fakeapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", "error", err)
		return
	}

	s.wsMu.Lock()
	s.sockets[conn] = struct{}{}
	online := len(s.sockets)
	s.wsMu.Unlock()

	s.mu.Lock()
	s.peakOnline = max(s.peakOnline, online)
	s.mu.Unlock()
	s.log.Debug("socket connected", "online", online)

	// The client never sends data; reading only surfaces the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.wsMu.Lock()
	delete(s.sockets, conn)
	s.wsMu.Unlock()
	_ = conn.Close()
}

// Online reports how many sockets are connected.
func (s *Server) Online() int {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	return len(s.sockets)
}

// Broadcast sends a tagged {"channel", "payload"} frame to every socket.
func (s *Server) Broadcast(channel string, payload any) error {
	return s.BroadcastRaw(map[string]any{"channel": channel, "payload": payload})
}

// BroadcastRaw sends v as JSON without the channel envelope.
func (s *Server) BroadcastRaw(v any) error {
	frame, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.BroadcastFrame(frame)
}

// BroadcastFrame sends frame verbatim as a text message.
func (s *Server) BroadcastFrame(frame []byte) error {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	var errs []error
	for conn := range s.sockets {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CloseSockets drops every connected socket.
func (s *Server) CloseSockets() {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	for conn := range s.sockets {
		_ = conn.Close()
	}
}

func (s *Server) publish(channel string, payload any) {
	if err := s.Broadcast(channel, payload); err != nil {
		s.log.Warn("broadcast", "channel", channel, "error", err)
	}
}
