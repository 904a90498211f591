// SPDX-License-Identifier: AGPL-3.0-only
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/auth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Chat channel event names. The backend server drives chat:send and
// receives status, stream chunks and a completion or error event.
const (
	EventChatSend     = "chat:send"
	EventChatStatus   = "chat:status"
	EventChatStream   = "chat:stream"
	EventChatComplete = "chat:complete"
	EventChatError    = "chat:error"
	EventPing         = "ping"
	EventPong         = "pong"
)

// wsEnvelope is the wire frame for every chat channel event.
type wsEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type chatSendPayload struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	UserToken      string `json:"userToken"`
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range s.config.Server.AllowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	connID := uuid.NewString()
	s.logger.Infof("WebSocket client connected: %s", connID)
	defer func() {
		s.logger.Infof("WebSocket client disconnected: %s", connID)
		_ = conn.Close()
	}()

	for {
		var envelope wsEnvelope
		if err := conn.ReadJSON(&envelope); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warnf("WebSocket read error on %s: %v", connID, err)
			}
			return
		}

		switch envelope.Event {
		case EventChatSend:
			s.handleChatSend(r.Context(), conn, envelope.Data)
		case EventPing:
			s.emit(conn, EventPong, map[string]interface{}{
				"timestamp": time.Now().UnixMilli(),
			})
		default:
			s.logger.Debugf("Ignoring unknown event %q on %s", envelope.Event, connID)
		}
	}
}

func (s *Server) handleChatSend(ctx context.Context, conn *websocket.Conn, raw json.RawMessage) {
	var payload chatSendPayload
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &payload)
	}

	conversationID := payload.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	if payload.Message == "" {
		s.emitChatError(conn, conversationID, "Missing 'message' field")
		return
	}

	// A token is verified when supplied; the backend relays it from the
	// end user's session.
	if payload.UserToken != "" && s.verifier != nil {
		user, err := s.verifier.Verify(payload.UserToken)
		if err != nil {
			s.emitChatError(conn, conversationID, err.Error())
			return
		}
		ctx = auth.WithUser(ctx, user)
		s.logger.Infof("WebSocket chat from %s (conversation %s)", user.Email, conversationID)
	}

	s.emit(conn, EventChatStatus, map[string]interface{}{
		"status":         "thinking",
		"conversationId": conversationID,
	})

	reply, ok, err := s.chat.ProcessMessage(ctx, conversationID, payload.Message)
	if err != nil {
		s.logger.Errorf("Chat processing failed: %v", err)
		s.emitChatError(conn, conversationID, "failed to process message")
		return
	}
	if !ok {
		s.emitChatError(conn, conversationID, "No response from assistant")
		return
	}

	html := s.renderer.ToHTML(ctx, reply)

	// Word-by-word streaming, mirroring the frontend's typing effect.
	words := strings.Split(html, " ")
	for i, word := range words {
		s.emit(conn, EventChatStream, map[string]interface{}{
			"chunk":          word + " ",
			"index":          i,
			"conversationId": conversationID,
		})
		if s.streamDelay > 0 {
			time.Sleep(s.streamDelay)
		}
	}

	s.emit(conn, EventChatComplete, map[string]interface{}{
		"conversationId": conversationID,
		"fullResponse":   html,
	})
}

func (s *Server) emit(conn *websocket.Conn, event string, data interface{}) {
	encoded, err := json.Marshal(data)
	if err != nil {
		s.logger.Errorf("Failed to encode %s payload: %v", event, err)
		return
	}
	if err := conn.WriteJSON(wsEnvelope{Event: event, Data: encoded}); err != nil {
		s.logger.Warnf("Failed to write %s event: %v", event, err)
	}
}

func (s *Server) emitChatError(conn *websocket.Conn, conversationID, message string) {
	s.emit(conn, EventChatError, map[string]interface{}{
		"message":        message,
		"conversationId": conversationID,
	})
}
