// SPDX-License-Identifier: AGPL-3.0-only
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/auth"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/config"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/errors"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/cors"
)

// ChatService produces an assistant reply for a user message.
// ok=false means the model produced no text.
type ChatService interface {
	ProcessMessage(ctx context.Context, conversationID, userText string) (reply string, ok bool, err error)
}

// Renderer converts assistant text to presentation HTML.
type Renderer interface {
	ToHTML(ctx context.Context, text string) string
}

// Server is the HTTP front door for the chat assistant.
type Server struct {
	chat           ChatService
	renderer       Renderer
	verifier       *auth.Verifier
	httpServer     *http.Server
	address        string
	port           int
	config         *config.Config
	logger         *logging.Logger
	streamDelay    time.Duration
	wg             sync.WaitGroup
	shutdownMutex  sync.Mutex
	isShuttingDown bool
}

// NewServer creates the chat HTTP server.
func NewServer(cfg *config.Config, chat ChatService, renderer Renderer, verifier *auth.Verifier, logger *logging.Logger) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}

	return &Server{
		chat:        chat,
		renderer:    renderer,
		verifier:    verifier,
		address:     cfg.Server.Address,
		port:        cfg.Server.Port,
		config:      cfg,
		logger:      logger,
		streamDelay: 30 * time.Millisecond,
	}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   s.config.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	r := chi.NewRouter()
	r.Use(corsMiddleware.Handler)

	r.Get("/", s.handleRoot)
	r.With(s.verifier.Middleware).Post("/chat", s.handleChat)
	r.Get("/ws", s.handleWebSocket)

	return r
}

// Start begins serving HTTP.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.address, s.port)
	s.httpServer = &http.Server{Addr: addr, Handler: s.Handler()}
	s.logger.Infof("Chat server listening on %s", addr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("Error running chat server: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			s.logger.Errorf("Error stopping chat server: %v", err)
		}
	}()

	return nil
}

// Stop shuts the HTTP server down.
func (s *Server) Stop() error {
	s.shutdownMutex.Lock()
	defer s.shutdownMutex.Unlock()

	if s.isShuttingDown {
		s.logger.Debugf("Stop called but server is already shutting down, ignoring")
		return nil
	}
	s.isShuttingDown = true

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return errors.Internal(fmt.Errorf("error shutting down chat server: %w", err))
		}
	}

	s.wg.Wait()
	return nil
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

type chatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "M.S. Organics assistant is running",
		"socket":  "enabled",
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing 'message' field"})
		return
	}

	user, _ := auth.UserFromContext(r.Context())
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	if user != nil {
		s.logger.Infof("Chat message from %s (conversation %s)", user.Email, conversationID)
	}

	reply, ok, err := s.chat.ProcessMessage(r.Context(), conversationID, req.Message)
	if err != nil {
		s.logger.Errorf("Chat processing failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to process message"})
		return
	}
	if !ok {
		reply = ""
	}

	html := s.renderer.ToHTML(r.Context(), reply)
	writeJSON(w, http.StatusOK, chatResponse{Response: html, ConversationID: conversationID})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
