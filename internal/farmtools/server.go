// SPDX-License-Identifier: AGPL-3.0-only
package farmtools

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/config"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/errors"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/farmapi"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server exposes the farm REST API as MCP tools over streamable HTTP.
type Server struct {
	api            *farmapi.Client
	server         *mcp.Server
	httpServer     *http.Server
	address        string
	port           int
	config         *config.Config
	logger         *logging.Logger
	wg             sync.WaitGroup
	shutdownMutex  sync.Mutex
	isShuttingDown bool
}

// NewServer creates a farm tool server.
func NewServer(cfg *config.Config, api *farmapi.Client, logger *logging.Logger) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}

	mcpSrv := mcp.NewServer(&mcp.Implementation{
		Name:    "farm-tools",
		Version: cfg.Server.Version,
	}, nil)

	return &Server{
		api:     api,
		server:  mcpSrv,
		address: cfg.Farm.Address,
		port:    cfg.Farm.Port,
		config:  cfg,
		logger:  logger,
	}
}

// Start registers all tools and begins serving MCP at /mcp.
func (s *Server) Start(ctx context.Context) error {
	s.registerToolsDeclarative()

	addr := fmt.Sprintf("%s:%d", s.address, s.port)
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	s.logger.Infof("Farm tool server listening on %s/mcp", addr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("Error running farm tool server: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			s.logger.Errorf("Error stopping farm tool server: %v", err)
		}
	}()

	return nil
}

// Stop shuts the tool server down.
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
			return errors.Internal(fmt.Errorf("error shutting down farm tool server: %w", err))
		}
	}

	s.wg.Wait()
	return nil
}

