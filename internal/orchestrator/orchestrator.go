// SPDX-License-Identifier: AGPL-3.0-only

// Package orchestrator aggregates tools from multiple MCP tool servers
// behind a single registry and routes invocations back to the owning
// server.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/config"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/errors"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/logging"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// session is the slice of an MCP client session the orchestrator needs.
// Tests substitute fakes through the dialer.
type session interface {
	ListTools(ctx context.Context, params *mcp.ListToolsParams) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
	Ping(ctx context.Context, params *mcp.PingParams) error
	Close() error
}

// Dialer establishes a session with a tool server at the given endpoint.
type Dialer func(ctx context.Context, endpoint string) (session, error)

// mcpDial connects through the official SDK client. Endpoints ending in
// /sse use the SSE transport; everything else uses streamable HTTP.
func mcpDial(ctx context.Context, endpoint string) (session, error) {
	var tp mcp.Transport
	if strings.HasSuffix(strings.TrimRight(endpoint, "/"), "/sse") {
		tp = &mcp.SSEClientTransport{Endpoint: endpoint}
	} else {
		tp = &mcp.StreamableClientTransport{Endpoint: endpoint}
	}
	cli := mcp.NewClient(&mcp.Implementation{
		Name:    config.DefaultServerName,
		Version: config.DefaultServerVersion,
	}, nil)
	return cli.Connect(ctx, tp, nil)
}

// Orchestrator maintains one session per configured tool server and
// exposes the combined tool surface under namespaced names.
type Orchestrator struct {
	mu            sync.RWMutex
	sessions      map[string]session
	endpoints     map[string]string
	defaultServer string
	dial          Dialer
	logger        *logging.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithDialer overrides how sessions are established.
func WithDialer(d Dialer) Option {
	return func(o *Orchestrator) { o.dial = d }
}

// New creates an orchestrator for the configured tool servers. No
// connections are made until Connect.
func New(cfg *config.ToolsConfig, logger *logging.Logger, opts ...Option) *Orchestrator {
	endpoints := make(map[string]string, len(cfg.Servers))
	for name, url := range cfg.Servers {
		endpoints[name] = url
	}
	o := &Orchestrator{
		sessions:      map[string]session{},
		endpoints:     endpoints,
		defaultServer: cfg.DefaultServer,
		dial:          mcpDial,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Connect dials every configured server. A handshake failure on any
// server fails the whole connect; already established sessions are torn
// down so a failed Connect leaves no half-connected state behind.
func (o *Orchestrator) Connect(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for name, endpoint := range o.endpoints {
		if _, ok := o.sessions[name]; ok {
			continue
		}
		sess, err := o.dial(ctx, endpoint)
		if err != nil {
			o.logger.Errorf("failed to connect to tool server %s at %s: %v", name, endpoint, err)
			o.closeAllLocked()
			return errors.Internal(fmt.Errorf("tool server %s unreachable: %w", name, err))
		}
		o.logger.Infof("connected to tool server %s at %s", name, endpoint)
		o.sessions[name] = sess
	}
	return nil
}

// Close shuts down all sessions.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closeAllLocked()
}

func (o *Orchestrator) closeAllLocked() error {
	var firstErr error
	for name, sess := range o.sessions {
		if err := sess.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(o.sessions, name)
	}
	return firstErr
}

// ListAllTools queries every connected server and returns the combined
// registry. Tool names are namespaced "server__tool" so identically named
// tools on different servers never collide. A server that errors during
// discovery fails the whole listing; partial catalogues are never
// returned silently. The result is sorted by name so the model sees a
// stable tool order.
func (o *Orchestrator) ListAllTools(ctx context.Context) ([]model.ToolSpec, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var specs []model.ToolSpec
	for name, sess := range o.sessions {
		resp, err := sess.ListTools(ctx, nil)
		if err != nil {
			o.logger.Errorf("failed to list tools for server %s: %v", name, err)
			return nil, fmt.Errorf("list tools on server %s: %w", name, err)
		}
		for _, tl := range resp.Tools {
			var params map[string]interface{}
			if tl.InputSchema != nil {
				raw, err := json.Marshal(tl.InputSchema)
				if err != nil {
					return nil, fmt.Errorf("marshal input schema for tool %s on server %s: %w", tl.Name, name, err)
				}
				if err := json.Unmarshal(raw, &params); err != nil {
					return nil, fmt.Errorf("decode input schema for tool %s on server %s: %w", tl.Name, name, err)
				}
			}
			specs = append(specs, model.ToolSpec{
				Server:      name,
				Name:        model.NamespacedName(name, tl.Name),
				BareName:    tl.Name,
				Description: tl.Description,
				InputSchema: params,
			})
		}
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs, nil
}

// Invoke routes one tool call to its owning server. Failures never
// surface as Go errors: transport problems, unknown servers and
// tool-level errors all come back as a result with IsError set so the
// conversation can continue.
func (o *Orchestrator) Invoke(ctx context.Context, call model.ToolCallRequest) model.ToolCallResult {
	server, bare := model.SplitToolName(call.ToolName, o.defaultServer)

	o.mu.RLock()
	sess, ok := o.sessions[server]
	o.mu.RUnlock()
	if !ok {
		return errResult(call, errors.NotFound("tool server", server))
	}

	args := call.Args
	if args == nil {
		args = map[string]interface{}{}
	}
	res, err := sess.CallTool(ctx, &mcp.CallToolParams{
		Name:      bare,
		Arguments: args,
	})
	if err != nil {
		o.logger.Errorf("tool %s failed on server %s: %v", bare, server, err)
		return errResult(call, err)
	}

	content := flattenContent(res.Content)
	if res.IsError {
		return model.ToolCallResult{
			CallID:   call.CallID,
			ToolName: call.ToolName,
			Content:  "Error: " + content,
			IsError:  true,
		}
	}

	result := model.ToolCallResult{
		CallID:   call.CallID,
		ToolName: call.ToolName,
		Content:  content,
	}
	if sc, ok := res.StructuredContent.(map[string]interface{}); ok {
		result.Structured = sc
	}
	return result
}

// InvokeAll executes a batch of tool calls concurrently. Results come
// back in request order; each result carries its request's call id so
// callers can also correlate positionally-unordered consumers.
func (o *Orchestrator) InvokeAll(ctx context.Context, calls []model.ToolCallRequest) []model.ToolCallResult {
	results := make([]model.ToolCallResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call model.ToolCallRequest) {
			defer wg.Done()
			results[i] = o.Invoke(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return results
}

// Ping probes every connected server and reports per-server health.
func (o *Orchestrator) Ping(ctx context.Context) map[string]error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make(map[string]error, len(o.sessions))
	for name, sess := range o.sessions {
		out[name] = sess.Ping(ctx, nil)
	}
	return out
}

// Servers returns the configured server names, connected or not.
func (o *Orchestrator) Servers() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	names := make([]string, 0, len(o.endpoints))
	for name := range o.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func errResult(call model.ToolCallRequest, err error) model.ToolCallResult {
	return model.ToolCallResult{
		CallID:   call.CallID,
		ToolName: call.ToolName,
		Content:  "Error: " + err.Error(),
		IsError:  true,
	}
}

// flattenContent joins the textual blocks of a tool response. Non-text
// blocks are serialized so nothing is silently dropped.
func flattenContent(blocks []mcp.Content) string {
	var parts []string
	for _, block := range blocks {
		switch b := block.(type) {
		case *mcp.TextContent:
			parts = append(parts, b.Text)
		default:
			if raw, err := json.Marshal(block); err == nil {
				parts = append(parts, string(raw))
			}
		}
	}
	return strings.Join(parts, "\n")
}
