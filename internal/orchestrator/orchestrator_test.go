// SPDX-License-Identifier: AGPL-3.0-only
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/config"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/logging"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Options{Output: io.Discard, Level: logging.Error})
}

// startServer runs an in-memory MCP server and returns a dialer entry
// for it keyed by the fake endpoint name.
func startServer(t *testing.T, srv *mcp.Server) session {
	t.Helper()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	go func() {
		_ = srv.Run(context.Background(), serverTransport)
	}()
	cli := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "1.0.0"}, nil)
	sess, err := cli.Connect(context.Background(), clientTransport, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func echoServer(name string, toolNames ...string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: name, Version: "1.0.0"}, nil)
	for _, tn := range toolNames {
		toolName := tn
		srv.AddTool(&mcp.Tool{
			Name:        toolName,
			Description: "test tool " + toolName,
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"q": map[string]interface{}{"type": "string"},
				},
			},
		}, func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args map[string]interface{}
			_ = json.Unmarshal(req.Params.Arguments, &args)
			payload, _ := json.Marshal(map[string]interface{}{"tool": toolName, "args": args})
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
			}, nil
		})
	}
	return srv
}

func newTestOrchestrator(t *testing.T, servers map[string]*mcp.Server) *Orchestrator {
	t.Helper()
	sessions := map[string]session{}
	endpoints := map[string]string{}
	for name, srv := range servers {
		sessions[name] = startServer(t, srv)
		endpoints[name] = "mem://" + name
	}
	cfg := &config.ToolsConfig{Servers: endpoints, DefaultServer: "admin_agent"}
	o := New(cfg, testLogger(), WithDialer(func(_ context.Context, endpoint string) (session, error) {
		name := strings.TrimPrefix(endpoint, "mem://")
		sess, ok := sessions[name]
		if !ok {
			return nil, fmt.Errorf("no server at %s", endpoint)
		}
		return sess, nil
	}))
	if err := o.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	return o
}

func TestListAllToolsNamespacesAndSorts(t *testing.T) {
	o := newTestOrchestrator(t, map[string]*mcp.Server{
		"admin_agent": echoServer("admin_agent", "fetch_products", "count_products"),
		"warehouse":   echoServer("warehouse", "fetch_products"),
	})

	tools, err := o.ListAllTools(context.Background())
	if err != nil {
		t.Fatalf("ListAllTools failed: %v", err)
	}
	if len(tools) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(tools))
	}
	want := []string{
		"admin_agent__count_products",
		"admin_agent__fetch_products",
		"warehouse__fetch_products",
	}
	for i, spec := range tools {
		if spec.Name != want[i] {
			t.Errorf("tools[%d].Name = %q, want %q", i, spec.Name, want[i])
		}
		if spec.InputSchema["type"] != "object" {
			t.Errorf("tools[%d] schema type = %v", i, spec.InputSchema["type"])
		}
	}
	if tools[2].Server != "warehouse" || tools[2].BareName != "fetch_products" {
		t.Errorf("tools[2] = %+v", tools[2])
	}
}

func TestInvokeRoutesNamespacedName(t *testing.T) {
	o := newTestOrchestrator(t, map[string]*mcp.Server{
		"admin_agent": echoServer("admin_agent", "fetch_products"),
		"warehouse":   echoServer("warehouse", "list_batches"),
	})

	res := o.Invoke(context.Background(), model.ToolCallRequest{
		CallID:   "c1",
		ToolName: "warehouse__list_batches",
		Args:     map[string]interface{}{"q": "tomato"},
	})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content)
	}
	if res.CallID != "c1" || res.ToolName != "warehouse__list_batches" {
		t.Errorf("correlation fields lost: %+v", res)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(res.Content), &payload); err != nil {
		t.Fatalf("content not JSON: %v", err)
	}
	if payload["tool"] != "list_batches" {
		t.Errorf("routed to wrong tool: %v", payload["tool"])
	}
}

func TestInvokeBareNameUsesDefaultServer(t *testing.T) {
	o := newTestOrchestrator(t, map[string]*mcp.Server{
		"admin_agent": echoServer("admin_agent", "fetch_products"),
	})

	res := o.Invoke(context.Background(), model.ToolCallRequest{
		CallID:   "c2",
		ToolName: "fetch_products",
	})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content)
	}
}

func TestInvokeUnknownServerYieldsErrorResult(t *testing.T) {
	o := newTestOrchestrator(t, map[string]*mcp.Server{
		"admin_agent": echoServer("admin_agent", "fetch_products"),
	})

	res := o.Invoke(context.Background(), model.ToolCallRequest{
		CallID:   "c3",
		ToolName: "nowhere__anything",
	})
	if !res.IsError {
		t.Fatal("expected error result for unknown server")
	}
	if !strings.HasPrefix(res.Content, "Error: ") {
		t.Errorf("content = %q, want Error: prefix", res.Content)
	}
	if res.CallID != "c3" {
		t.Errorf("error result lost call id: %q", res.CallID)
	}
}

func TestInvokeToolErrorBecomesErrorResult(t *testing.T) {
	srv := mcp.NewServer(&mcp.Implementation{Name: "admin_agent", Version: "1.0.0"}, nil)
	srv.AddTool(&mcp.Tool{
		Name:        "broken_tool",
		Description: "always fails",
		InputSchema: map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
	}, func(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "database unavailable"}},
			IsError: true,
		}, nil
	})
	o := newTestOrchestrator(t, map[string]*mcp.Server{"admin_agent": srv})

	res := o.Invoke(context.Background(), model.ToolCallRequest{CallID: "c4", ToolName: "broken_tool"})
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if res.Content != "Error: database unavailable" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestInvokeAllRunsConcurrentlyAndPreservesOrder(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := mcp.NewServer(&mcp.Implementation{Name: "admin_agent", Version: "1.0.0"}, nil)
	srv.AddTool(&mcp.Tool{
		Name:        "echo",
		Description: "echoes its id argument",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{"type": "string"},
			},
		},
	}, func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		defer inFlight.Add(-1)
		var args map[string]interface{}
		_ = json.Unmarshal(req.Params.Arguments, &args)
		id, _ := args["id"].(string)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: id}},
		}, nil
	})
	o := newTestOrchestrator(t, map[string]*mcp.Server{"admin_agent": srv})

	calls := make([]model.ToolCallRequest, 5)
	for i := range calls {
		calls[i] = model.ToolCallRequest{
			CallID:   fmt.Sprintf("call_%d", i),
			ToolName: "echo",
			Args:     map[string]interface{}{"id": fmt.Sprintf("r%d", i)},
		}
	}
	results := o.InvokeAll(context.Background(), calls)
	if len(results) != len(calls) {
		t.Fatalf("expected %d results, got %d", len(calls), len(results))
	}
	for i, res := range results {
		if res.CallID != calls[i].CallID {
			t.Errorf("results[%d].CallID = %q, want %q", i, res.CallID, calls[i].CallID)
		}
		if res.Content != fmt.Sprintf("r%d", i) {
			t.Errorf("results[%d].Content = %q", i, res.Content)
		}
	}
}

func TestPingReportsPerServer(t *testing.T) {
	o := newTestOrchestrator(t, map[string]*mcp.Server{
		"admin_agent": echoServer("admin_agent", "fetch_products"),
		"warehouse":   echoServer("warehouse", "list_batches"),
	})

	health := o.Ping(context.Background())
	if len(health) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(health))
	}
	for name, err := range health {
		if err != nil {
			t.Errorf("server %s unhealthy: %v", name, err)
		}
	}
}

func TestConnectFailsWhenNoServerReachable(t *testing.T) {
	cfg := &config.ToolsConfig{
		Servers:       map[string]string{"admin_agent": "mem://gone"},
		DefaultServer: "admin_agent",
	}
	o := New(cfg, testLogger(), WithDialer(func(_ context.Context, endpoint string) (session, error) {
		return nil, fmt.Errorf("connection refused")
	}))
	if err := o.Connect(context.Background()); err == nil {
		t.Fatal("expected Connect to fail with no reachable server")
	}
}

type closeTrackingSession struct {
	session
	closed atomic.Bool
}

func (c *closeTrackingSession) Close() error {
	c.closed.Store(true)
	return c.session.Close()
}

func TestConnectFailsWhenAnyServerUnreachable(t *testing.T) {
	good := &closeTrackingSession{session: startServer(t, echoServer("admin_agent", "fetch_products"))}
	cfg := &config.ToolsConfig{
		Servers: map[string]string{
			"admin_agent": "mem://admin_agent",
			"warehouse":   "mem://warehouse",
		},
		DefaultServer: "admin_agent",
	}
	o := New(cfg, testLogger(), WithDialer(func(_ context.Context, endpoint string) (session, error) {
		if endpoint == "mem://admin_agent" {
			return good, nil
		}
		return nil, fmt.Errorf("connection refused")
	}))
	if err := o.Connect(context.Background()); err == nil {
		t.Fatal("expected Connect to fail when one server is unreachable")
	}
	o.mu.RLock()
	remaining := len(o.sessions)
	o.mu.RUnlock()
	if remaining != 0 {
		t.Errorf("expected no sessions after failed Connect, got %d", remaining)
	}
}

func TestServersListsConfiguredNames(t *testing.T) {
	o := newTestOrchestrator(t, map[string]*mcp.Server{
		"warehouse":   echoServer("warehouse", "a"),
		"admin_agent": echoServer("admin_agent", "b"),
	})
	names := o.Servers()
	if len(names) != 2 || names[0] != "admin_agent" || names[1] != "warehouse" {
		t.Errorf("Servers() = %v", names)
	}
}
