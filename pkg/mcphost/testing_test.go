package mcphost

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testServer hosts an in-process MCP server that clients reach through
// injected in-memory transports, standing in for a real subprocess or remote
// endpoint.
type testServer struct {
	server *mcp.Server

	failDials atomic.Bool
	dials     atomic.Int32

	mu       sync.Mutex
	sessions []*mcp.ServerSession
}

func newTestServer() *testServer {
	return &testServer{
		server: mcp.NewServer(&mcp.Implementation{Name: "test-server", Version: "0.0.1"}, nil),
	}
}

// addEchoTool registers a tool that echoes its "text" argument.
func (s *testServer) addEchoTool(name string) {
	s.server.AddTool(&mcp.Tool{
		Name:        name,
		Description: "echoes the text argument",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"text": {Type: "string", Description: "text to echo"},
			},
			Required: []string{"text"},
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Text string `json:"text"`
		}
		if req.Params != nil && req.Params.Arguments != nil {
			_ = unmarshalArgs(req.Params.Arguments, &args)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: args.Text}},
		}, nil
	})
}

// addStaticTool registers a tool that always returns the given content.
func (s *testServer) addStaticTool(name string, content ...mcp.Content) {
	s.server.AddTool(&mcp.Tool{
		Name:        name,
		Description: "returns canned content",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return &mcp.CallToolResult{Content: content}, nil
	})
}

// addResource registers a readable resource with fixed contents.
func (s *testServer) addResource(res *mcp.Resource, contents ...*mcp.ResourceContents) {
	s.server.AddResource(res, func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return &mcp.ReadResourceResult{Contents: contents}, nil
	})
}

// addBrokenResource registers a resource whose reads always fail.
func (s *testServer) addBrokenResource(res *mcp.Resource) {
	s.server.AddResource(res, func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return nil, errors.New("resource backend unavailable")
	})
}

// builder returns a transportBuilder wiring clients to this server over
// fresh in-memory transports.
func (s *testServer) builder() transportBuilder {
	return func(string, *ServerConfig) (mcp.Transport, error) {
		s.dials.Add(1)
		if s.failDials.Load() {
			return nil, errors.New("transport unavailable")
		}
		clientTransport, serverTransport := mcp.NewInMemoryTransports()
		session, err := s.server.Connect(context.Background(), serverTransport, nil)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.sessions = append(s.sessions, session)
		s.mu.Unlock()
		return clientTransport, nil
	}
}

// crash closes every live server session, simulating a server crash.
func (s *testServer) crash() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = nil
	s.mu.Unlock()
	for _, session := range sessions {
		_ = session.Close()
	}
}

// newTestClient builds a client wired to the test server.
func newTestClient(t *testing.T, name string, cfg *ServerConfig, ts *testServer) *Client {
	t.Helper()
	if cfg == nil {
		cfg = &ServerConfig{Transport: TransportStdio, Command: "test-server"}
	}
	client := NewClient(name, cfg, testLogger())
	client.buildTransport = ts.builder()
	t.Cleanup(func() { _ = client.Disconnect() })
	return client
}

func unmarshalArgs(raw json.RawMessage, v any) error {
	return json.Unmarshal(raw, v)
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }
