package agentgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"

	"github.com/rish2jain/openclaw-sub000/pkg/mcphost"
)

// Gateway exposes a Streamable MCP server that fronts every bridged tool of an
// mcphost.Manager under a single HTTP endpoint.
type Gateway struct {
	manager *mcphost.Manager
	opts    Options

	server        *mcp.Server
	streamHandler *mcp.StreamableHTTPHandler
	httpHandler   http.Handler

	syncMu     sync.Mutex
	registered map[string]struct{}

	httpServerMu sync.Mutex
	httpServer   *http.Server
}

// NewGateway builds a Gateway and registers the manager's current bridged
// tools. The manager is expected to be started already; call Sync after
// connecting further servers.
func NewGateway(mgr *mcphost.Manager, opts *Options) (*Gateway, error) {
	if mgr == nil {
		return nil, fmt.Errorf("agentgateway: manager is required")
	}
	options := opts.withDefaults()
	g := &Gateway{
		manager:    mgr,
		opts:       options,
		registered: make(map[string]struct{}),
	}

	g.server = mcp.NewServer(options.Implementation, &mcp.ServerOptions{
		HasTools:     true,
		HasResources: true,
	})
	g.server.AddResource(&mcp.Resource{
		URI:         statusResourceURI,
		Name:        "server-status",
		Description: "connection status and tool counts of the managed MCP servers",
		MIMEType:    "application/json",
	}, g.handleStatusResource)
	g.streamHandler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return g.server
	}, &options.Streamable)
	g.httpHandler = g.mountHandler()

	g.Sync()
	return g, nil
}

// Handler exposes the HTTP handler that serves the Streamable endpoint.
func (g *Gateway) Handler() http.Handler {
	return g.httpHandler
}

// Sync reconciles the gateway's published tools against the manager's current
// bridged snapshot: tools from servers that dropped out of ready are removed,
// newly discovered ones are added. Safe to call from any goroutine.
func (g *Gateway) Sync() {
	tools := g.manager.Tools()

	g.syncMu.Lock()
	defer g.syncMu.Unlock()

	current := make(map[string]*mcphost.BridgedTool, len(tools))
	for _, tool := range tools {
		current[tool.Name] = tool
	}

	var removed []string
	for name := range g.registered {
		if _, ok := current[name]; !ok {
			removed = append(removed, name)
			delete(g.registered, name)
		}
	}
	if len(removed) > 0 {
		g.server.RemoveTools(removed...)
		g.opts.Logger.Info("gateway tools removed", "count", len(removed))
	}

	var added int
	for name, tool := range current {
		if _, ok := g.registered[name]; ok {
			continue
		}
		g.registered[name] = struct{}{}
		g.server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, g.makeToolHandler(tool))
		added++
	}
	if added > 0 {
		g.opts.Logger.Info("gateway tools added", "count", added)
	}
}

// makeToolHandler adapts one bridged tool into an MCP tool handler. Execute
// never fails, so the handler maps error results to IsError instead of
// returning protocol errors.
func (g *Gateway) makeToolHandler(tool *mcphost.BridgedTool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, fmt.Errorf("agentgateway: invalid arguments for %q: %w", tool.Name, err)
			}
		}
		result := tool.Execute(ctx, "", args)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result.Text}},
			IsError: result.Details.Error,
		}, nil
	}
}

// statusResourceURI names the gateway's own monitoring resource.
const statusResourceURI = "status://servers"

// handleStatusResource renders the manager's status snapshot as JSON.
func (g *Gateway) handleStatusResource(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(g.manager.Status(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("agentgateway: render status: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      statusResourceURI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// ListenAndServe runs an HTTP server until the provided context is cancelled
// or the server stops.
func (g *Gateway) ListenAndServe(ctx context.Context) error {
	g.httpServerMu.Lock()
	if g.httpServer != nil {
		srv := g.httpServer
		g.httpServerMu.Unlock()
		return fmt.Errorf("agentgateway: server already running on %s", srv.Addr)
	}
	srv := &http.Server{Addr: g.opts.Addr, Handler: g.Handler()}
	g.httpServer = srv
	g.httpServerMu.Unlock()
	defer func() {
		g.httpServerMu.Lock()
		if g.httpServer == srv {
			g.httpServer = nil
		}
		g.httpServerMu.Unlock()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), g.opts.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops the embedded HTTP server if it is running.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.httpServerMu.Lock()
	srv := g.httpServer
	g.httpServer = nil
	g.httpServerMu.Unlock()
	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Shutdown(ctx)
}

func (g *Gateway) mountHandler() http.Handler {
	path := g.opts.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	mux := http.NewServeMux()
	mux.Handle(path, g.streamHandler)
	if !strings.HasSuffix(path, "/") {
		mux.Handle(path+"/", g.streamHandler)
	}
	if len(g.opts.AllowedOrigins) == 0 {
		return mux
	}
	return cors.New(cors.Options{
		AllowedOrigins: g.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"*"},
	}).Handler(mux)
}
