package mcphost

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Status represents the lifecycle of a managed connection.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusReady        Status = "ready"
	StatusError        Status = "error"
	StatusClosed       Status = "closed"
)

const (
	restartBaseDelay = time.Second
	restartMaxDelay  = 30 * time.Second
)

// clientInfo identifies this host to MCP servers during initialization.
var clientInfo = &mcp.Implementation{Name: "openclaw", Version: "1.0.0"}

// Client owns one connection to one MCP server: it dials the transport,
// discovers tools as part of reaching ready, detects crashes through the
// session's wait channel, and schedules exponential-backoff restarts.
//
// State transitions: disconnected → connecting → {ready | error};
// ready → error on unexpected transport close; error → connecting via a
// scheduled restart; any state → closed on Disconnect (terminal, cancels any
// pending restart).
type Client struct {
	name   string
	config *ServerConfig
	logger *slog.Logger

	buildTransport transportBuilder

	mu           sync.Mutex
	status       Status
	session      *mcp.ClientSession
	tools        []*mcp.Tool
	restartCount int
	restartTimer *time.Timer
	// gen invalidates stale monitor goroutines and in-flight connects after
	// a newer connect or an intentional teardown.
	gen uint64
}

// NewClient creates a client for one configured server. The client starts
// disconnected; nothing is spawned or dialed until Connect.
func NewClient(name string, cfg *ServerConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		name:           name,
		config:         cfg,
		logger:         logger.With("mcp_server", name),
		buildTransport: buildTransport,
		status:         StatusDisconnected,
	}
}

// Name returns the server's config key.
func (c *Client) Name() string { return c.name }

// Status returns the current lifecycle state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// DiscoveredTools returns the tool snapshot from the last successful connect.
// The snapshot is replaced wholesale on each reconnect.
func (c *Client) DiscoveredTools() []*mcp.Tool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*mcp.Tool(nil), c.tools...)
}

// Connect dials the server, runs the discovery handshake, and transitions to
// ready. On any failure the client is left in the error state (scheduling a
// restart when policy allows) and the error is returned: Connect always
// reaches ready or error before returning.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.cancelRestartLocked()
	c.status = StatusConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	session, tools, err := c.dial(ctx)
	if err != nil {
		c.handleDisconnect(gen)
		return fmt.Errorf("mcphost: connect %q: %w", c.name, err)
	}

	c.mu.Lock()
	if c.gen != gen || c.status == StatusClosed {
		// Torn down or superseded while dialing.
		c.mu.Unlock()
		_ = session.Close()
		return fmt.Errorf("mcphost: connect %q: client closed during connect", c.name)
	}
	c.session = session
	c.tools = tools
	c.status = StatusReady
	c.mu.Unlock()

	c.logger.Info("MCP server ready", "tools", len(tools))
	go c.monitor(session, gen)
	return nil
}

// dial builds the transport, establishes the SDK session, and performs
// discovery. The whole sequence is bounded by the config's connect timeout.
func (c *Client) dial(ctx context.Context) (*mcp.ClientSession, []*mcp.Tool, error) {
	transport, err := c.buildTransport(c.name, c.config)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.connectTimeout())
	defer cancel()

	client := mcp.NewClient(clientInfo, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, nil, err
	}

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		if !methodUnsupported(err) {
			_ = session.Close()
			return nil, nil, fmt.Errorf("discover tools: %w", err)
		}
		return session, nil, nil
	}
	return session, res.Tools, nil
}

// monitor waits for the session to end and routes unexpected closes through
// handleDisconnect. Intentional teardown advances gen first, making this
// goroutine a no-op.
func (c *Client) monitor(session *mcp.ClientSession, gen uint64) {
	if err := session.Wait(); err != nil {
		c.logger.Warn("MCP session ended", "error", err)
	}
	c.handleDisconnect(gen)
}

// handleDisconnect reacts to a transport loss: it is a no-op when the client
// was intentionally closed (or the event is stale), otherwise it moves the
// client to error and, when restart policy allows, schedules a reconnect
// after min(1s·2^restartCount, 30s), incrementing restartCount before the
// attempt. Exceeding maxRestarts leaves the client permanently in error.
func (c *Client) handleDisconnect(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusClosed || gen != c.gen {
		return
	}
	c.status = StatusError
	c.session = nil

	if !c.config.restartOnCrash() {
		c.logger.Warn("MCP server disconnected, restart disabled")
		return
	}
	if c.restartCount >= c.config.maxRestarts() {
		c.logger.Error("MCP server disconnected, restart budget exhausted",
			"restarts", c.restartCount)
		return
	}

	delay := restartDelay(c.restartCount)
	c.restartCount++
	attempt := c.restartCount
	c.logger.Warn("MCP server disconnected, scheduling restart",
		"attempt", attempt, "delay", delay)

	c.cancelRestartLocked()
	c.restartTimer = time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.config.connectTimeout())
		defer cancel()
		if err := c.Connect(ctx); err != nil {
			c.logger.Warn("MCP restart attempt failed", "attempt", attempt, "error", err)
		}
	})
}

// restartDelay computes the exponential backoff for the nth restart.
func restartDelay(restarts int) time.Duration {
	if restarts >= 5 {
		return restartMaxDelay
	}
	delay := restartBaseDelay << uint(restarts)
	if delay > restartMaxDelay {
		return restartMaxDelay
	}
	return delay
}

// cancelRestartLocked stops any pending restart timer. Runs at the start of
// every Connect and at Disconnect so two reconnect timers can never overlap.
// Caller must hold c.mu.
func (c *Client) cancelRestartLocked() {
	if c.restartTimer != nil {
		c.restartTimer.Stop()
		c.restartTimer = nil
	}
}

// Disconnect is the terminal teardown path: status moves to closed first
// (suppressing crash handling), any pending restart timer is cancelled so a
// client torn down mid-backoff never resurrects, and the session is closed.
// Safe to call repeatedly.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.status = StatusClosed
	c.gen++
	c.cancelRestartLocked()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session == nil {
		return nil
	}
	if err := session.Close(); err != nil {
		return fmt.Errorf("mcphost: disconnect %q: %w", c.name, err)
	}
	return nil
}

// failStartup marks the client as failed before any connection was attempted
// (for example when secret resolution fails). No restart is scheduled.
func (c *Client) failStartup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusClosed {
		return
	}
	c.status = StatusError
}

// readySession returns the live session, or a NotReadyError outside ready.
func (c *Client) readySession() (*mcp.ClientSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusReady || c.session == nil {
		return nil, &NotReadyError{Server: c.name, Status: c.status}
	}
	return c.session, nil
}

// CallTool invokes a tool on the server with a per-call timeout. It requires
// the client to be ready.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	session, err := c.readySession()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.config.toolTimeout())
	defer cancel()
	return session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
}

// ListResources lists the server's resources. Servers without resource
// support yield an empty list.
func (c *Client) ListResources(ctx context.Context) ([]*mcp.Resource, error) {
	session, err := c.readySession()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.config.toolTimeout())
	defer cancel()
	res, err := session.ListResources(ctx, nil)
	if err != nil {
		if methodUnsupported(err) {
			return nil, nil
		}
		return nil, err
	}
	return res.Resources, nil
}

// ReadResource reads a single resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	session, err := c.readySession()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.config.toolTimeout())
	defer cancel()
	return session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
}

// methodUnsupported reports whether an error looks like the server declining
// a method it does not implement, which is normal for servers that expose
// only tools or only resources.
func methodUnsupported(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "method not found") ||
		strings.Contains(lower, "not implemented") ||
		strings.Contains(lower, "unsupported") ||
		strings.Contains(lower, "does not support")
}
