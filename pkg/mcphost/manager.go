package mcphost

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ClientFactory builds the client for one enabled server. Injectable so tests
// can substitute clients wired to in-memory transports.
type ClientFactory func(name string, cfg *ServerConfig, logger *slog.Logger) *Client

// ManagerOptions configure a Manager instance.
type ManagerOptions struct {
	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
	// ClientFactory overrides client construction. Defaults to NewClient.
	ClientFactory ClientFactory
}

func (o *ManagerOptions) withDefaults() ManagerOptions {
	var opts ManagerOptions
	if o != nil {
		opts = *o
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ClientFactory == nil {
		opts.ClientFactory = NewClient
	}
	return opts
}

// ServerStatus is the monitoring snapshot for one owned client.
type ServerStatus struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	// ToolCount reflects the last successful discovery; 0 if the server
	// never reached ready.
	ToolCount int `json:"toolCount"`
}

// Manager owns one client per enabled server and aggregates tools and
// resource context from the servers that are currently ready. Failures local
// to one server never affect the others and never crash the Manager.
type Manager struct {
	logger  *slog.Logger
	clients map[string]*Client
	// names holds the sorted client keys so aggregation order is stable.
	names []string
}

// NewManager validates the config map (fail-fast, before any connection
// attempt) and creates exactly one client per server with enabled != false.
// Disabled servers are entirely absent from the Manager. Clients are created
// eagerly so status is queryable before Start.
func NewManager(cfg map[string]*ServerConfig, opts *ManagerOptions) (*Manager, error) {
	options := opts.withDefaults()
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	m := &Manager{
		logger:  options.Logger,
		clients: make(map[string]*Client, len(cfg)),
	}
	for name, sc := range cfg {
		if !sc.enabled() {
			continue
		}
		m.clients[name] = options.ClientFactory(name, sc, options.Logger)
		m.names = append(m.names, name)
	}
	sort.Strings(m.names)
	return m, nil
}

// Servers returns the names of all owned clients in sorted order.
func (m *Manager) Servers() []string {
	return append([]string(nil), m.names...)
}

// Client returns the owned client for a server name, or nil.
func (m *Manager) Client(name string) *Client {
	return m.clients[name]
}

// Start resolves secret:// references in every server's env/headers in
// place, then connects all non-lazy clients concurrently. Each server's
// failure is caught and logged without cancelling or delaying the others;
// Start itself never returns an error.
func (m *Manager) Start(ctx context.Context) {
	g := new(errgroup.Group)
	for _, name := range m.names {
		client := m.clients[name]
		g.Go(func() error {
			if err := ResolveSecrets(client.config); err != nil {
				m.logger.Error("secret resolution failed, server disabled for this run",
					"server", name, "error", err)
				client.failStartup()
				return nil
			}
			if client.config.Lazy {
				m.logger.Debug("lazy MCP server registered, not dialing", "server", name)
				return nil
			}
			if err := client.Connect(ctx); err != nil {
				m.logger.Error("MCP server failed to start", "server", name, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Connect dials a single owned server by name, typically one configured as
// lazy. Secrets are expected to have been resolved by Start.
func (m *Manager) Connect(ctx context.Context, name string) error {
	client, ok := m.clients[name]
	if !ok {
		return fmt.Errorf("mcphost: unknown server %q", name)
	}
	return client.Connect(ctx)
}

// Tools returns bridged tools from every client currently ready: a fresh
// snapshot on every call, never a cached list.
func (m *Manager) Tools() []*BridgedTool {
	var tools []*BridgedTool
	for _, name := range m.names {
		client := m.clients[name]
		if client.Status() != StatusReady {
			continue
		}
		prefix := client.config.prefix(name)
		for _, tool := range client.DiscoveredTools() {
			tools = append(tools, BridgeTool(client, tool, prefix, m.logger))
		}
	}
	return tools
}

// ResourceContext composes the prompt-ready resource text of every ready
// server, joining non-empty sections with blank-line separation. A single
// server's failure is logged inside BuildResourceContext and its section is
// simply omitted.
func (m *Manager) ResourceContext(ctx context.Context) string {
	var sections []string
	for _, name := range m.names {
		client := m.clients[name]
		if client.Status() != StatusReady {
			continue
		}
		if section := BuildResourceContext(ctx, client, m.logger); section != "" {
			sections = append(sections, section)
		}
	}
	return strings.Join(sections, "\n\n")
}

// Shutdown disconnects every owned client concurrently with the same
// failure-isolation pattern as Start. Safe to call multiple times.
func (m *Manager) Shutdown() {
	var wg sync.WaitGroup
	for _, name := range m.names {
		client := m.clients[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := client.Disconnect(); err != nil {
				m.logger.Warn("MCP server disconnect failed", "server", name, "error", err)
			}
		}()
	}
	wg.Wait()
}

// Status reports {name, status, toolCount} for every owned client regardless
// of state, sorted by name.
func (m *Manager) Status() []ServerStatus {
	statuses := make([]ServerStatus, 0, len(m.names))
	for _, name := range m.names {
		client := m.clients[name]
		statuses = append(statuses, ServerStatus{
			Name:      name,
			Status:    client.Status(),
			ToolCount: len(client.DiscoveredTools()),
		})
	}
	return statuses
}
