package mcphost

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport identifies how a configured MCP server is reached.
type Transport string

const (
	// TransportStdio launches the server as a local subprocess speaking
	// JSON-RPC over stdin/stdout.
	TransportStdio Transport = "stdio"
	// TransportSSE contacts a remote server over Server-Sent Events.
	TransportSSE Transport = "sse"
	// TransportHTTP contacts a remote server over streamable HTTP.
	TransportHTTP Transport = "http"
)

const (
	defaultConnectTimeout = 30 * time.Second
	defaultToolTimeout    = 60 * time.Second
	defaultMaxRestarts    = 5
)

// Duration is a time.Duration that unmarshals from YAML either as a Go
// duration string ("30s", "1m") or as a bare integer number of milliseconds,
// matching how timeouts appear in agent server-config files.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	switch node.Tag {
	case "!!int":
		ms, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("mcphost: invalid duration %q: %w", node.Value, err)
		}
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	case "!!str":
		parsed, err := time.ParseDuration(node.Value)
		if err != nil {
			return fmt.Errorf("mcphost: invalid duration %q: %w", node.Value, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("mcphost: invalid duration node %q", node.Value)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServerConfig declares a single MCP server. Transport-specific fields are
// validated by ValidateConfig before any connection is attempted.
type ServerConfig struct {
	Transport Transport `yaml:"transport" json:"transport"`

	// Stdio transport fields.
	Command string            `yaml:"command,omitempty" json:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Cwd     string            `yaml:"cwd,omitempty" json:"cwd,omitempty"`

	// Remote (sse / http) transport fields.
	URL     string            `yaml:"url,omitempty" json:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// Enabled defaults to true. Disabled servers are absent from the
	// Manager entirely, not merely flagged.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	// Lazy servers are registered (and have their secrets resolved) during
	// Manager.Start but are not dialed until Manager.Connect is called.
	Lazy bool `yaml:"lazy,omitempty" json:"lazy,omitempty"`

	// Timeout bounds connect plus discovery. Defaults to 30s.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// ToolTimeout bounds each individual tool call and resource read.
	// Defaults to 60s.
	ToolTimeout Duration `yaml:"toolTimeout,omitempty" json:"toolTimeout,omitempty"`

	// RestartOnCrash defaults to true.
	RestartOnCrash *bool `yaml:"restartOnCrash,omitempty" json:"restartOnCrash,omitempty"`
	// MaxRestarts caps automatic reconnect attempts. Defaults to 5.
	MaxRestarts *int `yaml:"maxRestarts,omitempty" json:"maxRestarts,omitempty"`

	// ToolPrefix overrides the server name in bridged tool names
	// ("mcp_{prefix}_{tool}").
	ToolPrefix string `yaml:"toolPrefix,omitempty" json:"toolPrefix,omitempty"`

	// Resources defaults to true; set false to skip resource discovery.
	Resources *bool `yaml:"resources,omitempty" json:"resources,omitempty"`
	// ResourceFilter restricts discovery to exact URI membership. No
	// wildcard matching is performed.
	ResourceFilter []string `yaml:"resourceFilter,omitempty" json:"resourceFilter,omitempty"`
	// ResourceRefresh is accepted for forward compatibility. Resource reads
	// are never cached, so there is nothing to refresh yet.
	ResourceRefresh Duration `yaml:"resourceRefreshMs,omitempty" json:"resourceRefreshMs,omitempty"`
}

func (c *ServerConfig) enabled() bool {
	return c.Enabled == nil || *c.Enabled
}

func (c *ServerConfig) restartOnCrash() bool {
	return c.RestartOnCrash == nil || *c.RestartOnCrash
}

func (c *ServerConfig) maxRestarts() int {
	if c.MaxRestarts == nil {
		return defaultMaxRestarts
	}
	return *c.MaxRestarts
}

func (c *ServerConfig) connectTimeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultConnectTimeout
	}
	return c.Timeout.Std()
}

func (c *ServerConfig) toolTimeout() time.Duration {
	if c.ToolTimeout <= 0 {
		return defaultToolTimeout
	}
	return c.ToolTimeout.Std()
}

func (c *ServerConfig) resourcesEnabled() bool {
	return c.Resources == nil || *c.Resources
}

// prefix returns the tool-name prefix for a server, defaulting to the
// server's config key.
func (c *ServerConfig) prefix(serverName string) string {
	if c.ToolPrefix != "" {
		return c.ToolPrefix
	}
	return serverName
}

// ParseConfig decodes a map of server name to ServerConfig from YAML (or
// JSON, which yaml.v3 also accepts).
func ParseConfig(data []byte) (map[string]*ServerConfig, error) {
	var cfg map[string]*ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("mcphost: parse server config: %w", err)
	}
	return cfg, nil
}

// ValidateConfig enforces transport-specific required fields before anything
// connects. Disabled servers are exempt. The first offending server (in name
// order, for determinism) is reported.
func ValidateConfig(cfg map[string]*ServerConfig) error {
	names := make([]string, 0, len(cfg))
	for name := range cfg {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sc := cfg[name]
		if sc == nil {
			return &ConfigError{Server: name, Reason: "missing server configuration"}
		}
		if !sc.enabled() {
			continue
		}
		switch sc.Transport {
		case TransportStdio:
			if strings.TrimSpace(sc.Command) == "" {
				return &ConfigError{Server: name, Field: "command", Reason: "stdio transport requires a command"}
			}
		case TransportSSE, TransportHTTP:
			if strings.TrimSpace(sc.URL) == "" {
				return &ConfigError{Server: name, Field: "url", Reason: fmt.Sprintf("%s transport requires a url", sc.Transport)}
			}
		default:
			return &ConfigError{Server: name, Field: "transport", Reason: fmt.Sprintf("unknown transport %q", sc.Transport)}
		}
	}
	return nil
}
