package mcphost

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// transportBuilder constructs the SDK transport for a server. The default
// builder is keyed on the config's Transport field; tests substitute
// in-memory transports.
type transportBuilder func(name string, cfg *ServerConfig) (mcp.Transport, error)

// buildTransport selects the transport variant for a validated config.
func buildTransport(name string, cfg *ServerConfig) (mcp.Transport, error) {
	switch cfg.Transport {
	case TransportStdio:
		cmd := exec.Command(cfg.Command, cfg.Args...)
		cmd.Dir = cfg.Cwd
		cmd.Env = mergeEnviron(os.Environ(), cfg.Env)
		return &mcp.CommandTransport{Command: cmd}, nil
	case TransportSSE:
		return &mcp.SSEClientTransport{Endpoint: cfg.URL, HTTPClient: headerClient(cfg.Headers)}, nil
	case TransportHTTP:
		return &mcp.StreamableClientTransport{Endpoint: cfg.URL, HTTPClient: headerClient(cfg.Headers)}, nil
	default:
		return nil, &ConfigError{Server: name, Field: "transport", Reason: fmt.Sprintf("unknown transport %q", cfg.Transport)}
	}
}

// mergeEnviron merges server-specific overrides into a base environment,
// override winning on key collision. The base slice is never mutated; each
// call produces a fresh sorted environment.
func mergeEnviron(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return append([]string(nil), base...)
	}
	merged := make(map[string]string, len(base)+len(overrides))
	for _, entry := range base {
		if key, value, ok := strings.Cut(entry, "="); ok {
			merged[key] = value
		}
	}
	for key, value := range overrides {
		merged[key] = value
	}
	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, key := range keys {
		env = append(env, key+"="+merged[key])
	}
	return env
}

// headerClient returns an *http.Client that applies the configured headers to
// every outbound request, or nil when no headers are configured so the SDK
// falls back to its default client.
func headerClient(headers map[string]string) *http.Client {
	if len(headers) == 0 {
		return nil
	}
	return &http.Client{
		Transport: &headerRoundTripper{next: http.DefaultTransport, headers: headers},
	}
}

type headerRoundTripper struct {
	next    http.RoundTripper
	headers map[string]string
}

func (rt *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	for key, value := range rt.headers {
		req.Header.Set(key, value)
	}
	return rt.next.RoundTrip(req)
}
