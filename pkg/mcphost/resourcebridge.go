package mcphost

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DiscoverResources lists the resources a server exposes, honoring the
// server's resources flag and filter. A disabled resources flag yields an
// empty list without a round-trip; a non-empty filter restricts discovery to
// exact URI membership (no wildcard matching).
func DiscoverResources(ctx context.Context, client *Client) ([]*mcp.Resource, error) {
	if !client.config.resourcesEnabled() {
		return nil, nil
	}
	resources, err := client.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	if len(client.config.ResourceFilter) == 0 {
		return resources, nil
	}
	allowed := make(map[string]bool, len(client.config.ResourceFilter))
	for _, uri := range client.config.ResourceFilter {
		allowed[uri] = true
	}
	filtered := resources[:0]
	for _, res := range resources {
		if allowed[res.URI] {
			filtered = append(filtered, res)
		}
	}
	return filtered, nil
}

// ReadResourceText reads one resource and renders it as enveloped text. Text
// contents are joined in order; binary (blob) contents are replaced with a
// placeholder, raw binary is never forwarded to the agent. On any failure a
// warning is logged and ok is false; ReadResourceText never returns an error.
func ReadResourceText(ctx context.Context, client *Client, res *mcp.Resource, logger *slog.Logger) (text string, ok bool) {
	if logger == nil {
		logger = slog.Default()
	}
	result, err := client.ReadResource(ctx, res.URI)
	if err != nil {
		logger.Warn("MCP resource read failed",
			"server", client.Name(), "uri", res.URI, "error", err)
		return "", false
	}

	parts := make([]string, 0, len(result.Contents))
	for _, contents := range result.Contents {
		switch {
		case len(contents.Blob) > 0:
			parts = append(parts, fmt.Sprintf("[Binary resource: %s, %s]", contents.MIMEType, contents.URI))
		default:
			parts = append(parts, contents.Text)
		}
	}
	source := fmt.Sprintf("resource %q on MCP server %q", res.URI, client.Name())
	return WrapUntrusted(source, strings.Join(parts, "\n")), true
}

// BuildResourceContext discovers and reads every resource a server exposes,
// sequentially, skipping failed reads, and composes one labeled section per
// resource under a single server-scoped heading. It returns the empty string
// when zero resources were discovered or every read failed; callers must
// treat "" as "nothing to inject", not as an error.
func BuildResourceContext(ctx context.Context, client *Client, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	resources, err := DiscoverResources(ctx, client)
	if err != nil {
		logger.Warn("MCP resource discovery failed",
			"server", client.Name(), "error", err)
		return ""
	}
	if len(resources) == 0 {
		return ""
	}

	sections := make([]string, 0, len(resources))
	for _, res := range resources {
		text, ok := ReadResourceText(ctx, client, res, logger)
		if !ok {
			continue
		}
		label := res.Name
		if label == "" {
			label = res.URI
		}
		sections = append(sections, fmt.Sprintf("### %s (%s)\n%s", label, res.URI, text))
	}
	if len(sections) == 0 {
		return ""
	}
	return fmt.Sprintf("## Resources from MCP server %q\n\n%s",
		client.Name(), strings.Join(sections, "\n\n"))
}
