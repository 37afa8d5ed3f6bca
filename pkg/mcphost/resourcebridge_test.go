package mcphost

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverResourcesDisabled(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	ts.addResource(
		&mcp.Resource{URI: "docs://readme", Name: "readme"},
		&mcp.ResourceContents{URI: "docs://readme", MIMEType: "text/plain", Text: "hi"},
	)
	cfg := &ServerConfig{Transport: TransportStdio, Command: "srv", Resources: boolPtr(false)}
	client := newTestClient(t, "docs", cfg, ts)
	require.NoError(t, client.Connect(context.Background()))

	resources, err := DiscoverResources(context.Background(), client)
	require.NoError(t, err)
	assert.Empty(t, resources, "disabled resources must short-circuit to empty")
}

func TestDiscoverResourcesFilterIsExact(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	ts.addResource(
		&mcp.Resource{URI: "docs://a", Name: "a"},
		&mcp.ResourceContents{URI: "docs://a", MIMEType: "text/plain", Text: "A"},
	)
	ts.addResource(
		&mcp.Resource{URI: "docs://b", Name: "b"},
		&mcp.ResourceContents{URI: "docs://b", MIMEType: "text/plain", Text: "B"},
	)
	cfg := &ServerConfig{
		Transport:      TransportStdio,
		Command:        "srv",
		ResourceFilter: []string{"docs://a", "docs://*"},
	}
	client := newTestClient(t, "docs", cfg, ts)
	require.NoError(t, client.Connect(context.Background()))

	resources, err := DiscoverResources(context.Background(), client)
	require.NoError(t, err)
	require.Len(t, resources, 1, "filter is exact membership, no wildcards")
	assert.Equal(t, "docs://a", resources[0].URI)
}

func TestReadResourceTextJoinsAndWraps(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	res := &mcp.Resource{URI: "docs://multi", Name: "multi"}
	ts.addResource(res,
		&mcp.ResourceContents{URI: "docs://multi", MIMEType: "text/plain", Text: "part one"},
		&mcp.ResourceContents{URI: "docs://multi", MIMEType: "application/octet-stream", Blob: []byte{0xde, 0xad}},
		&mcp.ResourceContents{URI: "docs://multi", MIMEType: "text/plain", Text: "part two"},
	)
	client := newTestClient(t, "docs", nil, ts)
	require.NoError(t, client.Connect(context.Background()))

	text, ok := ReadResourceText(context.Background(), client, res, testLogger())
	require.True(t, ok)
	assert.Contains(t, text, "part one")
	assert.Contains(t, text, "part two")
	assert.Contains(t, text, "[Binary resource: application/octet-stream, docs://multi]")
	assert.NotContains(t, text, "\xde", "raw binary must never be forwarded")
	assert.Equal(t, 1, strings.Count(text, envelopeStart))
	assert.Equal(t, 1, strings.Count(text, envelopeEnd))
	assert.Contains(t, text, `Source: resource "docs://multi" on MCP server "docs"`)
}

func TestReadResourceTextFailureIsSentinel(t *testing.T) {
	t.Parallel()

	ts := newTestServer()
	res := &mcp.Resource{URI: "docs://broken", Name: "broken"}
	ts.addBrokenResource(res)
	client := newTestClient(t, "docs", nil, ts)
	require.NoError(t, client.Connect(context.Background()))

	text, ok := ReadResourceText(context.Background(), client, res, testLogger())
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestBuildResourceContext(t *testing.T) {
	t.Parallel()

	t.Run("zero resources", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		ts.addEchoTool("echo") // tools only, no resources
		client := newTestClient(t, "docs", nil, ts)
		require.NoError(t, client.Connect(context.Background()))

		assert.Empty(t, BuildResourceContext(context.Background(), client, testLogger()))
	})

	t.Run("only resource fails to read", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		ts.addBrokenResource(&mcp.Resource{URI: "docs://broken", Name: "broken"})
		client := newTestClient(t, "docs", nil, ts)
		require.NoError(t, client.Connect(context.Background()))

		assert.Empty(t, BuildResourceContext(context.Background(), client, testLogger()))
	})

	t.Run("two readable resources", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		ts.addResource(
			&mcp.Resource{URI: "docs://a", Name: "alpha"},
			&mcp.ResourceContents{URI: "docs://a", MIMEType: "text/plain", Text: "alpha body"},
		)
		ts.addResource(
			&mcp.Resource{URI: "docs://b", Name: "beta"},
			&mcp.ResourceContents{URI: "docs://b", MIMEType: "text/plain", Text: "beta body"},
		)
		client := newTestClient(t, "docs", nil, ts)
		require.NoError(t, client.Connect(context.Background()))

		ctx := BuildResourceContext(context.Background(), client, testLogger())
		assert.Contains(t, ctx, `## Resources from MCP server "docs"`)
		assert.Contains(t, ctx, "alpha body")
		assert.Contains(t, ctx, "beta body")
		assert.Contains(t, ctx, "### alpha (docs://a)")
		assert.Contains(t, ctx, "### beta (docs://b)")
	})

	t.Run("failed read skipped, good read kept", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		ts.addBrokenResource(&mcp.Resource{URI: "docs://broken", Name: "broken"})
		ts.addResource(
			&mcp.Resource{URI: "docs://good", Name: "good"},
			&mcp.ResourceContents{URI: "docs://good", MIMEType: "text/plain", Text: "good body"},
		)
		client := newTestClient(t, "docs", nil, ts)
		require.NoError(t, client.Connect(context.Background()))

		ctx := BuildResourceContext(context.Background(), client, testLogger())
		assert.Contains(t, ctx, "good body")
		assert.NotContains(t, ctx, "### broken")
	})
}
