package mcphost

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/oklog/ulid/v2"
)

// ParamType is the native parameter type vocabulary exposed to the agent.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
	// TypeAny is the open fallback for schema types this bridge does not
	// recognize; unknown types degrade rather than fail.
	TypeAny ParamType = "any"
)

// ParamSpec is the native description of one tool parameter.
type ParamSpec struct {
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required,omitempty"`
	// Enum closes a string parameter over a fixed set of literals.
	Enum       []string              `json:"enum,omitempty"`
	Items      *ParamSpec            `json:"items,omitempty"`
	Properties map[string]*ParamSpec `json:"properties,omitempty"`
}

// ConvertSchema maps a discovered tool's JSON-Schema input schema to native
// parameter specs. An empty or non-object schema degrades to an empty
// parameter set; required-vs-optional follows the schema's required list
// exactly.
func ConvertSchema(schema *jsonschema.Schema) map[string]*ParamSpec {
	if schema == nil || schemaType(schema) != "object" || len(schema.Properties) == 0 {
		return map[string]*ParamSpec{}
	}
	return convertObject(schema)
}

func convertObject(schema *jsonschema.Schema) map[string]*ParamSpec {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}
	out := make(map[string]*ParamSpec, len(schema.Properties))
	for name, prop := range schema.Properties {
		out[name] = convertProperty(prop, required[name])
	}
	return out
}

func convertProperty(schema *jsonschema.Schema, required bool) *ParamSpec {
	spec := &ParamSpec{Type: TypeAny, Required: required}
	if schema == nil {
		return spec
	}
	spec.Description = schema.Description

	switch schemaType(schema) {
	case "string":
		spec.Type = TypeString
		for _, value := range schema.Enum {
			spec.Enum = append(spec.Enum, fmt.Sprint(value))
		}
	case "number":
		spec.Type = TypeNumber
	case "integer":
		spec.Type = TypeInteger
	case "boolean":
		spec.Type = TypeBoolean
	case "array":
		spec.Type = TypeArray
		if schema.Items != nil {
			spec.Items = convertProperty(schema.Items, false)
		}
	case "object":
		spec.Type = TypeObject
		if len(schema.Properties) > 0 {
			spec.Properties = convertObject(schema)
		}
	}
	return spec
}

// schemaType normalizes the schema's type declaration, which JSON Schema
// allows as either a single string or a list.
func schemaType(schema *jsonschema.Schema) string {
	if schema.Type != "" {
		return schema.Type
	}
	if len(schema.Types) == 1 {
		return schema.Types[0]
	}
	return ""
}

// ExternalContent attributes a tool result to its untrusted origin.
type ExternalContent struct {
	Untrusted bool   `json:"untrusted"`
	Source    string `json:"source"`
	Server    string `json:"server"`
	Tool      string `json:"tool"`
	Wrapped   bool   `json:"wrapped"`
}

// ToolResultDetails carries structured metadata alongside a tool result.
type ToolResultDetails struct {
	Error           bool             `json:"error,omitempty"`
	ExternalContent *ExternalContent `json:"externalContent,omitempty"`
}

// ToolResult is the always-successful value returned by BridgedTool.Execute.
// Failures are embedded as state, never raised, so a single tool failure
// cannot abort the agent's turn.
type ToolResult struct {
	CallID  string            `json:"callId"`
	Text    string            `json:"text"`
	Details ToolResultDetails `json:"details"`
}

// BridgedTool is the agent-facing wrapper around one discovered MCP tool. It
// is stateless: it holds only a reference to its client and the original
// tool name, and is recomputed fresh on every Manager.Tools call.
type BridgedTool struct {
	// Name is the agent-side tool name, "mcp_{prefix}_{tool}". Cross-server
	// collisions are distinguished by prefix, not deduplicated.
	Name        string
	Description string
	// Parameters is the native rendering of the tool's input schema.
	Parameters map[string]*ParamSpec
	// InputSchema preserves the original JSON Schema for consumers that
	// republish the tool (see pkg/agentgateway).
	InputSchema *jsonschema.Schema

	client *Client
	server string
	tool   string
	logger *slog.Logger
}

// BridgeTool wraps a discovered tool for agent consumption. The name prefix
// defaults to the server's config key; the description is prefixed with the
// originating server name so the agent can tell collision twins apart.
func BridgeTool(client *Client, tool *mcp.Tool, prefix string, logger *slog.Logger) *BridgedTool {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = client.Name()
	}
	return &BridgedTool{
		Name:        fmt.Sprintf("mcp_%s_%s", prefix, tool.Name),
		Description: fmt.Sprintf("[%s] %s", client.Name(), tool.Description),
		Parameters:  ConvertSchema(tool.InputSchema),
		InputSchema: tool.InputSchema,
		client:      client,
		server:      client.Name(),
		tool:        tool.Name,
		logger:      logger,
	}
}

// Server returns the originating server's config key.
func (b *BridgedTool) Server() string { return b.server }

// ToolName returns the tool's original (unprefixed) name on the server.
func (b *BridgedTool) ToolName() string { return b.tool }

// Execute invokes the underlying tool. It never returns an error: transport
// failures, timeouts, and not-ready states all come back as an ordinary
// result whose text names the server, the tool, and the failure. Successful
// output is flattened to text, scanned for suspicious phrasing (warn-only),
// and wrapped in the untrusted-content envelope before it is returned.
func (b *BridgedTool) Execute(ctx context.Context, callID string, params map[string]any) *ToolResult {
	if callID == "" {
		callID = ulid.Make().String()
	}

	res, err := b.client.CallTool(ctx, b.tool, params)
	if err != nil {
		b.logger.Warn("MCP tool call failed",
			"call_id", callID, "server", b.server, "tool", b.tool, "error", err)
		return &ToolResult{
			CallID: callID,
			Text: fmt.Sprintf("Tool %q on MCP server %q failed: %v",
				b.tool, b.server, err),
			Details: ToolResultDetails{Error: true},
		}
	}

	text := flattenContent(res.Content)
	if res.IsError {
		b.logger.Warn("MCP tool reported an error result",
			"call_id", callID, "server", b.server, "tool", b.tool)
	}
	if phrases := scanSuspicious(text); len(phrases) > 0 {
		b.logger.Warn("suspicious phrasing in MCP tool output",
			"call_id", callID, "server", b.server, "tool", b.tool,
			"phrases", strings.Join(phrases, ", "))
	}

	return &ToolResult{
		CallID: callID,
		Text:   WrapUntrusted(fmt.Sprintf("tool %q on MCP server %q", b.tool, b.server), text),
		Details: ToolResultDetails{
			Error: res.IsError,
			ExternalContent: &ExternalContent{
				Untrusted: true,
				Source:    "mcp_server",
				Server:    b.server,
				Tool:      b.tool,
				Wrapped:   true,
			},
		},
	}
}

// flattenContent joins text content items and replaces non-text items with
// inline placeholders. Raw binary never passes through.
func flattenContent(content []mcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, item := range content {
		switch v := item.(type) {
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[Image: %s]", v.MIMEType))
		case *mcp.AudioContent:
			parts = append(parts, fmt.Sprintf("[Audio: %s]", v.MIMEType))
		case *mcp.ResourceLink:
			parts = append(parts, fmt.Sprintf("[Resource link: %s]", v.URI))
		case *mcp.EmbeddedResource:
			if v.Resource != nil && v.Resource.Text != "" {
				parts = append(parts, v.Resource.Text)
			} else if v.Resource != nil {
				parts = append(parts, fmt.Sprintf("[Embedded resource: %s]", v.Resource.URI))
			}
		}
	}
	return strings.Join(parts, "\n")
}
