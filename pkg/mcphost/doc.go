// Package mcphost connects an agent runtime to external Model Context
// Protocol (MCP) servers and turns their tools and resources into agent-safe
// capabilities. It layers per-server connection lifecycle tracking, crash
// detection with exponential-backoff restarts, secret resolution for
// credentials embedded in server configuration, JSON-Schema parameter
// bridging, and mandatory untrusted-content wrapping on top of the
// modelcontextprotocol/go-sdk client, so callers can consume external tools
// without re-implementing the MCP plumbing or the trust boundary.
//
// # Core entry points
//
//   - Manager is the long-lived orchestration type. Construct it with
//     NewManager from a map of ServerConfig values, then call Start to resolve
//     secrets and dial every enabled server concurrently.
//   - ServerConfig declares how each MCP server is launched (stdio) or
//     contacted (sse, http), plus restart and timeout policy.
//   - Manager.Tools returns BridgedTool values whose Execute method never
//     returns an error: every failure, including timeouts, becomes an
//     explanatory result so a single tool failure cannot abort an agent turn.
//   - Manager.ResourceContext composes prompt-ready text from every ready
//     server's readable resources.
//
// All text produced by an external server, tool output and resource content
// alike, is wrapped in a tamper-evident untrusted-content envelope before it
// is returned. Forged envelope markers inside server output are sanitized so
// exactly one genuine marker pair remains per wrapped unit.
//
// The package speaks only the tool and resource portions of MCP. Prompts,
// sampling, and elicitation are out of scope.
package mcphost
