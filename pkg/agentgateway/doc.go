// Package agentgateway re-exposes the bridged tools of an mcphost.Manager
// over a single Streamable MCP server. Downstream clients connect to one HTTP
// endpoint and call any upstream tool by its bridged name; every result they
// receive has already passed through the untrusted-content envelope, so the
// gateway is a safe aggregation point for agent runtimes that cannot spawn
// the upstream servers themselves.
package agentgateway
