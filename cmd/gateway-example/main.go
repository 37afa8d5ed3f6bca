package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rish2jain/openclaw-sub000/pkg/agentgateway"
	"github.com/rish2jain/openclaw-sub000/pkg/mcphost"
)

func main() {
	configPath := flag.String("config", "mcp-servers.yaml", "path to the MCP server config file")
	addr := flag.String("addr", ":8700", "gateway listen address")
	origins := flag.String("allowed-origins", "", "comma-separated CORS origins")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	data, err := os.ReadFile(*configPath)
	if err != nil {
		logger.Error("read config", "error", err)
		os.Exit(1)
	}
	cfg, err := mcphost.ParseConfig(data)
	if err != nil {
		logger.Error("parse config", "error", err)
		os.Exit(1)
	}
	manager, err := mcphost.NewManager(cfg, &mcphost.ManagerOptions{Logger: logger})
	if err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager.Start(ctx)
	defer manager.Shutdown()

	var allowedOrigins []string
	if *origins != "" {
		allowedOrigins = strings.Split(*origins, ",")
	}
	gateway, err := agentgateway.NewGateway(manager, &agentgateway.Options{
		Addr:           *addr,
		AllowedOrigins: allowedOrigins,
		Logger:         logger,
		Streamable:     mcp.StreamableHTTPOptions{JSONResponse: true},
	})
	if err != nil {
		logger.Error("build gateway", "error", err)
		os.Exit(1)
	}

	logger.Info("gateway serving Streamable MCP", "addr", *addr, "path", "/mcp")
	if err := gateway.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("gateway stopped", "error", err)
		os.Exit(1)
	}
}
