package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rish2jain/openclaw-sub000/pkg/mcphost"
)

func main() {
	configPath := flag.String("config", "mcp-servers.yaml", "path to the MCP server config file")
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

	for _, status := range manager.Status() {
		fmt.Printf("server %-20s %-12s %d tools\n", status.Name, status.Status, status.ToolCount)
	}
	for _, tool := range manager.Tools() {
		fmt.Printf("tool %s: %s\n", tool.Name, tool.Description)
	}
	if resources := manager.ResourceContext(ctx); resources != "" {
		fmt.Println(resources)
	}
}
