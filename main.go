package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/efmdocs/symbolsearch/internal/config"
	"github.com/efmdocs/symbolsearch/tools"
)

const (
	version     = "0.1.0"
	serverName  = "efmdoc-mcp-server"
	description = "MCP server for searching the EFM SDK API documentation by symbol"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("%s version %s\n", serverName, version)
		os.Exit(0)
	}

	// Set up logging to stderr (MCP uses stdout for protocol)
	log.SetOutput(os.Stderr)
	log.Printf("%s v%s starting...", serverName, version)

	cfg, err := config.LoadDefault()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	// Create MCP server
	server := createMCPServer()

	if err := registerTools(ctx, server, cfg); err != nil {
		log.Fatalf("Failed to register tools: %v", err)
	}

	log.Printf("✓ Server ready and waiting for connections")

	// Set up cleanup on shutdown
	defer func() {
		if err := tools.CloseSymbolSearch(); err != nil {
			log.Printf("Error closing symbol search: %v", err)
		}
	}()

	// Run server with stdio transport
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Printf("Server error: %v", err)
	}
}

// createMCPServer initializes the MCP server
func createMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version,
		},
		nil, // Default options
	)

	log.Printf("Server initialized: %s v%s", serverName, version)
	return server
}

// registerTools registers all MCP tools
func registerTools(ctx context.Context, server *mcp.Server, cfg *config.Config) error {
	if err := tools.RegisterSymbolTools(ctx, server, cfg); err != nil {
		return fmt.Errorf("failed to register symbol tools: %w", err)
	}

	log.Printf("✓ All tools registered: 4 tools (search_symbols, list_snapshots, refresh_snapshot, validate_snapshot)")
	return nil
}
