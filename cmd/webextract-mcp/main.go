package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/webextract/api/handler"
	"github.com/use-agent/webextract/app"
	"github.com/use-agent/webextract/config"
	"github.com/use-agent/webextract/engine"
	"github.com/use-agent/webextract/models"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// stdout carries the MCP protocol.
	app.InitLogger(cfg.Log, os.Stderr)

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer a.Close()

	s := newServer(a.Orchestrator, cfg.Tiers.DefaultMaxTier)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(ex handler.Extractor, defaultMaxTier int) *server.MCPServer {
	s := server.NewMCPServer(
		"webextract",
		handler.Version,
		server.WithToolCapabilities(false),
	)

	extractURLTool := mcp.NewTool("extract_url",
		mcp.WithDescription("Fetch a web page and return its title and cleaned article text as JSON. Escalates from a plain HTTP fetch to a readability pass and then to a headless browser without and with JavaScript."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The http or https URL of the page"),
		),
		mcp.WithNumber("max_tier",
			mcp.Description("Highest tier to try: 1 http, 2 readability, 3 browser without JavaScript, 4 browser with JavaScript (default 4)"),
			mcp.Min(1),
			mcp.Max(4),
		),
	)
	s.AddTool(extractURLTool, handleExtractURL(ex, defaultMaxTier))

	return s
}

func handleExtractURL(ex handler.Extractor, defaultMaxTier int) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		if err := models.ValidateURL(url); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		maxTier := request.GetInt("max_tier", defaultMaxTier)
		if maxTier < engine.MinTier || maxTier > engine.MaxTier {
			return mcp.NewToolResultError(fmt.Sprintf("max_tier must be between %d and %d", engine.MinTier, engine.MaxTier)), nil
		}

		res, err := ex.Extract(ctx, url, maxTier)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !res.Success {
			return mcp.NewToolResultError(res.ToJSON()), nil
		}
		return mcp.NewToolResultText(res.ToJSON()), nil
	}
}
