package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"rag-worker/cmd/configs"
	di "rag-worker/pkg/dependency_injection"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v2"
)

type MCPServer struct {
	mcpServer  *server.MCPServer
	sseServer  *server.SSEServer
	httpServer *http.Server
	auth       *tokenAuth
}

func NewMCPServer(tools *Tools, auth *tokenAuth) *MCPServer {
	mcpServer := server.NewMCPServer(
		"Knowledge Base MCP Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	mcpServer.AddTool(AnswerTool, tools.HandleAnswer)
	mcpServer.AddTool(SearchTool, tools.HandleSearch)
	mcpServer.AddTool(EnqueueTool, tools.HandleEnqueue)

	return &MCPServer{
		mcpServer: mcpServer,
		auth:      auth,
	}
}

// Handler serves the SSE and message endpoints behind bearer token auth
func (s *MCPServer) Handler(baseURL string) http.Handler {
	s.sseServer = server.NewSSEServer(s.mcpServer,
		server.WithBaseURL(baseURL),
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithKeepAliveInterval(30*time.Second),
		server.WithSSEContextFunc(s.auth.sseContext),
	)
	return s.auth.requireToken(s.sseServer)
}

func (s *MCPServer) StartSSE(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(fmt.Sprintf("http://%s", addr)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Starting MCP SSE server on %s", addr)
	log.Printf("SSE endpoint: %s/sse", addr)
	log.Printf("Message endpoint: %s/message", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartStdio serves a single local client whose token is checked up front
func (s *MCPServer) StartStdio(token string) error {
	contextFunc, err := s.auth.stdioContext(token)
	if err != nil {
		return err
	}

	log.Println("Starting MCP server in stdio mode")
	return server.ServeStdio(s.mcpServer, server.WithStdioContextFunc(contextFunc))
}

func main() {
	app := &cli.App{
		Name:  "ragworker-mcp",
		Usage: "Expose the knowledge base over the Model Context Protocol",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "transport",
				Usage: "sse or stdio",
				Value: "sse",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address for the SSE transport",
				Value: ":8081",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Access token identifying the caller of the stdio transport",
				EnvVars: []string{"MCP_ACCESS_TOKEN"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx := context.Background()
	container, err := di.NewContainer(ctx, configs.LoadConfig(), di.WithoutPipeline())
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to initialize: %v", err), 1)
	}
	defer container.Close()

	srv := NewMCPServer(
		NewTools(container.Services.Retrieval, container.Services.Ingestion),
		newTokenAuth(container.TokenService),
	)

	switch c.String("transport") {
	case "stdio":
		return srv.StartStdio(c.String("token"))
	case "sse":
		return srv.StartSSE(c.String("addr"))
	default:
		return fmt.Errorf("unknown transport %q", c.String("transport"))
	}
}
