package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NodeTypesURI is the resource listing every node type and its property schema.
const NodeTypesURI = "lattice://node-types"

// Engine is the part of lattice.Engine the MCP server exposes.
type Engine interface {
	Compile(ctx context.Context, raw *domain.RawState) *domain.Result
	Validate(raw *domain.RawState) (*domain.BuilderState, []string, error)
}

var _ Engine = (*lattice.Engine)(nil)

// GraphArgs carries a graph document to a tool.
type GraphArgs struct {
	Graph  string `json:"graph"`
	Format string `json:"format,omitempty"`
}

// ValidateResponse is the structured output of validate_graph.
type ValidateResponse struct {
	Valid    bool     `json:"valid" jsonschema_description:"True when the graph normalizes without errors"`
	Nodes    int      `json:"nodes" jsonschema_description:"Number of nodes after normalization"`
	Edges    int      `json:"edges" jsonschema_description:"Number of edges after normalization"`
	Warnings []string `json:"warnings" jsonschema_description:"Lint warnings about suspicious but legal graphs"`
	Error    string   `json:"error,omitempty" jsonschema_description:"Why the graph is invalid"`
}

// SlugArgs carries the text to slugify.
type SlugArgs struct {
	Text string `json:"text"`
}

// SlugResponse is the structured output of slugify.
type SlugResponse struct {
	Slug  string `json:"slug" jsonschema_description:"Identifier-safe form of the text"`
	Table string `json:"table" jsonschema_description:"Table name the text maps to"`
}

// Server wraps the Lattice Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	parser    *compiler.Parser
	registry  *registry.Registry
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:   engine,
		parser:   compiler.NewParser(),
		registry: registry.New(),
		logger:   logging.NewNop(),
		mcpServer: server.NewMCPServer("lattice-mcp", strings.TrimSpace(lattice.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for in-process transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	formatOpt := mcp.WithString("format",
		mcp.Description("Encoding of the graph document"),
		mcp.Enum(string(compiler.FormatJSON), string(compiler.FormatYAML), string(compiler.FormatHCL)),
	)

	// TOOL: compile_graph
	compileTool := mcp.NewTool("compile_graph",
		mcp.WithDescription("Compile a builder-state graph into a scaffold and report the artifacts, preview URLs and errors."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("The graph document: project_id, nodes, edges")),
		formatOpt,
		mcp.WithOutputSchema[domain.Result](),
	)
	s.mcpServer.AddTool(compileTool, mcp.NewStructuredToolHandler(s.handleCompile))

	// TOOL: validate_graph
	validateTool := mcp.NewTool("validate_graph",
		mcp.WithDescription("Normalize a graph without generating anything and report schema or integrity errors."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("The graph document: project_id, nodes, edges")),
		formatOpt,
		mcp.WithOutputSchema[ValidateResponse](),
	)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidate))

	// TOOL: slugify
	slugTool := mcp.NewTool("slugify",
		mcp.WithDescription("Turn a display name into the identifier and table name the generators use."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Display name")),
		mcp.WithOutputSchema[SlugResponse](),
	)
	s.mcpServer.AddTool(slugTool, mcp.NewStructuredToolHandler(s.handleSlugify))
}

func (s *Server) parse(args GraphArgs) (*domain.RawState, error) {
	if strings.TrimSpace(args.Graph) == "" {
		return nil, errors.New("graph is required")
	}
	raw, err := s.parser.Parse([]byte(args.Graph), compiler.Format(args.Format))
	if err != nil {
		s.logger.Warn("MCP: Invalid graph document", "err", err)
		return nil, err
	}
	return raw, nil
}

func (s *Server) handleCompile(ctx context.Context, request mcp.CallToolRequest, args GraphArgs) (domain.Result, error) {
	raw, err := s.parse(args)
	if err != nil {
		return domain.Result{}, err
	}
	res := s.engine.Compile(ctx, raw)
	return *res, nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args GraphArgs) (ValidateResponse, error) {
	raw, err := s.parse(args)
	if err != nil {
		return ValidateResponse{}, err
	}
	state, warnings, err := s.engine.Validate(raw)
	if err != nil {
		return ValidateResponse{Warnings: []string{}, Error: err.Error()}, nil
	}
	if warnings == nil {
		warnings = []string{}
	}
	return ValidateResponse{
		Valid:    true,
		Nodes:    len(state.Nodes),
		Edges:    len(state.Edges),
		Warnings: warnings,
	}, nil
}

func (s *Server) handleSlugify(ctx context.Context, request mcp.CallToolRequest, args SlugArgs) (SlugResponse, error) {
	return SlugResponse{
		Slug:  registry.Slugify(args.Text),
		Table: registry.TableName(args.Text),
	}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: lattice://node-types
	s.mcpServer.AddResource(mcp.NewResource(NodeTypesURI, "Node Types",
		mcp.WithResourceDescription("Every node type with the properties it carries after defaulting"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.registry.Specs())
		if err != nil {
			return nil, fmt.Errorf("failed to encode node types: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      NodeTypesURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
