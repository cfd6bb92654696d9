package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/forge"
	"github.com/aretw0/forge/internal/logging"
	"github.com/aretw0/forge/pkg/domain"
	"github.com/aretw0/forge/pkg/instance"
	"github.com/aretw0/forge/pkg/registry"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Host is the part of the processor the MCP tools drive.
type Host interface {
	Instances() []*instance.Instance
	Instance(id string) (*instance.Instance, error)
	ProcessTick(ctx context.Context) error
	Idle() bool
}

// Catalog lists constructible block types.
type Catalog interface {
	SupportedBlockTypeIDs() []string
	RegistryFor(typeID string) (*registry.Registry, error)
}

// TickResponse reports the outcome of the tick tool.
type TickResponse struct {
	Ticks     int                       `json:"ticks" jsonschema_description:"Number of ticks processed"`
	Idle      bool                      `json:"idle" jsonschema_description:"True when every instance is terminal"`
	Instances []domain.InstanceSnapshot `json:"instances" jsonschema_description:"Snapshots after the last tick"`
}

type tickArgs struct {
	Count int `json:"count"`
}

type instanceArgs struct {
	ID string `json:"id"`
}

// Server exposes a processor as an MCP Server.
type Server struct {
	host      Host
	catalog   Catalog
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used by the SSE transport.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(host Host, catalog Catalog, opts ...Option) *Server {
	s := &Server{
		host:      host,
		catalog:   catalog,
		mcpServer: server.NewMCPServer("forge-mcp", strings.TrimSpace(forge.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE, until ctx is done.
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
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
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

// MCPServer returns the underlying server, e.g. to mount it on another transport.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	// TOOL: list_block_types
	s.mcpServer.AddTool(mcp.NewTool("list_block_types",
		mcp.WithDescription("List the block types that can be built, with their construction parameters."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		types, err := s.blockTypes()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(types)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: list_instances
	s.mcpServer.AddTool(mcp.NewTool("list_instances",
		mcp.WithDescription("List scheduled instances with their state and tick count."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.summaries())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: get_instance
	getTool := mcp.NewTool("get_instance",
		mcp.WithDescription("Get the snapshot of one instance, including every block's printable state."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Instance ID")),
		mcp.WithOutputSchema[domain.InstanceSnapshot](),
	)
	s.mcpServer.AddTool(getTool, mcp.NewStructuredToolHandler(s.handleGetInstance))

	// TOOL: tick
	tickTool := mcp.NewTool("tick",
		mcp.WithDescription("Tick every live instance. Stops early once all instances are terminal."),
		mcp.WithNumber("count", mcp.Description("Number of ticks to process (default 1)")),
		mcp.WithOutputSchema[TickResponse](),
	)
	s.mcpServer.AddTool(tickTool, mcp.NewStructuredToolHandler(s.handleTick))
}

// Handler methods for structured tools

func (s *Server) handleGetInstance(ctx context.Context, request mcp.CallToolRequest, args instanceArgs) (domain.InstanceSnapshot, error) {
	inst, err := s.host.Instance(args.ID)
	if err != nil {
		return domain.InstanceSnapshot{}, err
	}
	return *inst.Snapshot(), nil
}

func (s *Server) handleTick(ctx context.Context, request mcp.CallToolRequest, args tickArgs) (TickResponse, error) {
	count := args.Count
	if count <= 0 {
		count = 1
	}

	resp := TickResponse{}
	for ; resp.Ticks < count && !s.host.Idle(); resp.Ticks++ {
		if err := s.host.ProcessTick(ctx); err != nil {
			return TickResponse{}, fmt.Errorf("tick failed: %w", err)
		}
	}
	resp.Idle = s.host.Idle()
	for _, inst := range s.host.Instances() {
		resp.Instances = append(resp.Instances, *inst.Snapshot())
	}
	return resp, nil
}

type typeInfo struct {
	TypeID        string           `json:"type_id"`
	EngineVersion string           `json:"engine_version"`
	Params        []registry.Param `json:"params"`
}

func (s *Server) blockTypes() ([]typeInfo, error) {
	var out []typeInfo
	for _, id := range s.catalog.SupportedBlockTypeIDs() {
		reg, err := s.catalog.RegistryFor(id)
		if err != nil {
			return nil, err
		}
		params, err := reg.Params(id)
		if err != nil {
			return nil, err
		}
		out = append(out, typeInfo{TypeID: id, EngineVersion: reg.ExpectedEngineVersion(), Params: params})
	}
	return out, nil
}

type summary struct {
	ID    string               `json:"id"`
	Name  string               `json:"name"`
	State domain.RunnableState `json:"state"`
	Tick  int                  `json:"tick"`
}

func (s *Server) summaries() []summary {
	out := []summary{}
	for _, inst := range s.host.Instances() {
		out = append(out, summary{ID: inst.ID(), Name: inst.Name(), State: inst.State(), Tick: inst.Ticks()})
	}
	return out
}

func (s *Server) registerResources() {
	// EXPOSE: forge://instances
	s.mcpServer.AddResource(mcp.NewResource("forge://instances", "Scheduled Instances",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, _ := json.Marshal(s.summaries())
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "forge://instances",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
