package mcp

import (
	"context"

	"github.com/charmbracelet/log"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"dealgraph/internal/graph"
	"dealgraph/internal/health"
)

// Server exposes the relationship graph as MCP tools.
type Server struct {
	graph   *graph.Graph
	health  *health.Orchestrator
	persist func(ctx context.Context) error
	logger  *log.Logger
	mcp     *sdk.Server
}

type Option func(*Server)

// WithPersist sets a hook run after every tool call that mutates the graph.
func WithPersist(fn func(ctx context.Context) error) Option {
	return func(s *Server) { s.persist = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewServer(g *graph.Graph, orchestrator *health.Orchestrator, version string, opts ...Option) *Server {
	s := &Server{
		graph:  g,
		health: orchestrator,
		logger: log.Default(),
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "dealgraph",
			Version: version,
		}, nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
