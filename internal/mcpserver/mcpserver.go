// Package mcpserver exposes vigil's analysis over the Model Context
// Protocol.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/vigil/internal/service/analysis"
)

// Server wraps the MCP server and the analysis service behind its tools.
type Server struct {
	server  *mcp.Server
	service *analysis.Service
}

// NewServer creates a server with the analysis tools and prompts
// registered. A nil service uses the configuration found in the working
// directory.
func NewServer(version string, svc *analysis.Service) *Server {
	if version == "" {
		version = "dev"
	}
	if svc == nil {
		svc = analysis.New()
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "vigil",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, service: svc}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run serves over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze",
		Description: describeAnalyze(),
	}, s.handleAnalyze)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_rules",
		Description: describeListRules(),
	}, s.handleListRules)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "explain_rule",
		Description: describeExplainRule(),
	}, s.handleExplainRule)
}
