// Package mcp exposes the engine to MCP hosts over stdio. Three tools
// are registered: analyze_disease, validate_candidate and
// search_diseases.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/service"
)

// ServerVersion is reported to MCP hosts during initialization.
const ServerVersion = "v1.0.0"

// Server represents the MCP server implementation
type Server struct {
	analysis  *service.AnalysisService
	mcpServer *mcp.Server
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance
func NewServer(analysis *service.AnalysisService, logger *logrus.Logger) (*Server, error) {
	if analysis == nil {
		return nil, fmt.Errorf("analysis service is required")
	}

	serverInfo := &mcp.Implementation{
		Name:    "drug-repurposing-engine",
		Version: ServerVersion,
	}

	server := &Server{
		analysis:  analysis,
		mcpServer: mcp.NewServer(serverInfo, nil),
		logger:    logger,
	}
	server.registerTools()

	return server, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "analyze_disease",
		Description: "Run the full drug repurposing pipeline for a disease: resolve the name, " +
			"screen the approved-drug corpus, remove contraindicated drugs, and rank candidates " +
			"by gene and pathway overlap.",
	}, s.handleAnalyzeDisease)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "validate_candidate",
		Description: "Gather clinical evidence for one drug-disease pair: registered trials, " +
			"literature volume, safety signals and mechanism support, condensed into a risk level " +
			"and recommendation.",
	}, s.handleValidateCandidate)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "search_diseases",
		Description: "Search diseases by free-text name and return matching candidates with identifiers.",
	}, s.handleSearchDiseases)

	s.logger.WithField("tools", 3).Info("Registered MCP tools")
}

// Start serves MCP requests over stdio until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("MCP server listening on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
