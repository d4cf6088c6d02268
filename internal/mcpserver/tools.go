package mcpserver

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/vigil/internal/output"
	"github.com/panbanda/vigil/internal/service/analysis"
	"github.com/panbanda/vigil/pkg/models"
)

// AnalyzeInput selects what the analyze tool looks at.
type AnalyzeInput struct {
	Paths  []string `json:"paths,omitempty" jsonschema:"Files or directories to analyze. Defaults to the current directory."`
	Rules  []string `json:"rules,omitempty" jsonschema:"Rule IDs to run. Defaults to every enabled rule."`
	Format string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, markdown or text."`
}

// ListRulesInput configures the list_rules tool.
type ListRulesInput struct {
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, markdown or text."`
}

// ExplainRuleInput names the rule to explain.
type ExplainRuleInput struct {
	Rule   string `json:"rule" jsonschema:"Rule ID, as listed by list_rules."`
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, markdown or text."`
}

func getPaths(paths []string) []string {
	if len(paths) == 0 {
		return []string{"."}
	}
	return paths
}

// getFormat parses a requested format. Clients default to TOON, which is
// the most compact for a model to read.
func getFormat(s string) (output.Format, error) {
	if s == "" {
		return output.FormatTOON, nil
	}
	return output.ParseFormat(s)
}

func formatOutput(data any, format output.Format) (string, error) {
	var b strings.Builder
	if err := output.NewWriterFormatter(format, &b, false).Output(data); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) handleAnalyze(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, any, error) {
	format, err := getFormat(input.Format)
	if err != nil {
		return toolError(err.Error())
	}
	for _, id := range input.Rules {
		if _, ok := s.descriptor(id); !ok {
			return toolError(fmt.Sprintf("unknown rule %q", id))
		}
	}

	report, err := s.service.Analyze(ctx, getPaths(input.Paths), analysis.Options{Only: input.Rules})
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(output.ReportView{Report: report}, format)
}

func (s *Server) handleListRules(_ context.Context, _ *mcp.CallToolRequest, input ListRulesInput) (*mcp.CallToolResult, any, error) {
	format, err := getFormat(input.Format)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(output.RulesView{Descriptors: s.service.Descriptors()}, format)
}

func (s *Server) handleExplainRule(_ context.Context, _ *mcp.CallToolRequest, input ExplainRuleInput) (*mcp.CallToolResult, any, error) {
	format, err := getFormat(input.Format)
	if err != nil {
		return toolError(err.Error())
	}
	d, ok := s.descriptor(input.Rule)
	if !ok {
		return toolError(fmt.Sprintf("unknown rule %q", input.Rule))
	}
	return toolResult(output.Explain(d), format)
}

func (s *Server) descriptor(id string) (models.Descriptor, bool) {
	descs := s.service.Descriptors()
	i := slices.IndexFunc(descs, func(d models.Descriptor) bool { return d.ID == id })
	if i < 0 {
		return models.Descriptor{}, false
	}
	return descs[i], true
}
