package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/vigil/internal/output"
	"github.com/panbanda/vigil/internal/service/analysis"
	"github.com/panbanda/vigil/pkg/config"
	"github.com/panbanda/vigil/pkg/models"
)

const nilSource = `package a

type node struct{ val int }

func f() int {
	var p *node
	return p.val
}
`

func testService(t *testing.T) *analysis.Service {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.Exclude.Gitignore = false
	return analysis.New(analysis.WithConfig(cfg))
}

// connect starts the server on an in-memory transport and returns a
// client session.
func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	server := NewServer("test", testService(t))

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func TestServerCreation(t *testing.T) {
	server := NewServer("", nil)
	if server.server == nil {
		t.Fatal("NewServer().server is nil")
	}
	if server.service == nil {
		t.Fatal("nil service should fall back to the default")
	}
}

func TestToolDescriptions(t *testing.T) {
	descriptions := map[string]func() string{
		"analyze":      describeAnalyze,
		"list_rules":   describeListRules,
		"explain_rule": describeExplainRule,
	}
	for name, fn := range descriptions {
		t.Run(name, func(t *testing.T) {
			desc := fn()
			for _, section := range []string{"USE WHEN:", "INTERPRETING RESULTS:", "RETURNS:"} {
				if !strings.Contains(desc, section) {
					t.Errorf("%s description missing %s", name, section)
				}
			}
		})
	}
}

func TestGetFormat(t *testing.T) {
	tests := []struct {
		format  string
		want    output.Format
		wantErr bool
	}{
		{"", output.FormatTOON, false},
		{"json", output.FormatJSON, false},
		{"md", output.FormatMarkdown, false},
		{"yaml", output.FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := getFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("getFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("getFormat(%q) = %v, want %v", tt.format, got, tt.want)
		}
	}
}

func TestToolError(t *testing.T) {
	result, _, err := toolError("test error message")
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "Error: test error message", text(t, result))
}

func TestListTools(t *testing.T) {
	cs := connect(t)
	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"analyze", "list_rules", "explain_rule"}, names)
}

func TestAnalyzeTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte(nilSource), 0o644))

	cs := connect(t)
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "analyze",
		Arguments: map[string]any{
			"paths":  []string{dir},
			"rules":  []string{"nil-dereference"},
			"format": "json",
		},
	})
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var report models.Report
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &report))
	assert.Equal(t, 1, report.Files)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, "nil-dereference", report.Diagnostics[0].Rule)
	assert.Equal(t, 7, report.Diagnostics[0].Location.Line)
}

func TestAnalyzeTool_DefaultsToTOON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte(nilSource), 0o644))

	cs := connect(t)
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "analyze",
		Arguments: map[string]any{"paths": []string{dir}},
	})
	require.NoError(t, err)
	out := text(t, res)
	assert.Contains(t, out, "nil-dereference")
	assert.False(t, strings.HasPrefix(out, "{"), "TOON is not JSON")
}

func TestAnalyzeTool_Errors(t *testing.T) {
	cs := connect(t)
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"unknown rule", map[string]any{"rules": []string{"no-such-rule"}}, `unknown rule "no-such-rule"`},
		{"bad format", map[string]any{"format": "xml"}, "xml"},
		{"missing path", map[string]any{"paths": []string{filepath.Join(t.TempDir(), "missing")}}, "Error:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "analyze", Arguments: tt.args})
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, text(t, res), tt.want)
		})
	}
}

func TestListRulesTool(t *testing.T) {
	cs := connect(t)
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "list_rules",
		Arguments: map[string]any{"format": "json"},
	})
	require.NoError(t, err)

	var descs []models.Descriptor
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &descs))
	ids := make([]string, 0, len(descs))
	for _, d := range descs {
		ids = append(ids, d.ID)
	}
	assert.Contains(t, ids, "nesting-depth")
	assert.Contains(t, ids, "file-header")
}

func TestExplainRuleTool(t *testing.T) {
	cs := connect(t)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "explain_rule",
		Arguments: map[string]any{"rule": "nesting-depth", "format": "markdown"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, text(t, res), "## nesting-depth:")
	assert.Contains(t, text(t, res), "Parameters")

	res, err = cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "explain_rule",
		Arguments: map[string]any{"rule": "missing"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestLoadPrompts(t *testing.T) {
	defs, err := loadPrompts()
	require.NoError(t, err)
	require.NotEmpty(t, defs)

	for _, def := range defs {
		t.Run(def.Name, func(t *testing.T) {
			if def.Description == "" {
				t.Error("prompt description is empty")
			}
			if strings.HasPrefix(def.Body, "---") {
				t.Error("frontmatter was not stripped")
			}
			for _, arg := range def.Arguments {
				if !strings.Contains(def.Body, "{{"+arg.Name+"}}") {
					t.Errorf("argument %q is never used", arg.Name)
				}
			}
		})
	}
}

func TestGetPrompt(t *testing.T) {
	cs := connect(t)

	list, err := cs.ListPrompts(context.Background(), &mcp.ListPromptsParams{})
	require.NoError(t, err)
	require.NotEmpty(t, list.Prompts)

	res, err := cs.GetPrompt(context.Background(), &mcp.GetPromptParams{
		Name:      "review-findings",
		Arguments: map[string]string{"paths": "/custom/path"},
	})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, mcp.Role("user"), res.Messages[0].Role)

	tc, ok := res.Messages[0].Content.(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, tc.Text, "/custom/path")
	assert.Contains(t, tc.Text, "severity `major`", "missing arguments use their default")
	assert.NotContains(t, tc.Text, "{{")
}

func TestParseFrontmatter(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantDesc string
		wantBody string
	}{
		{"with frontmatter", "---\ndescription: Test\n---\nBody", "Test", "Body"},
		{"crlf", "---\r\ndescription: Test\r\n---\r\n\r\nBody", "Test", "Body"},
		{"no frontmatter", "Just body", "", "Just body"},
		{"unterminated", "---\ndescription: Test\nBody", "", "---\ndescription: Test\nBody"},
		{"invalid yaml", "---\ndescription: [\n---\nBody", "", "---\ndescription: [\n---\nBody"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body := parseFrontmatter([]byte(tt.content))
			if fm.Description != tt.wantDesc {
				t.Errorf("description = %q, want %q", fm.Description, tt.wantDesc)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestSubstituteArg(t *testing.T) {
	tests := []struct {
		name       string
		args       map[string]string
		defaultVal string
		want       string
	}{
		{"provided", map[string]string{"paths": "src"}, ".", "check src now"},
		{"missing", nil, ".", "check . now"},
		{"empty uses default", map[string]string{"paths": ""}, ".", "check . now"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := substituteArg("check {{paths}} now", "paths", tt.args, tt.defaultVal); got != tt.want {
				t.Errorf("substituteArg() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateManifest(t *testing.T) {
	data, err := GenerateManifest("")
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "io.github.panbanda/vigil", m.Name)
	assert.Equal(t, "0.0.0", m.Version)
	require.Len(t, m.Packages, 1)
	assert.Equal(t, "ghcr.io/panbanda/vigil:0.0.0", m.Packages[0].Identifier)
	assert.Equal(t, "stdio", m.Packages[0].Transport.Type)
	require.Len(t, m.Packages[0].Environment, 1)
	assert.Equal(t, "VIGIL_CONFIG", m.Packages[0].Environment[0].Name)

	data, err = GenerateManifest("1.2.3")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ghcr.io/panbanda/vigil:1.2.3"`)
}
