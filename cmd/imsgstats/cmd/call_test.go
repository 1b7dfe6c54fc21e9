package cmd

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wesm/imsgstats/internal/analysis"
	mcpserver "github.com/wesm/imsgstats/internal/mcp"
	"github.com/wesm/imsgstats/internal/testutil/chatdbtest"
)

// serverTools returns the tool definitions a client would receive.
func serverTools(t *testing.T) map[string]mcp.Tool {
	t.Helper()
	s := mcpserver.NewServer(analysis.New(chatdbtest.New(t).Provider(), analysis.Options{}), mcpserver.Options{})
	tools := make(map[string]mcp.Tool)
	for name, st := range s.ListTools() {
		tools[name] = st.Tool
	}
	return tools
}

func TestParseToolArgs(t *testing.T) {
	tools := serverTools(t)

	tests := []struct {
		name    string
		tool    string
		pairs   []string
		want    map[string]any
		wantErr bool
	}{
		{
			name:  "typed by schema",
			tool:  mcpserver.ToolSearchMessages,
			pairs: []string{"query=dinner at 8", "limit=5"},
			want:  map[string]any{"query": "dinner at 8", "limit": float64(5)},
		},
		{
			name:  "phone number stays a string",
			tool:  mcpserver.ToolContactStatistics,
			pairs: []string{"contact=15551234567"},
			want:  map[string]any{"contact": "15551234567"},
		},
		{
			name:  "value may contain equals",
			tool:  mcpserver.ToolSearchMessages,
			pairs: []string{"query=a=b"},
			want:  map[string]any{"query": "a=b"},
		},
		{name: "not a number", tool: mcpserver.ToolSearchMessages, pairs: []string{"limit=five"}, wantErr: true},
		{name: "missing equals", tool: mcpserver.ToolSearchMessages, pairs: []string{"dinner"}, wantErr: true},
		{name: "unknown argument", tool: mcpserver.ToolBasicStatistics, pairs: []string{"x=1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseToolArgs(tools[tt.tool], tt.pairs)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseToolArgs: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestArgNames(t *testing.T) {
	tools := serverTools(t)

	got := argNames(tools[mcpserver.ToolGetConversation])
	want := []string{"contact*", "after", "before", "days_back", "limit"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("argNames mismatch (-want +got):\n%s", diff)
	}
	if got := argNames(tools[mcpserver.ToolBasicStatistics]); len(got) != 0 {
		t.Errorf("basic statistics has arguments: %v", got)
	}
}

func TestResultText(t *testing.T) {
	res := mcp.NewToolResultText(`{"total_messages": 5}`)
	if got := resultText(res); got != `{"total_messages": 5}` {
		t.Errorf("resultText = %q", got)
	}
	if got := resultText(&mcp.CallToolResult{}); got != "(no content)" {
		t.Errorf("empty resultText = %q", got)
	}
}
