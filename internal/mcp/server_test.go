package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wesm/imsgstats/internal/analysis"
	"github.com/wesm/imsgstats/internal/apperr"
	"github.com/wesm/imsgstats/internal/chatdb"
	"github.com/wesm/imsgstats/internal/testutil/chatdbtest"
)

// toolHandler is the function signature for MCP tool handler methods.
type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// callToolDirect invokes a handler directly with the given arguments and returns the raw result.
func callToolDirect(t *testing.T, name string, fn toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := fn(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return result
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("empty content")
	}
	tc, ok := r.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", r.Content[0])
	}
	return tc.Text
}

// runTool invokes a handler, asserts no error, and unmarshals the JSON result into T.
func runTool[T any](t *testing.T, name string, fn toolHandler, args map[string]any) T {
	t.Helper()
	r := callToolDirect(t, name, fn, args)
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, r))
	}
	var out T
	if err := json.Unmarshal([]byte(resultText(t, r)), &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return out
}

// runToolExpectError invokes a handler and asserts it returns an error result.
func runToolExpectError(t *testing.T, name string, fn toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	r := callToolDirect(t, name, fn, args)
	if !r.IsError {
		t.Fatal("expected error result")
	}
	return r
}

func newHandlers(p chatdb.Provider) *handlers {
	return &handlers{
		analyzer: analysis.New(p, analysis.Options{}),
		logger:   slog.New(slog.DiscardHandler),
	}
}

// seededStore has one 1:1 conversation: 3 messages from alice, 2 from me.
func seededStore(t *testing.T) *chatdbtest.Store {
	t.Helper()
	fx := chatdbtest.New(t)
	h := fx.AddHandle("+15551234567", "iMessage")
	fx.Receive(h, "are we still on for dinner")
	fx.Send(h, "yes dinner at seven")
	fx.Receive(h, "great see you there")
	fx.Send(h, "bring the dinner rolls")
	fx.Receive(h, "will do")
	return fx
}

func TestBasicStatistics(t *testing.T) {
	h := newHandlers(seededStore(t).Provider())

	stats := runTool[analysis.BasicStats](t, ToolBasicStatistics, h.basicStatistics, nil)
	if stats.TotalMessages != 5 || stats.UniqueSenders != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestWordFrequency(t *testing.T) {
	h := newHandlers(seededStore(t).Provider())

	t.Run("default", func(t *testing.T) {
		wf := runTool[analysis.WordFrequency](t, ToolWordFrequency, h.wordFrequency, map[string]any{})
		if len(wf.Words) == 0 || wf.Words[0].Word != "dinner" || wf.Words[0].Count != 3 {
			t.Fatalf("unexpected words: %+v", wf.Words)
		}
	})

	t.Run("top_n", func(t *testing.T) {
		wf := runTool[analysis.WordFrequency](t, ToolWordFrequency, h.wordFrequency, map[string]any{"top_n": float64(2)})
		if len(wf.Words) != 2 {
			t.Fatalf("len(words) = %d, want 2", len(wf.Words))
		}
	})
}

func TestConversationAnalysisTool(t *testing.T) {
	h := newHandlers(seededStore(t).Provider())

	ca := runTool[analysis.ConversationAnalysis](t, ToolConversationAnalysis, h.conversationAnalysis,
		map[string]any{"contact": "+15551234567"})
	if ca.Sent != 2 || ca.Received != 3 {
		t.Fatalf("sent/received = %d/%d, want 2/3", ca.Sent, ca.Received)
	}
	if ca.WhoTalksMore != analysis.WhoThem {
		t.Errorf("WhoTalksMore = %q, want %q", ca.WhoTalksMore, analysis.WhoThem)
	}
}

func TestTopConversationsTool(t *testing.T) {
	h := newHandlers(seededStore(t).Provider())

	overview := runTool[analysis.ConversationOverview](t, ToolTopConversations, h.topConversations, nil)
	if overview.TotalConversations != 1 || len(overview.Conversations) != 1 {
		t.Fatalf("unexpected overview: %+v", overview)
	}
}

func TestListContactsTool(t *testing.T) {
	h := newHandlers(seededStore(t).Provider())

	contacts := runTool[[]analysis.ContactCount](t, ToolListContacts, h.listContacts, map[string]any{"limit": float64(5)})
	want := []analysis.ContactCount{{Contact: "+15551234567", MessageCount: 5}}
	if diff := cmp.Diff(want, contacts); diff != "" {
		t.Errorf("contacts mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchMessagesTool(t *testing.T) {
	h := newHandlers(seededStore(t).Provider())

	t.Run("valid query", func(t *testing.T) {
		res := runTool[analysis.SearchResult](t, ToolSearchMessages, h.searchMessages, map[string]any{"query": "DINNER"})
		if res.TotalMatches != 3 || len(res.Messages) != 3 {
			t.Fatalf("unexpected result: %+v", res)
		}
	})

	t.Run("limit", func(t *testing.T) {
		res := runTool[analysis.SearchResult](t, ToolSearchMessages, h.searchMessages, map[string]any{"query": "dinner", "limit": float64(1)})
		if len(res.Messages) != 1 || res.Messages[0].Text != "bring the dinner rolls" {
			t.Fatalf("unexpected result: %+v", res.Messages)
		}
	})

	t.Run("date range", func(t *testing.T) {
		res := runTool[analysis.SearchResult](t, ToolSearchMessages, h.searchMessages,
			map[string]any{"query": "dinner", "before": "2020-01-01"})
		if res.TotalMatches != 0 {
			t.Fatalf("TotalMatches = %d, want 0", res.TotalMatches)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		runToolExpectError(t, ToolSearchMessages, h.searchMessages, map[string]any{})
	})
}

func TestContactStatisticsTool(t *testing.T) {
	h := newHandlers(seededStore(t).Provider())

	t.Run("found", func(t *testing.T) {
		cs := runTool[analysis.ContactStats](t, ToolContactStatistics, h.contactStatistics,
			map[string]any{"contact": "+1 (555) 123-4567"})
		if cs.MessageCount != 5 || cs.Contact != "+15551234567" {
			t.Fatalf("unexpected stats: %+v", cs)
		}
	})

	t.Run("unknown contact", func(t *testing.T) {
		r := runToolExpectError(t, ToolContactStatistics, h.contactStatistics, map[string]any{"contact": "+19998887777"})
		if !strings.Contains(resultText(t, r), "list_contacts") {
			t.Errorf("error should suggest list_contacts: %s", resultText(t, r))
		}
	})
}

func TestGetConversationTool(t *testing.T) {
	h := newHandlers(seededStore(t).Provider())

	tr := runTool[analysis.Transcript](t, ToolGetConversation, h.getConversation,
		map[string]any{"contact": "+15551234567", "limit": float64(2)})
	if tr.MessagesShown != 2 || !tr.Limited || tr.TotalMessages != 5 {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
	if tr.Messages[1].Text != "will do" {
		t.Errorf("last message = %q, want the newest", tr.Messages[1].Text)
	}
	if tr.PrivacyNotice == "" {
		t.Error("missing privacy notice")
	}
}

func TestInvalidArguments(t *testing.T) {
	h := newHandlers(seededStore(t).Provider())

	errorCases := []struct {
		name string
		tool string
		fn   toolHandler
		args map[string]any
	}{
		{"top_n zero", ToolWordFrequency, h.wordFrequency, map[string]any{"top_n": float64(0)}},
		{"top_n negative", ToolTopConversations, h.topConversations, map[string]any{"top_n": float64(-3)}},
		{"top_n fractional", ToolWordFrequency, h.wordFrequency, map[string]any{"top_n": 2.5}},
		{"top_n NaN", ToolWordFrequency, h.wordFrequency, map[string]any{"top_n": math.NaN()}},
		{"top_n string", ToolWordFrequency, h.wordFrequency, map[string]any{"top_n": "ten"}},
		{"limit too large", ToolListContacts, h.listContacts, map[string]any{"limit": float64(1001)}},
		{"conversation limit too large", ToolGetConversation, h.getConversation,
			map[string]any{"contact": "+15551234567", "limit": float64(5000)}},
		{"missing contact", ToolContactStatistics, h.contactStatistics, map[string]any{}},
		{"blank contact", ToolConversationAnalysis, h.conversationAnalysis, map[string]any{"contact": "  "}},
		{"bad date", ToolSearchMessages, h.searchMessages, map[string]any{"query": "x", "after": "yesterday"}},
		{"inverted range", ToolGetConversation, h.getConversation,
			map[string]any{"contact": "+15551234567", "after": "2024-02-01", "before": "2024-01-01"}},
		{"days_back zero", ToolGetConversation, h.getConversation,
			map[string]any{"contact": "+15551234567", "days_back": float64(0)}},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			runToolExpectError(t, tc.tool, tc.fn, tc.args)
		})
	}
}

type failingProvider struct{ err error }

func (p failingProvider) Open(context.Context) (*chatdb.DB, error) { return nil, p.err }

func TestStoreErrorsArePrivacySafe(t *testing.T) {
	t.Run("permission", func(t *testing.T) {
		h := newHandlers(failingProvider{err: apperr.Permissionf(errors.New("operation not permitted"), "cannot read Messages database")})
		r := runToolExpectError(t, ToolBasicStatistics, h.basicStatistics, nil)
		if !strings.Contains(resultText(t, r), "Full Disk Access") {
			t.Errorf("permission error should explain how to grant access: %s", resultText(t, r))
		}
	})

	t.Run("unclassified", func(t *testing.T) {
		h := newHandlers(failingProvider{err: errors.New("disk I/O error near 'secret text'")})
		r := runToolExpectError(t, ToolListContacts, h.listContacts, nil)
		if strings.Contains(resultText(t, r), "secret") {
			t.Errorf("raw error leaked to client: %s", resultText(t, r))
		}
	})
}

func TestFailedCallDoesNotAffectNext(t *testing.T) {
	h := newHandlers(seededStore(t).Provider())

	runToolExpectError(t, ToolGetConversation, h.getConversation, map[string]any{"contact": "nobody@example.com"})
	tr := runTool[analysis.Transcript](t, ToolGetConversation, h.getConversation, map[string]any{"contact": "+15551234567"})
	if tr.TotalMessages != 5 {
		t.Fatalf("TotalMessages = %d, want 5", tr.TotalMessages)
	}
}

func TestEmptyStoreTools(t *testing.T) {
	h := newHandlers(chatdbtest.New(t).Provider())

	stats := runTool[analysis.BasicStats](t, ToolBasicStatistics, h.basicStatistics, nil)
	if stats.TotalMessages != 0 || len(stats.TopSenders) != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	contacts := runTool[[]analysis.ContactCount](t, ToolListContacts, h.listContacts, nil)
	if len(contacts) != 0 {
		t.Errorf("unexpected contacts: %+v", contacts)
	}
	r := callToolDirect(t, ToolListContacts, h.listContacts, nil)
	if got := resultText(t, r); got != "[]" {
		t.Errorf("empty contact list encodes as %s, want []", got)
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer(analysis.New(chatdbtest.New(t).Provider(), analysis.Options{}), Options{})

	tools := s.ListTools()
	for _, name := range []string{
		ToolBasicStatistics, ToolWordFrequency, ToolConversationAnalysis, ToolTopConversations,
		ToolListContacts, ToolSearchMessages, ToolContactStatistics, ToolGetConversation,
	} {
		tool, ok := tools[name]
		if !ok {
			t.Errorf("tool %s not registered", name)
			continue
		}
		if hint := tool.Tool.Annotations.ReadOnlyHint; hint == nil || !*hint {
			t.Errorf("tool %s is not marked read-only", name)
		}
	}
	if len(tools) != 8 {
		t.Errorf("registered %d tools, want 8", len(tools))
	}
}
