package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wesm/imsgstats/internal/analysis"
	"github.com/wesm/imsgstats/internal/apperr"
)

const (
	maxCount    = 1000
	maxDaysBack = 36500
)

type handlers struct {
	analyzer *analysis.Analyzer
	logger   *slog.Logger
}

// logged records the tool name, duration and error kind of each call.
// Arguments and results are never logged; they can contain message text.
func (h *handlers) logged(name string, fn server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		res, err := fn(ctx, req)
		attrs := []any{"tool", name, "duration", time.Since(start)}
		if res != nil && res.IsError {
			attrs = append(attrs, "error", true)
		}
		h.logger.Debug("tool call", attrs...)
		return res, err
	}
}

// fail converts err into a tool error result. Only the privacy-safe message
// reaches the client; the full cause goes to the debug log.
func (h *handlers) fail(err error) (*mcp.CallToolResult, error) {
	h.logger.Debug("tool failed", "kind", apperr.KindOf(err).String(), "detail", apperr.Detail(err))
	return mcp.NewToolResultError(apperr.Message(err)), nil
}

// intArg extracts an optional whole number in [1, upper] from the arguments
// map, returning def when the key is absent.
func intArg(args map[string]any, key string, def, upper int) (int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return def, nil
	}
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case int:
		v = float64(n)
	default:
		return 0, apperr.InvalidInputf("%s must be a number", key)
	}
	if math.IsNaN(v) || v != math.Trunc(v) || v < 1 || v > float64(upper) {
		return 0, apperr.InvalidInputf("%s must be a whole number between 1 and %d", key, upper)
	}
	return int(v), nil
}

// getStringArg extracts a required non-blank string from the arguments map.
func getStringArg(args map[string]any, key string) (string, error) {
	v, _ := args[key].(string)
	if strings.TrimSpace(v) == "" {
		return "", apperr.InvalidInputf("%s parameter is required", key)
	}
	return v, nil
}

// getDateArg extracts an optional date (YYYY-MM-DD) from the arguments map.
// A missing or empty value yields the zero time.
func getDateArg(args map[string]any, key string) (time.Time, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, apperr.InvalidInputf("invalid %s date %q: expected YYYY-MM-DD", key, v)
	}
	return t, nil
}

func dateRangeArgs(args map[string]any) (after, before time.Time, err error) {
	if after, err = getDateArg(args, "after"); err != nil {
		return
	}
	before, err = getDateArg(args, "before")
	return
}

func (h *handlers) basicStatistics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.analyzer.BasicStats(ctx)
	if err != nil {
		return h.fail(err)
	}
	return jsonResult(stats)
}

func (h *handlers) wordFrequency(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topN, err := intArg(req.GetArguments(), "top_n", 10, maxCount)
	if err != nil {
		return h.fail(err)
	}
	words, err := h.analyzer.WordFrequency(ctx, topN)
	if err != nil {
		return h.fail(err)
	}
	return jsonResult(words)
}

func (h *handlers) conversationAnalysis(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contact, err := getStringArg(req.GetArguments(), "contact")
	if err != nil {
		return h.fail(err)
	}
	ca, err := h.analyzer.ConversationAnalysis(ctx, contact)
	if err != nil {
		return h.fail(err)
	}
	return jsonResult(ca)
}

func (h *handlers) topConversations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topN, err := intArg(req.GetArguments(), "top_n", 5, maxCount)
	if err != nil {
		return h.fail(err)
	}
	overview, err := h.analyzer.TopConversations(ctx, topN)
	if err != nil {
		return h.fail(err)
	}
	return jsonResult(overview)
}

func (h *handlers) listContacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit, err := intArg(req.GetArguments(), "limit", 20, maxCount)
	if err != nil {
		return h.fail(err)
	}
	contacts, err := h.analyzer.ListContacts(ctx, limit)
	if err != nil {
		return h.fail(err)
	}
	return jsonResult(contacts)
}

func (h *handlers) searchMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	q, err := getStringArg(args, "query")
	if err != nil {
		return h.fail(err)
	}
	limit, err := intArg(args, "limit", analysis.DefaultSearchLimit, maxCount)
	if err != nil {
		return h.fail(err)
	}
	after, before, err := dateRangeArgs(args)
	if err != nil {
		return h.fail(err)
	}

	res, err := h.analyzer.SearchMessages(ctx, q, analysis.SearchOptions{Limit: limit, After: after, Before: before})
	if err != nil {
		return h.fail(err)
	}
	return jsonResult(res)
}

func (h *handlers) contactStatistics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contact, err := getStringArg(req.GetArguments(), "contact")
	if err != nil {
		return h.fail(err)
	}
	stats, err := h.analyzer.ContactStats(ctx, contact)
	if err != nil {
		return h.fail(err)
	}
	return jsonResult(stats)
}

func (h *handlers) getConversation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	contact, err := getStringArg(args, "contact")
	if err != nil {
		return h.fail(err)
	}
	limit, err := intArg(args, "limit", analysis.DefaultConversationLimit, analysis.MaxConversationLimit)
	if err != nil {
		return h.fail(err)
	}
	daysBack, err := intArg(args, "days_back", 0, maxDaysBack)
	if err != nil {
		return h.fail(err)
	}
	after, before, err := dateRangeArgs(args)
	if err != nil {
		return h.fail(err)
	}

	tr, err := h.analyzer.GetConversation(ctx, contact, analysis.ConversationOptions{
		Limit:    limit,
		DaysBack: daysBack,
		After:    after,
		Before:   before,
	})
	if err != nil {
		return h.fail(err)
	}
	return jsonResult(tr)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
