// Package mcp exposes the analysis operations as MCP tools over stdio.
package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wesm/imsgstats/internal/analysis"
)

// Tool name constants.
const (
	ToolBasicStatistics      = "get_basic_statistics"
	ToolWordFrequency        = "get_word_frequency"
	ToolConversationAnalysis = "get_conversation_analysis"
	ToolTopConversations     = "get_top_conversations"
	ToolListContacts         = "list_contacts"
	ToolSearchMessages       = "search_messages"
	ToolContactStatistics    = "get_contact_statistics"
	ToolGetConversation      = "get_conversation"
)

// DefaultServerName is the name announced to clients and used as the key in
// Claude Desktop's mcpServers map.
const DefaultServerName = "imsgstats"

// Options configure the server.
type Options struct {
	Name    string
	Version string
	Logger  *slog.Logger
}

// Common argument helpers for recurring tool option definitions.

func withContact() mcp.ToolOption {
	return mcp.WithString("contact",
		mcp.Required(),
		mcp.Description("Phone number or email address as shown by list_contacts (e.g. '+15551234567')"),
	)
}

func withCount(name, defaultDesc, what string) mcp.ToolOption {
	return mcp.WithNumber(name,
		mcp.Description(what+" (default "+defaultDesc+", max 1000)"),
	)
}

func withAfter() mcp.ToolOption {
	return mcp.WithString("after",
		mcp.Description("Only messages on or after this date (YYYY-MM-DD, UTC)"),
	)
}

func withBefore() mcp.ToolOption {
	return mcp.WithString("before",
		mcp.Description("Only messages before this date (YYYY-MM-DD, UTC)"),
	)
}

// NewServer builds an MCP server with every analysis tool registered.
func NewServer(a *analysis.Analyzer, opts Options) *server.MCPServer {
	if opts.Name == "" {
		opts.Name = DefaultServerName
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := server.NewMCPServer(
		opts.Name,
		opts.Version,
		server.WithToolCapabilities(false),
	)

	h := &handlers{analyzer: a, logger: logger}

	s.AddTool(basicStatisticsTool(), h.logged(ToolBasicStatistics, h.basicStatistics))
	s.AddTool(wordFrequencyTool(), h.logged(ToolWordFrequency, h.wordFrequency))
	s.AddTool(conversationAnalysisTool(), h.logged(ToolConversationAnalysis, h.conversationAnalysis))
	s.AddTool(topConversationsTool(), h.logged(ToolTopConversations, h.topConversations))
	s.AddTool(listContactsTool(), h.logged(ToolListContacts, h.listContacts))
	s.AddTool(searchMessagesTool(), h.logged(ToolSearchMessages, h.searchMessages))
	s.AddTool(contactStatisticsTool(), h.logged(ToolContactStatistics, h.contactStatistics))
	s.AddTool(getConversationTool(), h.logged(ToolGetConversation, h.getConversation))

	return s
}

// Serve runs the tool server over stdin/stdout. It blocks until stdin is
// closed or the context is cancelled.
func Serve(ctx context.Context, a *analysis.Analyzer, opts Options) error {
	stdio := server.NewStdioServer(NewServer(a, opts))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func basicStatisticsTool() mcp.Tool {
	return mcp.NewTool(ToolBasicStatistics,
		mcp.WithDescription("Get an overview of the iMessage history: total messages, unique senders, top senders, average and longest message length."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func wordFrequencyTool() mcp.Tool {
	return mcp.NewTool(ToolWordFrequency,
		mcp.WithDescription("Get the most frequently used words across all messages. Common stop words and words shorter than three letters are excluded."),
		mcp.WithReadOnlyHintAnnotation(true),
		withCount("top_n", "10", "Number of words to return"),
	)
}

func conversationAnalysisTool() mcp.Tool {
	return mcp.NewTool(ToolConversationAnalysis,
		mcp.WithDescription("Compare how many messages I sent to a contact with how many they sent me."),
		mcp.WithReadOnlyHintAnnotation(true),
		withContact(),
	)
}

func topConversationsTool() mcp.Tool {
	return mcp.NewTool(ToolTopConversations,
		mcp.WithDescription("Rank conversations by message count and show who talks more in each."),
		mcp.WithReadOnlyHintAnnotation(true),
		withCount("top_n", "5", "Number of conversations to return"),
	)
}

func listContactsTool() mcp.Tool {
	return mcp.NewTool(ToolListContacts,
		mcp.WithDescription("List contacts (phone numbers and email addresses as stored, not address-book names) with message counts, most active first."),
		mcp.WithReadOnlyHintAnnotation(true),
		withCount("limit", "20", "Maximum contacts to return"),
	)
}

func searchMessagesTool() mcp.Tool {
	return mcp.NewTool(ToolSearchMessages,
		mcp.WithDescription("Search message text (case-insensitive substring). Returns the most recent matches, oldest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to look for"),
		),
		withCount("limit", "10", "Maximum messages to return"),
		withAfter(),
		withBefore(),
	)
}

func contactStatisticsTool() mcp.Tool {
	return mcp.NewTool(ToolContactStatistics,
		mcp.WithDescription("Get statistics for one contact: message counts in each direction, first and last message dates, average length."),
		mcp.WithReadOnlyHintAnnotation(true),
		withContact(),
	)
}

func getConversationTool() mcp.Tool {
	return mcp.NewTool(ToolGetConversation,
		mcp.WithDescription("Read the conversation with one contact: the most recent messages with full text, oldest first. The content is private; use it only for the user's request."),
		mcp.WithReadOnlyHintAnnotation(true),
		withContact(),
		withCount("limit", "100", "Maximum messages to return"),
		mcp.WithNumber("days_back",
			mcp.Description("Only messages from the last N days"),
		),
		withAfter(),
		withBefore(),
	)
}
