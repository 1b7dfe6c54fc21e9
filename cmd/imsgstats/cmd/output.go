package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/wesm/imsgstats/internal/analysis"
	"github.com/wesm/imsgstats/internal/textutil"
)

// Column widths, in terminal cells.
const (
	contactWidth = 30
	textWidth    = 60
)

var jsonOut bool

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

func addJSONFlag(c *cobra.Command) {
	c.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON (default when stdout is not a terminal)")
}

// wantJSON reports whether output to w should be JSON: when --json is set,
// or when w is a file or pipe rather than a terminal.
func wantJSON(w io.Writer) bool {
	if jsonOut {
		return true
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// render writes v as JSON or hands w to the table printer.
func render(cmd *cobra.Command, v any, table func(io.Writer)) error {
	w := cmd.OutOrStdout()
	if wantJSON(w) {
		return writeJSON(w, v)
	}
	table(w)
	return nil
}

// newTable starts a tabwriter table with a header and a rule under each column.
func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rules := make([]string, len(headers))
	for i, h := range headers {
		rules[i] = strings.Repeat("─", len([]rune(h)))
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	fmt.Fprintln(tw, strings.Join(rules, "\t"))
	return tw
}

func heading(w io.Writer, title string) {
	fmt.Fprintln(w, headingStyle.Render(title))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func cell(s string, width int) string {
	return textutil.Truncate(textutil.OneLine(s), width)
}

func printBasicStats(w io.Writer, s analysis.BasicStats) {
	fmt.Fprintf(w, "  Messages:        %d\n", s.TotalMessages)
	fmt.Fprintf(w, "  Unique senders:  %d\n", s.UniqueSenders)
	fmt.Fprintf(w, "  Average length:  %.1f characters\n", s.AvgMessageLength)
	fmt.Fprintf(w, "  Longest message: %d characters\n", s.LongestMessage)
	if len(s.TopSenders) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := newTable(w, "SENDER", "MESSAGES")
	for _, sc := range s.TopSenders {
		fmt.Fprintf(tw, "%s\t%d\n", cell(sc.Sender, contactWidth), sc.Count)
	}
	tw.Flush()
}

func printWordFrequency(w io.Writer, wf analysis.WordFrequency) {
	fmt.Fprintf(w, "  Words counted: %d (%d distinct)\n\n", wf.TotalWords, wf.UniqueWords)
	if len(wf.Words) == 0 {
		fmt.Fprintln(w, "No words found.")
		return
	}
	tw := newTable(w, "WORD", "COUNT")
	for _, wc := range wf.Words {
		fmt.Fprintf(tw, "%s\t%d\n", cell(wc.Word, contactWidth), wc.Count)
	}
	tw.Flush()
}

func printContacts(w io.Writer, contacts []analysis.ContactCount) {
	if len(contacts) == 0 {
		fmt.Fprintln(w, "No contacts found.")
		return
	}
	tw := newTable(w, "CONTACT", "MESSAGES")
	for _, c := range contacts {
		fmt.Fprintf(tw, "%s\t%d\n", cell(c.Contact, contactWidth), c.MessageCount)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nShowing %d contacts\n", len(contacts))
}

func printOverview(w io.Writer, o analysis.ConversationOverview) {
	fmt.Fprintf(w, "  Conversations: %d\n\n", o.TotalConversations)
	if len(o.Conversations) == 0 {
		return
	}
	tw := newTable(w, "CONTACT", "TOTAL", "ME", "THEM", "AVG LEN", "TALKS MORE")
	for _, c := range o.Conversations {
		fmt.Fprintf(tw, "%s\t%d\t%d (%.1f%%)\t%d (%.1f%%)\t%.1f\t%s\n",
			cell(c.Contact, contactWidth), c.Total,
			c.Sent, c.SentPercentage,
			c.Received, c.ReceivedPercentage,
			c.AvgMessageLength, c.WhoTalksMore,
		)
	}
	tw.Flush()
}

func printConversationAnalysis(w io.Writer, c analysis.ConversationAnalysis) {
	fmt.Fprintf(w, "Contact: %s\n", c.Contact)
	fmt.Fprintf(w, "  Total:          %d\n", c.Total)
	fmt.Fprintf(w, "  Sent (me):      %d (%.1f%%)\n", c.Sent, c.SentPercentage)
	fmt.Fprintf(w, "  Received:       %d (%.1f%%)\n", c.Received, c.ReceivedPercentage)
	fmt.Fprintf(w, "  Ratio:          %.2f\n", c.Ratio)
	fmt.Fprintf(w, "  Average length: %.1f characters\n", c.AvgMessageLength)
	fmt.Fprintf(w, "  Talks more:     %s\n", c.WhoTalksMore)
}

func printContactStats(w io.Writer, c analysis.ContactStats) {
	fmt.Fprintf(w, "Contact: %s\n", c.Contact)
	fmt.Fprintf(w, "  Messages:       %d\n", c.MessageCount)
	fmt.Fprintf(w, "  Sent (me):      %d (%.1f%%)\n", c.Sent, c.SentPercentage)
	fmt.Fprintf(w, "  Received:       %d (%.1f%%)\n", c.Received, c.ReceivedPercentage)
	fmt.Fprintf(w, "  First message:  %s\n", formatDate(c.FirstMessage))
	fmt.Fprintf(w, "  Last message:   %s\n", formatDate(c.LastMessage))
	fmt.Fprintf(w, "  Average length: %.1f characters\n", c.AvgMessageLength)
	fmt.Fprintf(w, "  Talks more:     %s\n", c.WhoTalksMore)
}

func printMessages(w io.Writer, msgs []analysis.MessageView) {
	tw := newTable(w, "DATE", "FROM", "TEXT")
	for _, m := range msgs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", formatDate(m.SentAt), cell(m.Sender, contactWidth), cell(m.Text, textWidth))
	}
	tw.Flush()
}

func printSearchResult(w io.Writer, r analysis.SearchResult) {
	if len(r.Messages) == 0 {
		fmt.Fprintln(w, "No messages found.")
		return
	}
	printMessages(w, r.Messages)
	fmt.Fprintf(w, "\nShowing %d of %d matches\n", len(r.Messages), r.TotalMatches)
}

func printTranscript(w io.Writer, t analysis.Transcript) {
	fmt.Fprintf(w, "Conversation with %s\n", t.Contact)
	fmt.Fprintln(w, dimStyle.Render(t.PrivacyNotice))
	fmt.Fprintln(w)
	if len(t.Messages) == 0 {
		fmt.Fprintln(w, "No messages in range.")
		return
	}
	printMessages(w, t.Messages)
	fmt.Fprintf(w, "\nShowing %d of %d messages (sent %d, received %d)\n",
		t.MessagesShown, t.TotalMessages, t.Sent, t.Received)
}

func printReport(w io.Writer, r analysis.Report) {
	heading(w, "Messages")
	printBasicStats(w, r.Basic)
	fmt.Fprintln(w)
	heading(w, "Most common words")
	printWordFrequency(w, r.Words)
	fmt.Fprintln(w)
	heading(w, "Conversations")
	printOverview(w, r.Conversations)
	fmt.Fprintln(w)
	fmt.Fprintln(w, dimStyle.Render("Generated "+formatDate(r.GeneratedAt)))
}

// parseDateFlag parses a YYYY-MM-DD flag value as midnight UTC. Empty means unset.
func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s date %q (want YYYY-MM-DD)", name, value)
	}
	return t, nil
}
