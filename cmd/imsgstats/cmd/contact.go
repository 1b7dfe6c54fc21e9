package cmd

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/wesm/imsgstats/internal/analysis"
)

var (
	convLimit    int
	convDaysBack int
	convAfter    string
	convBefore   string
	convBalance  bool
)

var contactCmd = &cobra.Command{
	Use:   "contact <phone-or-email>",
	Short: "Show statistics for one contact",
	Long: `Show message counts, date range and balance for the conversation with one
contact. The identifier must match one shown by "imsgstats contacts";
spaces, dashes and parentheses in phone numbers are ignored.

Examples:
  imsgstats contact +15551234567
  imsgstats contact "+1 (555) 123-4567" --balance
  imsgstats contact friend@example.com --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newAnalyzer()
		if convBalance {
			ca, err := a.ConversationAnalysis(cmd.Context(), args[0])
			if err != nil {
				return userError(err)
			}
			return render(cmd, ca, func(w io.Writer) {
				printConversationAnalysis(w, ca)
			})
		}

		stats, err := a.ContactStats(cmd.Context(), args[0])
		if err != nil {
			return userError(err)
		}
		return render(cmd, stats, func(w io.Writer) {
			printContactStats(w, stats)
		})
	},
}

var conversationCmd = &cobra.Command{
	Use:   "conversation <phone-or-email>",
	Short: "Print recent messages with one contact",
	Long: `Print the most recent messages exchanged with one contact, oldest first.
Message text is shown verbatim; handle it with care.

Examples:
  imsgstats conversation +15551234567
  imsgstats conversation +15551234567 --limit 500 --days-back 30
  imsgstats conversation friend@example.com --after 2024-06-01 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		after, err := parseDateFlag("after", convAfter)
		if err != nil {
			return err
		}
		before, err := parseDateFlag("before", convBefore)
		if err != nil {
			return err
		}

		t, err := newAnalyzer().GetConversation(cmd.Context(), args[0], analysis.ConversationOptions{
			Limit:    convLimit,
			DaysBack: convDaysBack,
			After:    after,
			Before:   before,
		})
		if err != nil {
			return userError(err)
		}
		return render(cmd, t, func(w io.Writer) {
			printTranscript(w, t)
		})
	},
}

func init() {
	rootCmd.AddCommand(contactCmd)
	rootCmd.AddCommand(conversationCmd)
	addJSONFlag(contactCmd)
	addJSONFlag(conversationCmd)
	contactCmd.Flags().BoolVar(&convBalance, "balance", false, "Show sent/received ratio instead of dates")
	conversationCmd.Flags().IntVarP(&convLimit, "limit", "n", analysis.DefaultConversationLimit, "Maximum number of messages (max 1000)")
	conversationCmd.Flags().IntVar(&convDaysBack, "days-back", 0, "Only messages from the last N days")
	conversationCmd.Flags().StringVar(&convAfter, "after", "", "Only messages on or after date (YYYY-MM-DD)")
	conversationCmd.Flags().StringVar(&convBefore, "before", "", "Only messages before date (YYYY-MM-DD)")
}
