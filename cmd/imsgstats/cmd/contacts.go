package cmd

import (
	"io"

	"github.com/spf13/cobra"
)

var (
	contactsLimit int
	topN          int
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "List contacts by message count",
	Long: `List the phone numbers and email addresses you exchange messages with,
ranked by the number of messages in each conversation. Identifiers are shown
as stored in the Messages database; they are not resolved to names.

Examples:
  imsgstats contacts
  imsgstats contacts --limit 50 --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		contacts, err := newAnalyzer().ListContacts(cmd.Context(), contactsLimit)
		if err != nil {
			return userError(err)
		}
		return render(cmd, contacts, func(w io.Writer) {
			printContacts(w, contacts)
		})
	},
}

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the largest conversations and who talks more",
	Long: `Show the conversations with the most messages, with the share written by
each side and who talks more.

Examples:
  imsgstats top
  imsgstats top -n 10`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		overview, err := newAnalyzer().TopConversations(cmd.Context(), topN)
		if err != nil {
			return userError(err)
		}
		return render(cmd, overview, func(w io.Writer) {
			printOverview(w, overview)
		})
	},
}

func init() {
	rootCmd.AddCommand(contactsCmd)
	rootCmd.AddCommand(topCmd)
	addJSONFlag(contactsCmd)
	addJSONFlag(topCmd)
	contactsCmd.Flags().IntVarP(&contactsLimit, "limit", "n", 20, "Maximum number of contacts")
	topCmd.Flags().IntVarP(&topN, "top", "n", 5, "Number of conversations")
}
