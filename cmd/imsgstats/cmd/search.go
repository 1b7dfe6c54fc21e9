package cmd

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wesm/imsgstats/internal/analysis"
)

var (
	searchLimit  int
	searchAfter  string
	searchBefore string
)

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Find messages containing text",
	Long: `Find messages whose text contains the given words, ignoring case. When
more messages match than --limit, the most recent ones are shown, oldest
first.

Examples:
  imsgstats search dinner
  imsgstats search "see you soon" --limit 20
  imsgstats search birthday --after 2024-01-01 --before 2024-02-01`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		after, err := parseDateFlag("after", searchAfter)
		if err != nil {
			return err
		}
		before, err := parseDateFlag("before", searchBefore)
		if err != nil {
			return err
		}

		res, err := newAnalyzer().SearchMessages(cmd.Context(), strings.Join(args, " "), analysis.SearchOptions{
			Limit:  searchLimit,
			After:  after,
			Before: before,
		})
		if err != nil {
			return userError(err)
		}
		return render(cmd, res, func(w io.Writer) {
			printSearchResult(w, res)
		})
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	addJSONFlag(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", analysis.DefaultSearchLimit, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchAfter, "after", "", "Only messages on or after date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchBefore, "before", "", "Only messages before date (YYYY-MM-DD)")
}
