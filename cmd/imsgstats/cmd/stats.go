package cmd

import (
	"io"

	"github.com/spf13/cobra"
)

var wordsTop int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show message counts and top senders",
	Long: `Show store-wide statistics: total messages, unique senders, the most
active senders, and average and longest message length.

Examples:
  imsgstats stats
  imsgstats stats --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := newAnalyzer().BasicStats(cmd.Context())
		if err != nil {
			return userError(err)
		}
		return render(cmd, stats, func(w io.Writer) {
			printBasicStats(w, stats)
		})
	},
}

var wordsCmd = &cobra.Command{
	Use:   "words",
	Short: "Show the most frequent words",
	Long: `Show the most frequent words across all messages. Words are lowercased,
punctuation is removed, and short words and common stop words are skipped.
Extra stop words can be added under [analysis] in config.toml.

Examples:
  imsgstats words
  imsgstats words -n 25`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := newAnalyzer().WordFrequency(cmd.Context(), wordsTop)
		if err != nil {
			return userError(err)
		}
		return render(cmd, wf, func(w io.Writer) {
			printWordFrequency(w, wf)
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(wordsCmd)
	addJSONFlag(statsCmd)
	addJSONFlag(wordsCmd)
	wordsCmd.Flags().IntVarP(&wordsTop, "top", "n", 10, "Number of words to show")
}

