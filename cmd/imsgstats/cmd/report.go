package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wesm/imsgstats/internal/fileutil"
)

var (
	reportOutput string
	reportWords  int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print every statistic at once",
	Long: `Compute basic statistics, word frequency and the top conversations in one
pass and print them. With --output the report is written to a JSON file
(readable only by you) instead.

Examples:
  imsgstats report
  imsgstats report --output message_stats.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newAnalyzer().Report(cmd.Context(), reportWords)
		if err != nil {
			return userError(err)
		}

		if reportOutput != "" {
			data, err := json.MarshalIndent(r, "", "  ")
			if err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			if err := fileutil.WriteFileAtomic(reportOutput, append(data, '\n'), 0o600); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", reportOutput)
			return nil
		}

		if wantJSON(cmd.OutOrStdout()) {
			return writeJSON(cmd.OutOrStdout(), r)
		}
		printReport(cmd.OutOrStdout(), r)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	addJSONFlag(reportCmd)
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write the report as JSON to this file")
	reportCmd.Flags().IntVarP(&reportWords, "words", "w", 10, "Number of words in the word-frequency section")
}
