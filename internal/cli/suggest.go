package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/mem/internal/suggest"
)

func init() {
	cmd := &cobra.Command{
		Use:   "suggest-rules",
		Short: "Suggest project rules from recurring session patterns",
		Long: "Analyze recent auto-captured memories for recurring terms and phrases and print " +
			"candidate rules as markdown. Use --format json for the raw counts.",
		Args: cobra.NoArgs,
		Run:  runSuggest,
	}

	cmd.Flags().IntP("limit", "l", 20, "Number of recent auto memories to analyze")

	RootCmd.AddCommand(cmd)
}

func runSuggest(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	memories, err := s.RecentAuto(cmd.Context(), limit)
	if err != nil {
		exitErr("suggest-rules", err)
	}

	report := suggest.Analyze(memories)
	if cmd.Flags().Changed("format") && formatFlag == "json" {
		printJSON(cmd, report)
		return
	}
	fmt.Fprint(cmd.OutOrStdout(), suggest.Markdown(report, time.Now()))
}
