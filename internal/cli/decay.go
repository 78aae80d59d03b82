package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/mem/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "decay",
		Short: "Mark stale memories cold",
		Long: "Score active memories by retention, (access_count + 1) / (1 + age_days * 0.05), and " +
			"mark those below the threshold cold. Cold memories are hidden from search and context.",
		Args: cobra.NoArgs,
		Run:  runDecay,
	}

	cmd.Flags().Float64("threshold", store.DefaultDecayThreshold, "Retention below which memories go cold")
	cmd.Flags().Bool("dry-run", false, "Report what would change without writing")
	cmd.Flags().String("revive", "", "Mark a cold memory active again")

	RootCmd.AddCommand(cmd)
}

func runDecay(cmd *cobra.Command, args []string) {
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	revive, _ := cmd.Flags().GetString("revive")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if revive != "" {
		if err := s.Reactivate(cmd.Context(), revive); err != nil {
			exitErr("revive", err)
		}
		printJSON(cmd, map[string]interface{}{"ok": true, "revived": revive})
		return
	}

	res, err := s.RunDecay(cmd.Context(), threshold, dryRun)
	if err != nil {
		exitErr("decay", err)
	}

	printJSON(cmd, res)
}
