package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	st, err := s.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	if formatFlag == "text" {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "db:             %s (%d bytes)\n", st.DBPath, st.DBSizeBytes)
		fmt.Fprintf(out, "schema version: %d\n", st.SchemaVersion)
		fmt.Fprintf(out, "memories:       %d (%d active, %d cold, %d global)\n",
			st.TotalMemories, st.ActiveMemories, st.ColdMemories, st.GlobalMemories)
		fmt.Fprintf(out, "sessions:       %d\n", st.Sessions)
		fmt.Fprintf(out, "projects:       %d\n", st.Projects)
		fmt.Fprintf(out, "indexed files:  %d\n", st.IndexedFiles)
		for _, p := range st.ByProject {
			fmt.Fprintf(out, "  %-40s %d\n", p.Project, p.Count)
		}
		return
	}

	printJSON(cmd, st)
}
