package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/mem/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memories as JSON",
		Long:  "Export memories as a JSON array, oldest first. Filter by project with -p.",
		Args:  cobra.NoArgs,
		Run:   runExport,
	}

	cmd.Flags().StringP("project", "p", "", "Filter by project path")
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	project, _ := cmd.Flags().GetString("project")
	output, _ := cmd.Flags().GetString("output")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	memories, err := s.ExportAll(cmd.Context(), project)
	if err != nil {
		exitErr("export", err)
	}
	if memories == nil {
		memories = []model.Memory{}
	}

	if output == "" {
		printJSON(cmd, memories)
		return
	}

	b, err := json.MarshalIndent(memories, "", "  ")
	if err != nil {
		exitErr("encode export", err)
	}
	if err := os.WriteFile(output, append(b, '\n'), 0o644); err != nil {
		exitErr("write export", err)
	}
	printJSON(cmd, map[string]interface{}{"ok": true, "path": output, "exported": len(memories)})
}
