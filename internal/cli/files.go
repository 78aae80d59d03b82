package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/mem/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List indexed memory files",
		Args:  cobra.NoArgs,
		Run:   runFiles,
	}

	cmd.Flags().String("root", "", "Only files under this root (default: all)")

	RootCmd.AddCommand(cmd)
}

func runFiles(cmd *cobra.Command, args []string) {
	root, _ := cmd.Flags().GetString("root")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	files, err := s.ListIndexedFiles(cmd.Context(), root)
	if err != nil {
		exitErr("files", err)
	}

	if formatFlag == "text" {
		for _, f := range files {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", f.ProjectName, f.SourcePath)
		}
		return
	}

	if files == nil {
		files = []model.IndexedFile{}
	}
	for i := range files {
		files[i].Content = ""
	}
	printJSON(cmd, files)
}
