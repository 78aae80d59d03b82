package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/mem/internal/model"
	"github.com/rcliao/mem/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a memory's title, content or type",
		Long:  "Change a memory in place. Only the flags given are updated; the search index follows.",
		Args:  cobra.ExactArgs(1),
		Run:   runEdit,
	}

	cmd.Flags().StringP("title", "t", "", "New title")
	cmd.Flags().StringP("content", "c", "", "New content")
	cmd.Flags().String("type", "", "New type: manual, pattern or decision")

	RootCmd.AddCommand(cmd)
}

func runEdit(cmd *cobra.Command, args []string) {
	p := store.UpdateParams{ID: args[0]}
	if cmd.Flags().Changed("title") {
		v, _ := cmd.Flags().GetString("title")
		p.Title = &v
	}
	if cmd.Flags().Changed("content") {
		v, _ := cmd.Flags().GetString("content")
		p.Content = &v
	}
	if cmd.Flags().Changed("type") {
		v, _ := cmd.Flags().GetString("type")
		t := model.Type(v)
		p.Type = &t
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	m, err := s.UpdateMemory(cmd.Context(), p)
	if err != nil {
		exitErr("edit", err)
	}

	printJSON(cmd, m)
}
