package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/mem/internal/model"
	"github.com/rcliao/mem/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "save [content]",
		Short: "Save a memory",
		Long:  "Save a memory. Content comes from args or stdin.",
		Run:   runSave,
	}

	cmd.Flags().StringP("title", "t", "", "Title (required)")
	cmd.Flags().String("type", string(model.TypeManual), "Type: manual, pattern or decision")
	cmd.Flags().StringP("project", "p", "", "Project path")
	cmd.Flags().String("session", "", "Session id")

	cmd.MarkFlagRequired("title")

	RootCmd.AddCommand(cmd)
}

func runSave(cmd *cobra.Command, args []string) {
	title, _ := cmd.Flags().GetString("title")
	typ, _ := cmd.Flags().GetString("type")
	project, _ := cmd.Flags().GetString("project")
	session, _ := cmd.Flags().GetString("session")

	content, err := readInput(cmd, args)
	if err != nil {
		exitErr("save", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	m, err := s.SaveMemory(cmd.Context(), store.SaveParams{
		Title:     title,
		Content:   content,
		Type:      model.Type(typ),
		Project:   project,
		SessionID: session,
	})
	if err != nil {
		exitErr("save", err)
	}

	printJSON(cmd, m)
}
