package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/mem/internal/model"
	"github.com/rcliao/mem/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories",
		Run:   runList,
	}

	cmd.Flags().StringP("project", "p", "", "Filter by project path")
	cmd.Flags().String("scope", "", "Filter by scope: project or global")
	cmd.Flags().String("status", "", "Filter by status: active or cold")
	cmd.Flags().String("type", "", "Filter by type")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("ids-only", false, "Only output ids")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	project, _ := cmd.Flags().GetString("project")
	scope, _ := cmd.Flags().GetString("scope")
	status, _ := cmd.Flags().GetString("status")
	typ, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	memories, err := s.ListMemories(cmd.Context(), store.ListParams{
		Project: project,
		Scope:   model.Scope(scope),
		Status:  model.Status(status),
		Type:    model.Type(typ),
		Limit:   limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	if idsOnly {
		for _, m := range memories {
			fmt.Fprintln(cmd.OutOrStdout(), m.ID)
		}
		return
	}

	if memories == nil {
		memories = []model.Memory{}
	}
	printJSON(cmd, memories)
}
