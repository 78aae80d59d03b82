package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rcliao/mem/internal/model"
	"github.com/rcliao/mem/internal/store"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "promote <id>",
		Short: "Make a memory global so it appears in every project",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runScope(cmd, args[0], "promote", model.ScopeGlobal, (*store.SQLiteStore).Promote)
		},
	})

	RootCmd.AddCommand(&cobra.Command{
		Use:   "demote <id>",
		Short: "Return a global memory to project scope",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runScope(cmd, args[0], "demote", model.ScopeProject, (*store.SQLiteStore).Demote)
		},
	})
}

func runScope(cmd *cobra.Command, id, op string, scope model.Scope, apply func(*store.SQLiteStore, context.Context, string) error) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := apply(s, cmd.Context(), id); err != nil {
		exitErr(op, err)
	}

	printJSON(cmd, map[string]interface{}{"ok": true, "id": id, "scope": scope})
}
