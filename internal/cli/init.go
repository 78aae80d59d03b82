package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and apply schema changes",
		Run:   runInit,
	}

	RootCmd.AddCommand(cmd)
}

func runInit(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	version, err := s.SchemaVersion(cmd.Context())
	if err != nil {
		exitErr("schema version", err)
	}

	printJSON(cmd, map[string]interface{}{
		"ok":             true,
		"db":             s.Path(),
		"schema_version": version,
	})
}
