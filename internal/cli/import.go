package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/mem/internal/model"
	"github.com/rcliao/mem/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import memories from JSON",
		Long: "Import memories from a file, or stdin when the file is omitted or \"-\". Expects the " +
			"format produced by export. Each memory gets a new id. Memories of type auto are " +
			"stored as manual unless --keep-auto is given.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImport,
	}

	cmd.Flags().Bool("keep-auto", false, "Keep the auto type on imported memories (only for exports you trust)")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	keepAuto, _ := cmd.Flags().GetBool("keep-auto")

	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		exitErr("read import", err)
	}

	var memories []model.Memory
	if err := json.Unmarshal(data, &memories); err != nil {
		exitErr("parse json", fmt.Errorf("%w: %w", store.ErrInvalidInput, err))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := s.Import(cmd.Context(), memories, store.ImportOptions{KeepAuto: keepAuto})
	if err != nil {
		fmt.Fprintf(os.Stderr, "imported %d of %d before failing\n", imported, len(memories))
		exitErr("import", err)
	}

	printJSON(cmd, map[string]interface{}{"ok": true, "imported": imported})
}
