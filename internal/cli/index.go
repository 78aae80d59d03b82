package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/mem/internal/indexer"
	"github.com/rcliao/mem/internal/pathdecode"
)

func init() {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index project memory files",
		Long: "Scan each project directory under the root for memory documents and keep the " +
			"searchable index in step with them. Unchanged files are not re-read; files that no " +
			"longer exist are removed from the index.",
		Args: cobra.NoArgs,
		Run:  runIndex,
	}

	cmd.Flags().String("root", "", "Scan root (default: index.root from config, ~/.claude/projects)")
	cmd.Flags().Bool("dry-run", false, "Report what would change without writing")
	cmd.Flags().String("path", "", "Index a single file under the root")
	cmd.Flags().Bool("watch", false, "Keep running and rescan when memory files change")

	RootCmd.AddCommand(cmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	root, _ := cmd.Flags().GetString("root")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	single, _ := cmd.Flags().GetString("path")
	watch, _ := cmd.Flags().GetBool("watch")

	if root == "" {
		root = cfg.Index.Root
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ix, err := indexer.New(s, pathdecode.New(cfg.Index.Manifest, log), cfg.Index.Patterns, log)
	if err != nil {
		exitErr("index", err)
	}

	if watch {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err := ix.Watch(ctx, indexer.WatchOptions{
			Root: root,
			OnScan: func(summary *indexer.Summary, err error) {
				if err != nil {
					log.Error().Err(err).Msg("Rescan failed")
					return
				}
				summary.Files = nil
				printJSON(cmd, summary)
			},
		})
		if err != nil {
			exitErr("watch", err)
		}
		return
	}

	summary, err := ix.Scan(cmd.Context(), indexer.ScanOptions{
		Root:       root,
		DryRun:     dryRun,
		SinglePath: single,
	})
	if err != nil {
		exitErr("index", err)
	}

	printJSON(cmd, summary)
}
