// Package cli implements the mem CLI commands.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rcliao/mem/internal/config"
	"github.com/rcliao/mem/internal/logger"
	"github.com/rcliao/mem/internal/store"
)

var (
	dbPath     string
	configPath string
	logLevel   string
	formatFlag string

	cfg config.Config
	log zerolog.Logger
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "mem",
	Short: "Persistent memory for coding sessions",
	Long: "A local memory store for an AI coding assistant. Saves notes, indexes project memory " +
		"files, and searches both. SQLite-backed, single binary.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $MEM_DB or ~/.mem/mem.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $MEM_CONFIG or ~/.mem/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dbPath != "" {
		loaded.DB.Path = dbPath
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	cfg = loaded
	log = logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	return nil
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.DB.Path, store.WithLogger(log))
}

// exitErr prints the failed operation and exits. Validation failures exit 2.
func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	if errors.Is(err, store.ErrInvalidInput) {
		os.Exit(2)
	}
	os.Exit(1)
}

func printJSON(cmd *cobra.Command, v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		exitErr("encode output", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

// readInput returns the joined args, or stdin when no args are given and stdin is
// not a terminal.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
