package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/mem/internal/store"
	"github.com/rcliao/mem/internal/transcript"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Show recent memories for a project",
		Long: "Assemble the most recent active memories for a project, plus global ones, packed " +
			"into a token budget. With --hook the project is read from the hook payload on stdin.",
		Args: cobra.NoArgs,
		Run:  runContext,
	}

	cmd.Flags().StringP("project", "p", "", "Project path")
	cmd.Flags().IntP("limit", "l", store.DefaultContextLimit, "Max memories")
	cmd.Flags().IntP("budget", "b", 0, "Max tokens in output (0 for no limit)")
	cmd.Flags().Bool("hook", false, "Read the project from hook JSON on stdin")
	cmd.Flags().Bool("compact", false, "Emit {\"additionalContext\": markdown} for session hooks")
	cmd.Flags().StringP("out", "o", "", "Write markdown to a file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	project, _ := cmd.Flags().GetString("project")
	limit, _ := cmd.Flags().GetInt("limit")
	budget, _ := cmd.Flags().GetInt("budget")
	hook, _ := cmd.Flags().GetBool("hook")
	compact, _ := cmd.Flags().GetBool("compact")
	outPath, _ := cmd.Flags().GetString("out")

	if hook && project == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			exitErr("read hook", err)
		}
		h, err := transcript.ParseHook(data)
		if err != nil {
			log.Warn().Err(err).Msg("Ignoring unreadable hook payload")
		}
		project = h.Cwd
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	res, err := s.Context(cmd.Context(), store.ContextParams{
		Project: project,
		Limit:   limit,
		Budget:  budget,
	})
	if err != nil {
		exitErr("context", err)
	}

	switch {
	case outPath != "":
		if err := os.WriteFile(outPath, []byte(contextMarkdown(res)), 0o644); err != nil {
			exitErr("write context", err)
		}
		printJSON(cmd, map[string]interface{}{"ok": true, "path": outPath, "memories": len(res.Memories)})
	case compact:
		b, err := json.Marshal(map[string]string{"additionalContext": contextMarkdown(res)})
		if err != nil {
			exitErr("encode output", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
	case formatFlag == "text":
		fmt.Fprint(cmd.OutOrStdout(), contextMarkdown(res))
	default:
		printJSON(cmd, res)
	}
}

func contextMarkdown(res *store.ContextResult) string {
	var b strings.Builder
	b.WriteString("# Recent Session Memory\n\n")
	if len(res.Memories) == 0 {
		b.WriteString("No recent memories for this project.\n")
		return b.String()
	}
	for i, m := range res.Memories {
		fmt.Fprintf(&b, "## %d. %s (%s)\n\n", i+1, m.Title, m.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
		b.WriteString(strings.TrimRight(m.Content, "\n"))
		b.WriteString("\n\n")
	}
	return b.String()
}
