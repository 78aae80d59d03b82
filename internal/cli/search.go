package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/mem/internal/markdown"
	"github.com/rcliao/mem/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories and indexed files",
		Long: "Full-text search over saved memories and indexed memory files. The query is matched " +
			"as a literal phrase; search operators are not interpreted.",
		Args: cobra.MinimumNArgs(1),
		Run:  runSearch,
	}

	cmd.Flags().StringP("project", "p", "", "Filter by project path (global memories always match)")
	cmd.Flags().String("kind", "", "Restrict to one source: memory or file")
	cmd.Flags().IntP("limit", "l", store.DefaultSearchLimit, "Max results")
	cmd.Flags().Bool("include-cold", false, "Include decayed memories")
	cmd.Flags().Bool("full", false, "Print full file content instead of an excerpt")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	project, _ := cmd.Flags().GetString("project")
	kind, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt("limit")
	includeCold, _ := cmd.Flags().GetBool("include-cold")
	full, _ := cmd.Flags().GetBool("full")
	query := strings.Join(args, " ")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.Search(cmd.Context(), store.SearchParams{
		Query:       query,
		Kind:        store.Kind(kind),
		Project:     project,
		Limit:       limit,
		IncludeCold: includeCold,
	})
	if err != nil {
		exitErr("search", err)
	}

	var ids []string
	for _, r := range results {
		if r.Memory != nil {
			ids = append(ids, r.Memory.ID)
		}
		if r.File != nil && !full {
			r.File.Content = markdown.Excerpt(r.File.Content, markdown.DefaultExcerptSize)
		}
	}
	if _, err := s.TouchMemories(cmd.Context(), ids); err != nil {
		log.Warn().Err(err).Msg("Failed to record search access")
	}

	if formatFlag == "text" {
		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No results.")
			return
		}
		for _, r := range results {
			if r.Memory != nil {
				fmt.Fprintf(out, "[memory] %s  %s\n", r.Memory.ID, r.Memory.Title)
				continue
			}
			fmt.Fprintf(out, "[file]   %s  %s\n", r.File.SourcePath, r.File.Title)
		}
		return
	}

	if results == nil {
		results = []store.SearchResult{}
	}
	printJSON(cmd, results)
}
