package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/accudoc/internal/docs"
	"github.com/harrison/accudoc/internal/extractor"
	"github.com/harrison/accudoc/internal/runner"
)

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the doctests accudoc would run",
		Long: `List every doctest under the documentation root without executing it.

Each line shows the file, the line of the opening fence, the language tag
and the heading the snippet appears under.`,
		Args: cobra.NoArgs,
		RunE: listCommand,
	}

	cmd.Flags().String("docs", "", "Documentation root (default: ./docs)")
	cmd.Flags().Int("depth", 0, "Maximum directory depth to search (0 = unlimited)")
	cmd.Flags().Bool("sort", false, "Order files by path instead of walk order")

	return cmd
}

func listCommand(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("docs") {
		cfg.Docs, _ = cmd.Flags().GetString("docs")
	}

	depth, _ := cmd.Flags().GetInt("depth")
	if depth < 0 {
		return fmt.Errorf("--depth must not be negative, got %d", depth)
	}
	sorted, _ := cmd.Flags().GetBool("sort")

	files, err := runner.Discover(resolve(root, cfg.Docs), runner.DiscoverOptions{MaxDepth: depth, Sorted: sorted})
	if err != nil {
		return fmt.Errorf("failed to discover documentation: %w", err)
	}

	out := cmd.OutOrStdout()
	total, withTests := 0, 0
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			continue
		}

		snippets := extractor.Extract(string(src), file)
		if len(snippets) == 0 {
			continue
		}
		withTests++
		total += len(snippets)

		headings := make(map[int]string)
		for _, b := range docs.Blocks(src) {
			headings[b.Line] = b.Heading
		}

		rel, err := filepath.Rel(root, file)
		if err != nil {
			rel = file
		}
		for _, s := range snippets {
			line := fmt.Sprintf("%s:%d", filepath.ToSlash(rel), s.SourceLine)
			if heading := headings[s.SourceLine]; heading != "" {
				fmt.Fprintf(out, "%-40s %-10s %s\n", line, s.Language, heading)
			} else {
				fmt.Fprintf(out, "%-40s %s\n", line, s.Language)
			}
		}
	}

	fmt.Fprintf(out, "\n%d doctest(s) in %d file(s)\n", total, withTests)
	return nil
}
