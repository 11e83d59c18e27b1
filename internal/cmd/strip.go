package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/accudoc/internal/docs"
	"github.com/harrison/accudoc/internal/filelock"
	"github.com/harrison/accudoc/internal/fileutil"
)

// NewStripCommand creates the strip command
func NewStripCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strip [files...]",
		Short: "Produce reader-facing documentation from doctest markdown",
		Long: `Rewrite doctest markdown for publishing.

Hidden setup lines are removed, assertions are removed unless
strip_assertions is false, and the doctest marker is dropped from each
fence. Without file arguments every file under the documentation root
matching the include globs (and none of the exclude globs) is processed.

Output goes to stdout unless --out is given, in which case each file is
written under that directory with its path relative to the docs root.

Examples:
  accudoc strip docs/guide.md
  accudoc strip --out site/content
  accudoc strip --html --out site/preview`,
		RunE: stripCommand,
	}

	cmd.Flags().String("out", "", "Write processed files under this directory")
	cmd.Flags().Bool("html", false, "Render processed markdown to HTML")
	cmd.Flags().Bool("keep-assertions", false, "Keep assertion calls in the output")

	return cmd
}

func stripCommand(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	outDir, _ := cmd.Flags().GetString("out")
	renderHTML, _ := cmd.Flags().GetBool("html")
	keep, _ := cmd.Flags().GetBool("keep-assertions")
	opts := docs.Options{StripAssertions: cfg.StripAssertions && !keep}

	docsRoot := resolve(root, cfg.Docs)
	files := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", arg, err)
		}
		files = append(files, abs)
	}
	if len(files) == 0 {
		result, err := fileutil.ScanDirectory(docsRoot, fileutil.ScanOptions{
			Recursive:    true,
			Include:      cfg.Include,
			Exclude:      cfg.Exclude,
			AllowMissing: true,
		})
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", docsRoot, err)
		}
		files = result.Files
	}

	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		out := docs.Process(src, opts)
		if renderHTML {
			if out, err = docs.RenderHTML(out); err != nil {
				return fmt.Errorf("failed to render %s: %w", file, err)
			}
		}

		if outDir == "" {
			if _, err := cmd.OutOrStdout().Write(out); err != nil {
				return err
			}
			continue
		}

		dest := filepath.Join(outDir, outputName(docsRoot, file, renderHTML))
		if err := filelock.LockAndWrite(cmd.Context(), dest, out); err != nil {
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", dest)
	}

	return nil
}

// outputName is file's path below docsRoot, or its base name when it lies
// outside the root
func outputName(docsRoot, file string, html bool) string {
	name, err := filepath.Rel(docsRoot, file)
	if err != nil || strings.HasPrefix(name, "..") {
		name = filepath.Base(file)
	}
	if html {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".html"
	}
	return name
}
