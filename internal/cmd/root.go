package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/accudoc/internal/config"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// ErrDoctestsFailed is returned by the run command when any snippet failed
var ErrDoctestsFailed = errors.New("doctests failed")

// NewRootCommand creates and returns the root cobra command for accudoc
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accudoc",
		Short: "Run the code samples in your markdown documentation",
		Long: `Accudoc finds fenced code blocks marked as doctests in your markdown
documentation and executes them, so examples never drift from the code
they describe.

Mark a block as executable by adding "doctest" after its language tag:

  ` + "```javascript doctest" + `
  assertEqual(add(1, 2), 3);
  ` + "```" + `

Configuration is read from accudoc.yaml or .accudoc/config.yaml in the
current directory. CLI flags override configuration file settings.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: accudoc.yaml)")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewStripCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}

// loadConfig reads the configuration for the project in the current
// directory. A config file that cannot be loaded is reported on warn and
// the defaults are used.
func loadConfig(cmd *cobra.Command, warn io.Writer) (*config.Config, string, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve working directory: %w", err)
	}

	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg, err = config.LoadConfigFromDir(root)
	}
	if err != nil {
		fmt.Fprintf(warn, "warning: %v; using defaults\n", err)
		cfg = config.DefaultConfig()
	}

	return cfg, root, nil
}

// resolve joins a config path to the project root unless it is absolute
func resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
