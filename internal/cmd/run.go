package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/accudoc/internal/config"
	"github.com/harrison/accudoc/internal/history"
	"github.com/harrison/accudoc/internal/logger"
	"github.com/harrison/accudoc/internal/models"
	"github.com/harrison/accudoc/internal/runner"
	"github.com/harrison/accudoc/internal/sandbox"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute every doctest in the documentation tree",
		Long: `Execute every doctest found under the documentation root.

Snippets run one at a time in document order and share one environment,
so a snippet can rely on state left behind by the snippets before it.
The command exits with status 1 when any snippet fails.

Examples:
  accudoc run
  accudoc run --docs ./guides --verbose
  accudoc run --timeout 5s           # Bound each snippet
  accudoc run --record               # Store the run in the history database
  accudoc run --log-dir .accudoc/logs`,
		Args: cobra.NoArgs,
		RunE: runCommand,
	}

	cmd.Flags().String("docs", "", "Documentation root (default: ./docs)")
	cmd.Flags().Bool("verbose", false, "Show stack traces for failures")
	cmd.Flags().String("timeout", "", "Per-snippet timeout, e.g. 10s (0 disables)")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().String("log-dir", "", "Directory for run log files")
	cmd.Flags().Bool("record", false, "Record the run in the history database")

	return cmd
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if err := mergeRunFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	consoleLog := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	multiLog := &multiLogger{loggers: []runner.Logger{consoleLog}}

	if cfg.LogDir != "" {
		fileLog, err := logger.NewFileLogger(resolve(root, cfg.LogDir), cfg.LogLevel)
		if err != nil {
			consoleLog.LogWarn(fmt.Sprintf("File logging disabled: %v", err))
		} else {
			defer fileLog.Close()
			multiLog.loggers = append(multiLog.loggers, fileLog)
			consoleLog.LogDebug(fmt.Sprintf("Writing run log to %s", fileLog.Path()))
		}
	}

	engine, err := sandbox.New(sandbox.Options{
		WorkDir: root,
		JSX:     cfg.JSX,
		Timeout: cfg.Timeout,
		Output:  cmd.OutOrStdout(),
	})
	if err != nil {
		return fmt.Errorf("failed to start sandbox: %w", err)
	}
	defer engine.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reporter := logger.NewReporter(cmd.OutOrStdout(), cfg.Verbose)
	reporter.Header(Version, root)

	r := runner.New(cfg, root, engine, multiLog)
	summary, runErr := r.RunAll(ctx)
	reporter.Report(summary)
	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}

	if cfg.History.Enabled {
		recordRun(context.Background(), resolve(root, cfg.History.DBPath), cfg.Docs, summary, consoleLog)
	}

	if !summary.OK() {
		return ErrDoctestsFailed
	}
	return nil
}

// mergeRunFlags applies the flags the user set on top of cfg
func mergeRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	var docsPtr *string
	if flags.Changed("docs") {
		docs, _ := flags.GetString("docs")
		docsPtr = &docs
	}

	var verbosePtr *bool
	if flags.Changed("verbose") {
		verbose, _ := flags.GetBool("verbose")
		verbosePtr = &verbose
	}

	var timeoutPtr *time.Duration
	if flags.Changed("timeout") {
		timeoutStr, _ := flags.GetString("timeout")
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return fmt.Errorf("invalid timeout format %q: %w", timeoutStr, err)
		}
		timeoutPtr = &timeout
	}

	var levelPtr *string
	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		levelPtr = &level
	}

	var recordPtr *bool
	if flags.Changed("record") {
		record, _ := flags.GetBool("record")
		recordPtr = &record
	}

	cfg.MergeWithFlags(docsPtr, verbosePtr, timeoutPtr, levelPtr, recordPtr)

	if flags.Changed("log-dir") {
		cfg.LogDir, _ = flags.GetString("log-dir")
	}
	return nil
}

func recordRun(ctx context.Context, dbPath, docsRoot string, summary *models.RunSummary, log runner.Logger) {
	store, err := history.Open(ctx, dbPath)
	if err != nil {
		log.LogWarn(fmt.Sprintf("History not recorded: %v", err))
		return
	}
	defer store.Close()

	id, err := store.RecordRun(ctx, docsRoot, summary)
	if err != nil {
		log.LogWarn(fmt.Sprintf("History not recorded: %v", err))
		return
	}
	log.LogInfo(fmt.Sprintf("Recorded run %s", id))
}

// multiLogger implements runner.Logger by delegating to multiple loggers
type multiLogger struct {
	loggers []runner.Logger
}

func (ml *multiLogger) LogTrace(message string) {
	for _, l := range ml.loggers {
		l.LogTrace(message)
	}
}

func (ml *multiLogger) LogDebug(message string) {
	for _, l := range ml.loggers {
		l.LogDebug(message)
	}
}

func (ml *multiLogger) LogInfo(message string) {
	for _, l := range ml.loggers {
		l.LogInfo(message)
	}
}

func (ml *multiLogger) LogWarn(message string) {
	for _, l := range ml.loggers {
		l.LogWarn(message)
	}
}

func (ml *multiLogger) LogError(message string) {
	for _, l := range ml.loggers {
		l.LogError(message)
	}
}

func (ml *multiLogger) LogSnippetResult(file string, result models.SnippetResult) {
	for _, l := range ml.loggers {
		l.LogSnippetResult(file, result)
	}
}

func (ml *multiLogger) LogProgress(done, total int) {
	for _, l := range ml.loggers {
		l.LogProgress(done, total)
	}
}

var _ runner.Logger = (*multiLogger)(nil)
var _ runner.Logger = (*logger.FileLogger)(nil)
var _ runner.Logger = (*logger.NoOpLogger)(nil)
var _ runner.Logger = (*logger.ConsoleLogger)(nil)
