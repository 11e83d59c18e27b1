// Package runner discovers documentation, executes its doctests and folds
// the results into a run summary.
//
// Execution is strictly sequential. Every snippet of a run shares one
// environment and one global scope, so a snippet may depend on the side
// effects of the snippets before it. A snippet that times out resets both.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrison/accudoc/internal/config"
	"github.com/harrison/accudoc/internal/environment"
	"github.com/harrison/accudoc/internal/extractor"
	"github.com/harrison/accudoc/internal/logger"
	"github.com/harrison/accudoc/internal/models"
	"github.com/harrison/accudoc/internal/sandbox"
	"github.com/harrison/accudoc/internal/transformer"
)

// Logger defines the runner's logging needs
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogSnippetResult(file string, result models.SnippetResult)
	LogProgress(done, total int)
}

// Executor runs transformed code against a shared global scope
type Executor interface {
	environment.Evaluator
	Execute(ctx context.Context, name, code string) error
	Install(ctx context.Context, env *environment.Environment) error
}

// Runner executes the doctests of a documentation tree
type Runner struct {
	cfg    *config.Config
	root   string
	exec   Executor
	logger Logger
}

// New creates a Runner for the project rooted at root
// A nil logger discards messages.
func New(cfg *config.Config, root string, exec Executor, log Logger) *Runner {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Runner{cfg: cfg, root: root, exec: exec, logger: log}
}

// DocsRoot returns the absolute documentation root
func (r *Runner) DocsRoot() string {
	if filepath.IsAbs(r.cfg.Docs) {
		return r.cfg.Docs
	}
	return filepath.Join(r.root, r.cfg.Docs)
}

// Environment builds the environment shared by a run. The setup script is
// used when configured; if it fails the default DOM mock is used instead.
func (r *Runner) Environment(ctx context.Context) *environment.Environment {
	if r.cfg.Setup != "" {
		setup := r.cfg.Setup
		if !filepath.IsAbs(setup) {
			setup = filepath.Join(r.root, setup)
		}
		env, err := environment.ScriptFactory(setup)(ctx, r.exec)
		if err == nil {
			r.logger.LogDebug(fmt.Sprintf("Environment from %s: %v", r.cfg.Setup, env.Names()))
			return env
		}
		r.logger.LogWarn(fmt.Sprintf("Setup failed, using default environment: %v", err))
	}

	env, err := environment.DOMFactory(ctx, r.exec)
	if err != nil {
		r.logger.LogWarn(fmt.Sprintf("Default environment unavailable: %v", err))
		return environment.New(nil)
	}
	return env
}

// RunAll executes every doctest under the documentation root. Faults in a
// snippet or file never abort the run; only cancellation of ctx does, in
// which case the partial summary is returned with ctx's error.
func (r *Runner) RunAll(ctx context.Context) (*models.RunSummary, error) {
	summary := &models.RunSummary{StartedAt: time.Now()}
	defer func() { summary.Duration = time.Since(summary.StartedAt) }()

	files, err := DiscoverDocuments(r.DocsRoot())
	if err != nil {
		r.logger.LogWarn(fmt.Sprintf("Discovery failed: %v", err))
		return summary, nil
	}
	r.logger.LogDebug(fmt.Sprintf("Discovered %d markdown files under %s", len(files), r.DocsRoot()))

	env := r.Environment(ctx)

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		outcome, err := r.ProcessFile(ctx, file, env)
		if err != nil {
			r.logger.LogWarn(err.Error())
		} else {
			summary.AddFile(outcome)
		}
		r.logger.LogProgress(i+1, len(files))
	}

	return summary, nil
}

// ProcessFile executes the doctests of one markdown file in source order.
// Once ctx is done the remaining snippets are skipped, and a snippet cut
// short by the cancellation is not recorded.
func (r *Runner) ProcessFile(ctx context.Context, path string, env *environment.Environment) (models.FileOutcome, error) {
	outcome := models.FileOutcome{FilePath: r.relative(path)}

	content, err := os.ReadFile(path)
	if err != nil {
		return outcome, fmt.Errorf("failed to read %s: %w", outcome.FilePath, err)
	}

	for _, snippet := range extractor.Extract(string(content), path) {
		if ctx.Err() != nil {
			break
		}
		result := r.ExecuteOne(ctx, snippet, env)
		if ctx.Err() != nil && !result.Success {
			break
		}
		outcome.Add(snippet, result)
		r.logger.LogSnippetResult(outcome.FilePath, models.SnippetResult{Snippet: snippet, Result: result})
	}
	return outcome, nil
}

// ExecuteOne transforms and runs a single snippet. Every fault is returned
// as a failed result. A timeout replaces the runtime, so env is rebuilt in
// place for the snippets that follow.
func (r *Runner) ExecuteOne(ctx context.Context, snippet models.Snippet, env *environment.Environment) models.ExecutionResult {
	start := time.Now()

	code, err := transformer.Transform(snippet.Code, snippet.IsExtendedSyntax, transformer.Options{
		Imports: r.cfg.Imports,
		JSX:     r.cfg.JSX,
		WorkDir: r.root,
	})
	if err != nil {
		return models.Failed(err.Error(), "", time.Since(start))
	}

	if env != nil {
		if err := r.exec.Install(ctx, env); err != nil {
			return failure(fmt.Errorf("install environment: %w", err), time.Since(start))
		}
	}

	name := fmt.Sprintf("%s:%d", r.relative(snippet.SourceFile), snippet.SourceLine)
	r.logger.LogTrace(fmt.Sprintf("%s transformed:\n%s", name, code))
	if err := r.exec.Execute(ctx, name, code); err != nil {
		result := failure(err, time.Since(start))
		if errors.Is(err, sandbox.ErrTimeout) && env != nil {
			r.logger.LogWarn(fmt.Sprintf("%s timed out, rebuilding the environment", name))
			env.Replace(r.Environment(ctx))
		}
		return result
	}
	return models.Passed(time.Since(start))
}

func failure(err error, duration time.Duration) models.ExecutionResult {
	var se *sandbox.ScriptError
	if errors.As(err, &se) {
		return models.Failed(se.Message, se.Stack, duration)
	}
	return models.Failed(err.Error(), "", duration)
}

func (r *Runner) relative(path string) string {
	if rel, err := filepath.Rel(r.root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
