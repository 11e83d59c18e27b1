package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/accudoc/internal/models"
	"github.com/harrison/accudoc/internal/runner"
)

const passingDoc = "# Math\n\n```javascript doctest\nassertEqual(1 + 1, 2);\n```\n"

const failingDoc = "# Broken\n\n```js doctest\nassertEqual(1 + 1, 3);\n```\n"

func TestRunCommand_Passes(t *testing.T) {
	root := project(t, map[string]string{"docs/math.md": passingDoc})

	stdout, _, err := execute(t, "run")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ACCUDOC")
	assert.Contains(t, stdout, root)
	assert.Contains(t, stdout, "✓ docs/math.md (1/1)")
	assert.Contains(t, stdout, "Tests  1 passed (1)")
}

func TestRunCommand_FailureExitsWithError(t *testing.T) {
	project(t, map[string]string{
		"docs/math.md":   passingDoc,
		"docs/broken.md": failingDoc,
	})

	stdout, _, err := execute(t, "run")
	assert.True(t, errors.Is(err, ErrDoctestsFailed), "err = %v", err)
	assert.Contains(t, stdout, "× docs/broken.md > doctest @ line 3")
	assert.Contains(t, stdout, "Expected 3, but got 2")
}

func TestRunCommand_DocsFlag(t *testing.T) {
	project(t, map[string]string{
		"docs/broken.md": failingDoc,
		"guides/math.md": passingDoc,
		"accudoc.yaml":   "docs: ./docs\n",
	})

	stdout, _, err := execute(t, "run", "--docs", "guides")
	require.NoError(t, err)
	assert.Contains(t, stdout, "guides/math.md")
	assert.NotContains(t, stdout, "broken")
}

func TestRunCommand_InvalidTimeout(t *testing.T) {
	project(t, nil)

	_, _, err := execute(t, "run", "--timeout", "soon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timeout format")
}

func TestRunCommand_TimeoutFailsSnippet(t *testing.T) {
	project(t, map[string]string{
		"docs/slow.md": "```js doctest\nawait new Promise(() => {});\n```\n",
	})

	stdout, _, err := execute(t, "run", "--timeout", "100ms")
	assert.ErrorIs(t, err, ErrDoctestsFailed)
	assert.Contains(t, stdout, "snippet timed out")
}

func TestRunCommand_RecordAndLogDir(t *testing.T) {
	root := project(t, map[string]string{"docs/math.md": passingDoc})

	_, _, err := execute(t, "run", "--record", "--log-dir", "logs")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, ".accudoc", "history.db"))
	assert.NoError(t, err, "history database should be created")

	entries, err := os.ReadDir(filepath.Join(root, "logs"))
	require.NoError(t, err)
	var runLogs int
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "run-") {
			runLogs++
		}
	}
	assert.Equal(t, 1, runLogs)

	stdout, _, err := execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1/1 passed")
}

func TestRunCommand_NoDoctests(t *testing.T) {
	project(t, map[string]string{"docs/plain.md": "# Nothing here\n"})

	stdout, _, err := execute(t, "run")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No doctests found")
}

func TestRunCommand_SetupScript(t *testing.T) {
	project(t, map[string]string{
		"accudoc.yaml":  "setup: ./setup.js\n",
		"setup.js":      "({ api: { ping: () => 'pong' } })",
		"docs/setup.md": "```js doctest\nassertEqual(api.ping(), 'pong');\n```\n",
	})

	stdout, _, err := execute(t, "run")
	require.NoError(t, err, stdout)
}

func TestMultiLogger_Forwards(t *testing.T) {
	a, b := &countingLogger{}, &countingLogger{}
	ml := &multiLogger{loggers: []runner.Logger{a, b}}

	ml.LogTrace("t")
	ml.LogInfo("x")
	ml.LogWarn("y")
	ml.LogProgress(1, 2)

	assert.Equal(t, 4, a.calls)
	assert.Equal(t, 4, b.calls)
}

type countingLogger struct {
	calls int
}

func (c *countingLogger) LogTrace(string)                               { c.calls++ }
func (c *countingLogger) LogDebug(string)                               { c.calls++ }
func (c *countingLogger) LogInfo(string)                                { c.calls++ }
func (c *countingLogger) LogWarn(string)                                { c.calls++ }
func (c *countingLogger) LogError(string)                               { c.calls++ }
func (c *countingLogger) LogSnippetResult(string, models.SnippetResult) { c.calls++ }
func (c *countingLogger) LogProgress(int, int)                          { c.calls++ }
