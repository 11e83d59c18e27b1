package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/harrison/accudoc/internal/models"
)

// maxStackLines is the number of trace lines shown per failure in verbose mode
const maxStackLines = 5

// Reporter renders run summaries for the terminal
type Reporter struct {
	w       io.Writer
	verbose bool
	colors  *colorScheme
}

// NewReporter creates a Reporter writing to w. Colors are used when w is a terminal.
func NewReporter(w io.Writer, verbose bool) *Reporter {
	return &Reporter{w: w, verbose: verbose, colors: newColorScheme(isTerminal(w))}
}

// Header prints the banner shown before a run
func (r *Reporter) Header(version, root string) {
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "%s v%s %s\n", r.colors.banner.Sprint(" ACCUDOC "), version, r.colors.dim.Sprint(root))
	fmt.Fprintln(r.w)
}

// Report prints per-file results, failure details and the totals footer
func (r *Reporter) Report(summary *models.RunSummary) {
	c := r.colors

	for _, file := range summary.Files {
		counts := c.dim.Sprintf("(%d/%d)", file.Passed, file.Total)
		if file.Failed == 0 {
			fmt.Fprintf(r.w, "%s%s %s\n", c.success.Sprint(" ✓ "), c.dim.Sprint(file.FilePath), counts)
		} else {
			fmt.Fprintf(r.w, "%s%s %s\n", c.fail.Sprint(" ✗ "), file.FilePath, counts)
		}
		for _, failure := range file.Failures() {
			fmt.Fprintf(r.w, "   %s\n", c.fail.Sprintf("× doctest @ line %d", failure.Snippet.SourceLine))
		}
	}

	if summary.TotalFailed > 0 {
		r.failures(summary)
	}

	fmt.Fprintln(r.w)
	if summary.TotalTests == 0 {
		r.emptyHint()
		return
	}
	r.totals(summary)
}

func (r *Reporter) failures(summary *models.RunSummary) {
	c := r.colors

	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, c.fail.Sprint(c.bold.Sprint(" FAILED TESTS ")))
	fmt.Fprintln(r.w)

	for _, file := range summary.Files {
		for _, failure := range file.Failures() {
			fmt.Fprintf(r.w, "%s%s\n", c.fail.Sprint(" × "),
				c.bold.Sprintf("%s > doctest @ line %d", file.FilePath, failure.Snippet.SourceLine))

			if msg := failure.Result.ErrorMessage; msg != "" {
				for _, line := range strings.Split(msg, "\n") {
					fmt.Fprintf(r.w, "   %s\n", c.fail.Sprint(line))
				}
			}

			if r.verbose && failure.Result.StackTrace != "" {
				fmt.Fprintln(r.w)
				for _, line := range stackLines(failure.Result.StackTrace) {
					fmt.Fprintf(r.w, "   %s\n", c.dim.Sprint(line))
				}
			}
			fmt.Fprintln(r.w)
		}
	}
}

// stackLines drops the header line of a trace and keeps the next few frames
func stackLines(stack string) []string {
	lines := strings.Split(stack, "\n")
	if len(lines) <= 1 {
		return nil
	}
	lines = lines[1:]
	if len(lines) > maxStackLines {
		lines = lines[:maxStackLines]
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (r *Reporter) totals(summary *models.RunSummary) {
	c := r.colors
	files := len(summary.Files)
	sep := c.dim.Sprint("|")

	if summary.TotalFailed == 0 {
		fmt.Fprintf(r.w, "%s %s %s\n", c.success.Sprint(c.bold.Sprint(" Test Files ")),
			c.success.Sprintf("%d passed", files), c.dim.Sprintf("(%d)", files))
		fmt.Fprintf(r.w, "%s %s %s\n", c.success.Sprint(c.bold.Sprint("      Tests ")),
			c.success.Sprintf("%d passed", summary.TotalPassed), c.dim.Sprintf("(%d)", summary.TotalPassed))
	} else {
		failedFiles := summary.FailedFiles()
		fmt.Fprintf(r.w, "%s %s %s %s %s\n", c.fail.Sprint(c.bold.Sprint(" Test Files ")),
			c.fail.Sprintf("%d failed", failedFiles), sep,
			c.success.Sprintf("%d passed", files-failedFiles), c.dim.Sprintf("(%d)", files))
		fmt.Fprintf(r.w, "%s %s %s %s %s\n", c.fail.Sprint(c.bold.Sprint("      Tests ")),
			c.fail.Sprintf("%d failed", summary.TotalFailed), sep,
			c.success.Sprintf("%d passed", summary.TotalPassed), c.dim.Sprintf("(%d)", summary.TotalTests))
	}

	fmt.Fprintf(r.w, "%s%s\n", c.bold.Sprint("   Start at "), summary.StartedAt.Format("15:04:05"))
	fmt.Fprintf(r.w, "%s%s\n", c.bold.Sprint("   Duration "), formatDuration(summary.Duration))
	fmt.Fprintln(r.w)
}

func (r *Reporter) emptyHint() {
	c := r.colors
	fmt.Fprintln(r.w, c.warn.Sprint(" No doctests found"))
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, c.dim.Sprint(" Add `doctest` after the language tag in your markdown code blocks:"))
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "   %s\n", c.dim.Sprint("```javascript doctest"))
	fmt.Fprintf(r.w, "   %s\n", c.dim.Sprint("assert(1 + 1 === 2);"))
	fmt.Fprintf(r.w, "   %s\n", c.dim.Sprint("```"))
	fmt.Fprintln(r.w)
}

// Error prints a fatal CLI error
func (r *Reporter) Error(err error) {
	fmt.Fprintf(r.w, "%s %s\n", r.colors.fail.Sprint("error:"), err)
}
