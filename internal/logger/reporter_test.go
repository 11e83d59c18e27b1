package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/harrison/accudoc/internal/models"
)

func sampleSummary() *models.RunSummary {
	summary := &models.RunSummary{
		StartedAt: time.Date(2026, 1, 2, 9, 8, 7, 0, time.UTC),
		Duration:  1234 * time.Millisecond,
	}

	good := models.FileOutcome{FilePath: "docs/intro.md"}
	good.Add(models.Snippet{SourceLine: 3}, models.Passed(0))
	good.Add(models.Snippet{SourceLine: 10}, models.Passed(0))

	bad := models.FileOutcome{FilePath: "docs/api.md"}
	bad.Add(models.Snippet{SourceLine: 5}, models.Passed(0))
	bad.Add(models.Snippet{SourceLine: 14}, models.Failed(
		"Expected 3, but got 2\nsecond line",
		"AssertionError: Expected 3\n    at a (doctest:1)\n    at b (doctest:2)\n    at c (doctest:3)\n    at d (doctest:4)\n    at e (doctest:5)\n    at f (doctest:6)",
		0,
	))

	summary.AddFile(good)
	summary.AddFile(bad)
	return summary
}

func TestReporter_Report(t *testing.T) {
	buf := &bytes.Buffer{}
	NewReporter(buf, false).Report(sampleSummary())
	output := buf.String()

	expected := []string{
		" ✓ docs/intro.md (2/2)\n",
		" ✗ docs/api.md (1/2)\n",
		"   × doctest @ line 14\n",
		" FAILED TESTS \n",
		" × docs/api.md > doctest @ line 14\n",
		"   Expected 3, but got 2\n   second line\n",
		" Test Files  1 failed | 1 passed (2)\n",
		"      Tests  1 failed | 3 passed (4)\n",
		"   Start at 09:08:07\n",
		"   Duration 1.23s\n",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("expected report to contain %q, got:\n%s", want, output)
		}
	}

	if strings.Contains(output, "at a (doctest:1)") {
		t.Error("stack traces should only be shown in verbose mode")
	}
	if strings.Contains(output, "\x1b[") {
		t.Error("expected plain output for a buffer")
	}
}

func TestReporter_VerboseStack(t *testing.T) {
	buf := &bytes.Buffer{}
	NewReporter(buf, true).Report(sampleSummary())
	output := buf.String()

	for _, frame := range []string{"at a (doctest:1)", "at e (doctest:5)"} {
		if !strings.Contains(output, "   "+frame+"\n") {
			t.Errorf("expected frame %q in verbose output:\n%s", frame, output)
		}
	}
	if strings.Contains(output, "at f (doctest:6)") {
		t.Error("expected at most five stack lines")
	}
	if strings.Contains(output, "   AssertionError: Expected 3\n") {
		t.Error("stack header line should be skipped")
	}
}

func TestReporter_AllPassed(t *testing.T) {
	summary := &models.RunSummary{Duration: 40 * time.Millisecond}
	f := models.FileOutcome{FilePath: "README.md"}
	f.Add(models.Snippet{SourceLine: 1}, models.Passed(0))
	summary.AddFile(f)

	buf := &bytes.Buffer{}
	NewReporter(buf, false).Report(summary)
	output := buf.String()

	for _, want := range []string{" Test Files  1 passed (1)\n", "      Tests  1 passed (1)\n", "   Duration 40ms\n"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in:\n%s", want, output)
		}
	}
	if strings.Contains(output, "FAILED TESTS") {
		t.Error("no failure section expected")
	}
}

func TestReporter_NoDoctests(t *testing.T) {
	buf := &bytes.Buffer{}
	NewReporter(buf, false).Report(&models.RunSummary{})
	output := buf.String()

	if !strings.Contains(output, " No doctests found\n") {
		t.Errorf("expected empty hint, got:\n%s", output)
	}
	if !strings.Contains(output, "```javascript doctest") {
		t.Errorf("expected fence example, got:\n%s", output)
	}
	if strings.Contains(output, "Test Files") {
		t.Error("totals should not be printed without tests")
	}
}

func TestReporter_Header(t *testing.T) {
	buf := &bytes.Buffer{}
	NewReporter(buf, false).Header("1.2.3", "/work/project")

	if !strings.Contains(buf.String(), " ACCUDOC  v1.2.3 /work/project\n") {
		t.Errorf("unexpected header: %q", buf.String())
	}
}

func TestStackLines(t *testing.T) {
	if got := stackLines("only header"); got != nil {
		t.Errorf("stackLines(header only) = %v, want nil", got)
	}
	got := stackLines("Error: x\n  at one\n\n  at two")
	if len(got) != 2 || got[0] != "at one" || got[1] != "at two" {
		t.Errorf("stackLines() = %v", got)
	}
}
