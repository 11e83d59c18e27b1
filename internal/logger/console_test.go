package logger

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrison/accudoc/internal/models"
)

var timestampPrefix = regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}\] `)

func TestConsoleLogger_Format(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	logger.LogInfo("discovered 3 files")

	output := buf.String()
	if !timestampPrefix.MatchString(output) {
		t.Errorf("expected [HH:MM:SS] prefix, got %q", output)
	}
	if !strings.HasSuffix(output, "[INFO] discovered 3 files\n") {
		t.Errorf("unexpected format: %q", output)
	}
}

func TestConsoleLogger_NilWriter(t *testing.T) {
	logger := NewConsoleLogger(nil, "trace")

	// Must not panic
	logger.LogInfo("ignored")
	logger.LogError("ignored")
	logger.LogSnippetResult("a.md", models.SnippetResult{})
	logger.LogProgress(1, 2)
}

func TestConsoleLogger_NoColorForBuffers(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	logger.LogWarn("careful")

	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected no ANSI codes for a buffer, got %q", buf.String())
	}
}

func TestLogSnippetResult(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		result      models.SnippetResult
		expected    []string
		notExpected []string
	}{
		{
			name:  "pass",
			level: "debug",
			result: models.SnippetResult{
				Snippet: models.Snippet{SourceLine: 7},
				Result:  models.Passed(12 * time.Millisecond),
			},
			expected: []string{"[DEBUG]", "guide.md:7 PASS (12ms)"},
		},
		{
			name:  "fail shows first error line",
			level: "debug",
			result: models.SnippetResult{
				Snippet: models.Snippet{SourceLine: 21},
				Result:  models.Failed("Expected 3, but got 2\nmore detail", "stack", 1500*time.Millisecond),
			},
			expected:    []string{"guide.md:21 FAIL (1.50s): Expected 3, but got 2"},
			notExpected: []string{"more detail", "stack"},
		},
		{
			name:  "hidden at info",
			level: "info",
			result: models.SnippetResult{
				Snippet: models.Snippet{SourceLine: 1},
				Result:  models.Passed(0),
			},
			notExpected: []string{"PASS"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			NewConsoleLogger(buf, tt.level).LogSnippetResult("guide.md", tt.result)

			output := buf.String()
			for _, want := range tt.expected {
				if !strings.Contains(output, want) {
					t.Errorf("expected output to contain %q, got %q", want, output)
				}
			}
			for _, unwanted := range tt.notExpected {
				if strings.Contains(output, unwanted) {
					t.Errorf("expected output not to contain %q, got %q", unwanted, output)
				}
			}
		})
	}
}

func TestLogProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "debug")

	logger.LogProgress(1, 2)

	if !strings.Contains(buf.String(), "Progress: [=====     ] 1/2 (50%)") {
		t.Errorf("unexpected progress output: %q", buf.String())
	}

	buf.Reset()
	NewConsoleLogger(buf, "info").LogProgress(1, 2)
	if buf.Len() != 0 {
		t.Errorf("expected progress hidden at info level, got %q", buf.String())
	}
}

func TestConsoleLogger_Concurrent(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.LogInfo("line")
		}()
	}
	wg.Wait()

	if got := strings.Count(buf.String(), "[INFO] line\n"); got != 20 {
		t.Errorf("expected 20 complete lines, got %d", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0ms"},
		{250 * time.Millisecond, "250ms"},
		{999 * time.Millisecond, "999ms"},
		{time.Second, "1.00s"},
		{1234 * time.Millisecond, "1.23s"},
		{2345 * time.Millisecond, "2.35s"},
		{1999 * time.Millisecond, "2.00s"},
		{90 * time.Second, "90.00s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatDuration(tt.d); got != tt.want {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestNoOpLogger(t *testing.T) {
	logger := NewNoOpLogger()

	logger.LogTrace("x")
	logger.LogDebug("x")
	logger.LogInfo("x")
	logger.LogWarn("x")
	logger.LogError("x")
	logger.LogSnippetResult("x", models.SnippetResult{Result: models.Failed("x", "", 0)})
	logger.LogProgress(0, 0)
}

func TestReporter_ErrorLine(t *testing.T) {
	buf := &bytes.Buffer{}
	NewReporter(buf, false).Error(errors.New("docs not found"))

	if buf.String() != "error: docs not found\n" {
		t.Errorf("unexpected error line: %q", buf.String())
	}
}
