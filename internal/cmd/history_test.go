package cmd

import (
	"strings"
	"testing"
)

func TestHistoryCommand_Empty(t *testing.T) {
	project(t, nil)

	stdout, _, err := execute(t, "history")
	if err != nil {
		t.Fatalf("history returned error: %v", err)
	}
	if !strings.Contains(stdout, "No runs recorded") {
		t.Errorf("unexpected output: %q", stdout)
	}
}

func TestHistoryCommand_RunDetails(t *testing.T) {
	project(t, map[string]string{
		"accudoc.yaml":   "history:\n  enabled: true\n",
		"docs/math.md":   passingDoc,
		"docs/broken.md": failingDoc,
	})

	if _, _, err := execute(t, "run"); err == nil {
		t.Fatal("expected failing run")
	}

	stdout, _, err := execute(t, "history", "--limit", "1")
	if err != nil {
		t.Fatalf("history returned error: %v", err)
	}
	fields := strings.Fields(stdout)
	if len(fields) == 0 {
		t.Fatalf("no runs listed")
	}
	if !strings.Contains(stdout, "1/2 passed") {
		t.Errorf("unexpected run line: %q", stdout)
	}

	details, _, err := execute(t, "history", "--run", fields[0])
	if err != nil {
		t.Fatalf("history --run returned error: %v", err)
	}
	if !strings.Contains(details, "FAIL docs/broken.md:3 (js) Expected 3, but got 2") {
		t.Errorf("unexpected details:\n%s", details)
	}
	if !strings.Contains(details, "PASS docs/math.md:3 (javascript)") {
		t.Errorf("unexpected details:\n%s", details)
	}
}

func TestHistoryCommand_UnknownRun(t *testing.T) {
	project(t, map[string]string{
		"accudoc.yaml": "history:\n  enabled: true\n",
		"docs/math.md": passingDoc,
	})
	if _, _, err := execute(t, "run"); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, _, err := execute(t, "history", "--run", "nope"); err == nil {
		t.Error("expected error for unknown run")
	}
}
