package models

import "time"

// ExecutionResult represents the outcome of executing a single snippet
type ExecutionResult struct {
	Success      bool          // Snippet ran to completion without a fault
	ErrorMessage string        // Fault message when Success is false
	StackTrace   string        // Diagnostic trace, if the engine provided one
	Duration     time.Duration // Wall time spent transforming and executing
}

// Passed builds a successful ExecutionResult
func Passed(duration time.Duration) ExecutionResult {
	return ExecutionResult{Success: true, Duration: duration}
}

// Failed builds a failed ExecutionResult from a message and optional trace
func Failed(message, stack string, duration time.Duration) ExecutionResult {
	return ExecutionResult{
		Success:      false,
		ErrorMessage: message,
		StackTrace:   stack,
		Duration:     duration,
	}
}

// SnippetResult pairs a snippet with the result of executing it
type SnippetResult struct {
	Snippet Snippet
	Result  ExecutionResult
}

// FileOutcome represents the aggregate result of every snippet in one file
type FileOutcome struct {
	FilePath string          // Path relative to the project root
	Passed   int             // Number of passing snippets
	Failed   int             // Number of failing snippets
	Total    int             // Number of snippets extracted from the file
	Results  []SnippetResult // Per-snippet results in source order
}

// Add appends a snippet result and updates the counters
func (f *FileOutcome) Add(snippet Snippet, result ExecutionResult) {
	f.Results = append(f.Results, SnippetResult{Snippet: snippet, Result: result})
	f.Total++
	if result.Success {
		f.Passed++
	} else {
		f.Failed++
	}
}

// Failures returns the failing snippet results in source order
func (f *FileOutcome) Failures() []SnippetResult {
	var failures []SnippetResult
	for _, r := range f.Results {
		if !r.Result.Success {
			failures = append(failures, r)
		}
	}
	return failures
}

// RunSummary represents the aggregate result of a whole documentation run
type RunSummary struct {
	Files       []FileOutcome // Files that contributed at least one snippet
	TotalPassed int
	TotalFailed int
	TotalTests  int
	StartedAt   time.Time
	Duration    time.Duration
}

// AddFile folds a FileOutcome into the summary.
// Files with no snippets are dropped.
func (s *RunSummary) AddFile(outcome FileOutcome) {
	if outcome.Total == 0 {
		return
	}
	s.Files = append(s.Files, outcome)
	s.TotalPassed += outcome.Passed
	s.TotalFailed += outcome.Failed
	s.TotalTests += outcome.Total
}

// FailedFiles returns the number of files with at least one failure
func (s *RunSummary) FailedFiles() int {
	count := 0
	for _, f := range s.Files {
		if f.Failed > 0 {
			count++
		}
	}
	return count
}

// OK returns true if no snippet failed
func (s *RunSummary) OK() bool {
	return s.TotalFailed == 0
}
