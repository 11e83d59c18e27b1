package extractor

import (
	"regexp"
	"strings"
)

// Inline directive comments
const (
	HiddenMarker = "doctest-hidden"
	OnlyMarker   = "doctest-only"
	ShowMarker   = "doctest-show"
)

// AssertionFuncs is the fixed set of assertion calls removed by StripAssertions
var AssertionFuncs = []string{
	"assert",
	"assertEqual",
	"assertDeepEqual",
	"assertNotEqual",
	"assertThrows",
	"assertThrowsAsync",
	"assertNullish",
	"assertTruthy",
	"assertFalsy",
	"assertInstanceOf",
	"assertMatch",
	"assertIncludes",
	"console.assert",
}

var (
	hiddenLineRegex = regexp.MustCompile(`//\s*(` + HiddenMarker + `|` + OnlyMarker + `)\s*$`)
	showMarkerRegex = regexp.MustCompile(`\s*//\s*` + ShowMarker + `\s*$`)
	assertLineRegex = regexp.MustCompile(`^\s*(?:await\s+)?(?:` + assertionAlternation() + `)\s*\(.*\)\s*;?\s*$`)
)

func assertionAlternation() string {
	quoted := make([]string, len(AssertionFuncs))
	for i, name := range AssertionFuncs {
		quoted[i] = regexp.QuoteMeta(name)
	}
	return strings.Join(quoted, "|")
}

// StripHiddenLines removes lines ending in a doctest-hidden or doctest-only
// comment. Those lines run in tests but never appear in rendered docs.
func StripHiddenLines(code string) string {
	lines := strings.Split(code, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if hiddenLineRegex.MatchString(strings.TrimRight(line, "\r")) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// StripAssertions removes single-line calls to the assertion functions.
// A line ending in a doctest-show comment is kept with the comment removed.
func StripAssertions(code string) string {
	lines := strings.Split(code, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if showMarkerRegex.MatchString(trimmed) {
			kept = append(kept, showMarkerRegex.ReplaceAllString(trimmed, ""))
			continue
		}
		if assertLineRegex.MatchString(trimmed) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
