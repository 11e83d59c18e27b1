// Package extractor locates executable code fences in markdown documents.
//
// A fence is executable when its language tag is followed by the doctest
// marker:
//
//	```javascript doctest
//	assert(1 + 1 === 2);
//	```
//
// Supported tags are javascript, js, typescript, ts, tsx and jsx. Fences
// without the marker are documentation-only and are never returned.
package extractor

import (
	"regexp"
	"strings"

	"github.com/harrison/accudoc/internal/models"
)

// Marker is the reserved word that flags a fence as executable
const Marker = "doctest"

// fenceRegex matches a doctest fence and captures its tag and body.
// An unterminated fence simply does not match.
var fenceRegex = regexp.MustCompile("```(javascript|js|typescript|ts|tsx|jsx)[ \\t]+" + Marker + "\\r?\\n([\\s\\S]*?)```")

// Extract returns the doctest snippets in content, in document order.
// Line numbers are tracked with a running offset so the scan is linear in
// the size of the document.
func Extract(content, filePath string) []models.Snippet {
	matches := fenceRegex.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return nil
	}

	snippets := make([]models.Snippet, 0, len(matches))
	lineNumber := 1
	lastIndex := 0

	for _, m := range matches {
		start, end := m[0], m[1]
		lineNumber += strings.Count(content[lastIndex:start], "\n")

		language := content[m[2]:m[3]]
		body := normalizeLineEndings(content[m[4]:m[5]])

		snippets = append(snippets, models.Snippet{
			Code:             strings.TrimSpace(body),
			SourceLine:       lineNumber,
			SourceFile:       filePath,
			IsExtendedSyntax: models.IsExtendedSyntaxTag(language),
			Language:         language,
		})

		lineNumber += strings.Count(content[start:end], "\n")
		lastIndex = end
	}

	return snippets
}

// normalizeLineEndings converts CRLF to LF so both conventions yield the same body
func normalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
