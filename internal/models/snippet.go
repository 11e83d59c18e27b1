package models

// Language tags recognised on a doctest fence
const (
	LangJavaScript = "javascript"
	LangJS         = "js"
	LangTypeScript = "typescript"
	LangTS         = "ts"
	LangTSX        = "tsx"
	LangJSX        = "jsx"
)

// Snippet represents a single doctest extracted from a markdown fence.
// Snippets are created once by the extractor and never mutated afterwards.
type Snippet struct {
	Code             string // Trimmed body of the fenced block
	SourceLine       int    // 1-based line of the opening fence
	SourceFile       string // Path of the markdown file the snippet came from
	IsExtendedSyntax bool   // Body uses embedded markup (tsx/jsx)
	Language         string // Language tag declared on the fence
}

// IsExtendedSyntaxTag reports whether a fence language tag declares embedded markup
func IsExtendedSyntaxTag(lang string) bool {
	return lang == LangTSX || lang == LangJSX
}
