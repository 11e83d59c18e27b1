// Package transformer rewrites doctest snippets into code the sandbox can run
// without a module system.
//
// Rewriting is textual. Import statements are recognised with regular
// expressions, so unusually formatted imports (comments between tokens,
// specifiers built from expressions) are left untouched.
package transformer

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/harrison/accudoc/internal/config"
)

// Identifiers the sandbox binds as parameters of every snippet function
const (
	LoaderIdent      = "__accudoc_import"
	JSXFactoryIdent  = "__accudoc_jsx"
	JSXFragmentIdent = "__accudoc_fragment"
)

// Placeholder comments left where statements were removed
const (
	ImportRemoved          = "// import removed"
	TypeImportRemoved      = "// type import removed"
	TypeDeclarationRemoved = "// type declaration removed"
)

// Options controls a single transformation
type Options struct {
	// Imports maps module specifiers to replacement paths, applied in order
	Imports config.ImportMap

	// JSX selects how extended syntax is lowered
	JSX config.JSXMode

	// WorkDir is the directory relative replacement paths are resolved against
	WorkDir string
}

var (
	typeImportRegex     = regexp.MustCompile(`import\s+type\s+(?:\{[^}]+\}|[\w$]+|\*\s+as\s+[\w$]+)\s+from\s+['"][^'"]+['"];?[ \t]*`)
	typeDeclBlockRegex  = regexp.MustCompile(`(?m)^(?:export\s+)?(?:interface|type)\s+[\w$]+[^{\n]*\{[^}]*\};?[ \t]*$`)
	typeDeclAliasRegex  = regexp.MustCompile(`(?m)^(?:export\s+)?type\s+[\w$]+(?:<[^>\n]*>)?\s*=\s*[^{;\n]+;?[ \t]*$`)
	importAliasRegex    = regexp.MustCompile(`^([\w$]+)\s+as\s+([\w$]+)$`)
	importSpecifierList = regexp.MustCompile(`\s*,\s*`)
)

// Transform rewrites code for execution. It is a pure function of its inputs.
// The only failure is a failed extended syntax lowering, reported as
// ErrSyntaxTransform.
func Transform(code string, isExtendedSyntax bool, opts Options) (string, error) {
	code = stripTypeImports(code)

	for _, entry := range opts.Imports {
		if entry.Elide {
			code = elideImports(code, entry.Specifier)
			continue
		}
		code = rewriteImports(code, entry.Specifier, Locator(entry.Path, opts.WorkDir))
	}

	code = mockFrameworkImports(code)
	code = stripTypeDeclarations(code)

	if isExtendedSyntax && opts.JSX.Enabled() {
		lowered, err := LowerMarkup(code, opts.JSX)
		if err != nil {
			return "", err
		}
		code = lowered
	}

	return code, nil
}

// Locator converts a replacement path into the string handed to the loader.
// Relative paths are resolved against workDir; absolute paths become file://
// locators with forward slashes. Bare specifiers are returned unchanged.
func Locator(path, workDir string) string {
	resolved := path
	if strings.HasPrefix(path, ".") {
		resolved = filepath.Join(workDir, path)
	}

	if !isAbsolute(resolved) {
		return resolved
	}

	slashed := strings.ReplaceAll(resolved, `\`, "/")
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	return "file://" + slashed
}

var windowsDriveRegex = regexp.MustCompile(`^[a-zA-Z]:`)

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "/") || windowsDriveRegex.MatchString(path)
}

// elideImports removes side-effect and binding imports of specifier
func elideImports(code, specifier string) string {
	spec := quotedSpecifier(specifier)
	sideEffect := regexp.MustCompile(`import\s+` + spec + `;?[ \t]*`)
	bindings := regexp.MustCompile(`import\s+[^;'"]+\s+from\s+` + spec + `;?[ \t]*`)

	code = replaceWithPlaceholder(code, sideEffect, ImportRemoved)
	return replaceWithPlaceholder(code, bindings, ImportRemoved)
}

// rewriteImports turns every import shape of specifier into a loader call
func rewriteImports(code, specifier, locator string) string {
	spec := quotedSpecifier(specifier)
	load := fmt.Sprintf("await %s('%s')", LoaderIdent, escapeSingleQuoted(locator))

	defaultAndNamed := regexp.MustCompile(`import\s+([\w$]+)\s*,\s*\{([^}]*)\}\s+from\s+` + spec + `;?`)
	code = defaultAndNamed.ReplaceAllStringFunc(code, func(m string) string {
		sub := defaultAndNamed.FindStringSubmatch(m)
		bindings := append([]string{"default: " + sub[1]}, destructureList(sub[2])...)
		return fmt.Sprintf("const { %s } = %s;", strings.Join(bindings, ", "), load)
	})

	named := regexp.MustCompile(`import\s+\{([^}]*)\}\s+from\s+` + spec + `;?`)
	code = named.ReplaceAllStringFunc(code, func(m string) string {
		sub := named.FindStringSubmatch(m)
		return fmt.Sprintf("const { %s } = %s;", strings.Join(destructureList(sub[1]), ", "), load)
	})

	defaultBinding := regexp.MustCompile(`import\s+([\w$]+)\s+from\s+` + spec + `;?`)
	code = defaultBinding.ReplaceAllStringFunc(code, func(m string) string {
		return fmt.Sprintf("const { default: %s } = %s;", defaultBinding.FindStringSubmatch(m)[1], load)
	})

	namespace := regexp.MustCompile(`import\s+\*\s+as\s+([\w$]+)\s+from\s+` + spec + `;?`)
	code = namespace.ReplaceAllStringFunc(code, func(m string) string {
		return fmt.Sprintf("const %s = %s;", namespace.FindStringSubmatch(m)[1], load)
	})

	sideEffect := regexp.MustCompile(`import\s+` + spec + `;?`)
	code = sideEffect.ReplaceAllLiteralString(code, load+";")

	dynamic := regexp.MustCompile(`import\s*\(\s*` + spec + `\s*\)`)
	return dynamic.ReplaceAllLiteralString(code, fmt.Sprintf("%s('%s')", LoaderIdent, escapeSingleQuoted(locator)))
}

// destructureList converts an import specifier list into destructuring
// properties: "a, b as c" becomes ["a", "b: c"].
func destructureList(list string) []string {
	var out []string
	for _, name := range importSpecifierList.Split(strings.TrimSpace(list), -1) {
		if name == "" {
			continue
		}
		if m := importAliasRegex.FindStringSubmatch(name); m != nil {
			out = append(out, m[1]+": "+m[2])
			continue
		}
		out = append(out, name)
	}
	return out
}

func stripTypeImports(code string) string {
	return replaceWithPlaceholder(code, typeImportRegex, TypeImportRemoved)
}

func stripTypeDeclarations(code string) string {
	code = replaceWithPlaceholder(code, typeDeclBlockRegex, TypeDeclarationRemoved)
	return replaceWithPlaceholder(code, typeDeclAliasRegex, TypeDeclarationRemoved)
}

// replaceWithPlaceholder swaps each match for placeholder, keeping as many
// newlines as the match spanned so later line numbers stay put.
func replaceWithPlaceholder(code string, re *regexp.Regexp, placeholder string) string {
	return re.ReplaceAllStringFunc(code, func(m string) string {
		return placeholder + strings.Repeat("\n", strings.Count(m, "\n"))
	})
}

// quotedSpecifier matches specifier inside single or double quotes
func quotedSpecifier(specifier string) string {
	return `['"]` + regexp.QuoteMeta(specifier) + `['"]`
}

func escapeSingleQuoted(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
