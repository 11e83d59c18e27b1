package transformer

import (
	"fmt"
	"regexp"
	"strings"
)

// FrameworkModule is the UI framework whose hook imports are mocked
const FrameworkModule = "react"

// defaultHookStub is used for any import missing from hookStubs
const defaultHookStub = "() => {}"

// hookStubs maps framework exports to stand-in implementations.
// Effects and memoization run their callback once and return its result,
// state is a fixed value with a no-op setter.
var hookStubs = map[string]string{
	"useRef":              "(initial) => ({ current: initial })",
	"useState":            "(initial) => [typeof initial === 'function' ? initial() : initial, () => {}]",
	"useEffect":           "(fn) => fn()",
	"useLayoutEffect":     "(fn) => fn()",
	"useCallback":         "(fn) => fn",
	"useMemo":             "(fn) => fn()",
	"useContext":          "() => ({})",
	"useReducer":          "(_, init) => [init, () => {}]",
	"useImperativeHandle": "() => {}",
	"forwardRef":          "(fn) => fn",
	"createContext":       "(val) => ({ Provider: () => val, Consumer: () => val })",
	"memo":                "(fn) => fn",
	"Fragment":            `"Fragment"`,
	"createElement":       "(type, props, ...children) => ({ type, props, children })",
}

// HookStub returns the stand-in for a framework export
func HookStub(name string) string {
	if stub, ok := hookStubs[name]; ok {
		return stub
	}
	return defaultHookStub
}

var frameworkImportRegex = regexp.MustCompile(`import\s+\{([^}]+)\}\s+from\s+['"]` + regexp.QuoteMeta(FrameworkModule) + `['"];?`)

// mockFrameworkImports replaces named framework imports with a local object
// of stubs, destructured into the same bindings.
func mockFrameworkImports(code string) string {
	return frameworkImportRegex.ReplaceAllStringFunc(code, func(m string) string {
		sub := frameworkImportRegex.FindStringSubmatch(m)
		bindings := destructureList(sub[1])

		stubs := make([]string, 0, len(bindings))
		seen := make(map[string]bool, len(bindings))
		for _, b := range bindings {
			name := strings.TrimSpace(strings.SplitN(b, ":", 2)[0])
			if seen[name] {
				continue
			}
			seen[name] = true
			stubs = append(stubs, fmt.Sprintf("%s: %s", name, HookStub(name)))
		}

		return fmt.Sprintf("const { %s } = {\n  %s\n};", strings.Join(bindings, ", "), strings.Join(stubs, ",\n  "))
	})
}
