package transformer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/harrison/accudoc/internal/config"
)

// ErrSyntaxTransform is returned when extended syntax cannot be lowered
var ErrSyntaxTransform = errors.New("syntax transform failed")

// LowerMarkup converts embedded markup into plain function calls.
// React mode targets the sandbox element factory; Vue mode calls h and
// Fragment from the snippet's own scope.
func LowerMarkup(code string, mode config.JSXMode) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("%w: empty source", ErrSyntaxTransform)
	}

	factory, fragment := JSXFactoryIdent, JSXFragmentIdent
	if mode == config.JSXVue {
		factory, fragment = "h", "Fragment"
	}

	result := api.Transform(code, api.TransformOptions{
		Loader:      api.LoaderTSX,
		Sourcefile:  "doctest.tsx",
		Target:      api.ESNext,
		JSX:         api.JSXTransform,
		JSXFactory:  factory,
		JSXFragment: fragment,
		LogLevel:    api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		messages := make([]string, 0, len(result.Errors))
		for _, msg := range result.Errors {
			if msg.Location != nil {
				messages = append(messages, fmt.Sprintf("%d:%d: %s", msg.Location.Line, msg.Location.Column, msg.Text))
			} else {
				messages = append(messages, msg.Text)
			}
		}
		return "", fmt.Errorf("%w: %s", ErrSyntaxTransform, strings.Join(messages, "\n"))
	}

	return string(result.Code), nil
}
