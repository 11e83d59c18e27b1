package transformer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/harrison/accudoc/internal/config"
)

// loaders maps module file extensions to esbuild loaders
var loaders = map[string]api.Loader{
	".js":   api.LoaderJS,
	".mjs":  api.LoaderJS,
	".cjs":  api.LoaderJS,
	".jsx":  api.LoaderJSX,
	".ts":   api.LoaderTS,
	".mts":  api.LoaderTS,
	".tsx":  api.LoaderTSX,
	".json": api.LoaderJSON,
}

// ToCommonJS converts a module file loaded through the import map into
// CommonJS so it can be evaluated by a require-style loader. ES module
// syntax, TypeScript annotations and markup are all lowered.
func ToCommonJS(source []byte, filename string, mode config.JSXMode) ([]byte, error) {
	loader, ok := loaders[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		loader = api.LoaderJS
	}

	factory, fragment := JSXFactoryIdent, JSXFragmentIdent
	if mode == config.JSXVue {
		factory, fragment = "h", "Fragment"
	}

	result := api.Transform(string(source), api.TransformOptions{
		Loader:      loader,
		Format:      api.FormatCommonJS,
		Sourcefile:  filename,
		Target:      api.ES2020,
		JSX:         api.JSXTransform,
		JSXFactory:  factory,
		JSXFragment: fragment,
		LogLevel:    api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		messages := make([]string, 0, len(result.Errors))
		for _, msg := range result.Errors {
			messages = append(messages, msg.Text)
		}
		return nil, fmt.Errorf("transpile %s: %s", filename, strings.Join(messages, "\n"))
	}

	return result.Code, nil
}
