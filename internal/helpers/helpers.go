package helpers

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/aescanero/dago-node-view/internal/view"
)

// Compiler turns a helper source into a view helper.
type Compiler interface {
	Compile(source string) (view.Helper, error)
}

// Declaration is one helper entry of a declaration file.
type Declaration struct {
	CEL      string `yaml:"cel"`
	Template string `yaml:"template"`
}

// File is the layout of a helper declaration file.
type File struct {
	Helpers map[string]Declaration `yaml:"helpers"`
}

// LoadFile reads and compiles a helper declaration file.
func LoadFile(path string, cel, tmpl Compiler) (view.Helpers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read helpers file %s: %w", path, err)
	}

	helpers, err := Load(data, cel, tmpl)
	if err != nil {
		return nil, fmt.Errorf("helpers file %s: %w", path, err)
	}
	return helpers, nil
}

// Load compiles the helpers declared in a YAML document.
func Load(data []byte, cel, tmpl Compiler) (view.Helpers, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse helpers: %w", err)
	}

	names := make([]string, 0, len(file.Helpers))
	for name := range file.Helpers {
		names = append(names, name)
	}
	sort.Strings(names)

	helpers := make(view.Helpers, len(names))
	for _, name := range names {
		decl := file.Helpers[name]

		var (
			helper view.Helper
			err    error
		)
		switch {
		case decl.CEL != "" && decl.Template != "", decl.CEL == "" && decl.Template == "":
			return nil, fmt.Errorf("helper %q: exactly one of cel or template is required", name)
		case decl.CEL != "":
			helper, err = cel.Compile(decl.CEL)
		default:
			helper, err = tmpl.Compile(decl.Template)
		}
		if err != nil {
			return nil, fmt.Errorf("helper %q: %w", name, err)
		}

		helpers[name] = helper
	}

	return helpers, nil
}

// Merge combines helper sets; later sets override earlier ones.
func Merge(sets ...view.Helpers) view.Helpers {
	merged := make(view.Helpers)
	for _, set := range sets {
		for name, helper := range set {
			merged[name] = helper
		}
	}
	return merged
}
