package factory

import (
	_ "embed"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults returns the built-in machine definitions.
func Defaults() (Definitions, error) {
	return ParseYAML(defaultsYAML)
}
