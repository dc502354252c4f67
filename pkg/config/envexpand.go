package config

import "os"

// ExpandEnv expands ${VAR} and $VAR references in raw YAML bytes before
// parsing, using the standard shell-style syntax. Missing variables expand
// to the empty string; the Validator catches required fields left empty.
//
// Grounded on codeready-toolchain/tarsy's pkg/config/envexpand.go.
func ExpandEnv(data []byte) []byte {
	return []byte(os.Expand(string(data), os.Getenv))
}
