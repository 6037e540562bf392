// Package defaults provides the embedded example configuration written
// by the hacheck init subcommand.
package defaults

import _ "embed"

//go:embed hacheck.example.yaml
var ConfigYAML []byte
