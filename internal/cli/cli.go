// Package cli holds identity shared across command surfaces.
package cli

const name = "tmuxwire"

// version is overridden at release time via
// -ldflags "-X github.com/tmuxwire/tmuxwire/internal/cli.version=v1.2.3".
var version = "dev"

// Name returns the CLI binary name for user-facing messages, so help
// text stays correct if the binary is ever renamed.
func Name() string {
	return name
}

// Version returns the build version string.
func Version() string {
	return version
}
