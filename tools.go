//go:build tools

// Pins build-time tool dependencies so `go mod tidy` keeps them.
package tools

import (
	_ "honnef.co/go/tools/cmd/staticcheck"
)
