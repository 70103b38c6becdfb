// Package main is the single-binary entrypoint for tokensage.
package main

import "github.com/tokensage/tokensage/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
