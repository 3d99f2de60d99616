//go:build mage

package main

import (
	"log/slog"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Lint runs golangci-lint over the module.
func Lint() error {
	mg.Deps(Init)
	log(slog.LevelInfo, "Running golangci-lint")

	return sh.RunV("golangci-lint", "run", "./...")
}
