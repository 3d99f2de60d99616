//go:build mage

package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// binDir is where built binaries are written.
const binDir = "bin"

type Build mg.Namespace

// All compiles every package in the module.
func (Build) All() error {
	mg.Deps(Init)
	log(slog.LevelInfo, "Building all packages")

	start := time.Now()
	if err := sh.RunV("go", "build", "./..."); err != nil {
		return fmt.Errorf("error building all packages: %w", err)
	}

	log(slog.LevelInfo, fmt.Sprintf("Build completed in %s", time.Since(start)))
	return nil
}

// One builds a single binary from cmd/<service> into bin/<service>.
func (Build) One(service string) error {
	mg.Deps(Init)
	log(slog.LevelInfo, fmt.Sprintf("Building %s", service))

	start := time.Now()

	args := []string{
		"build",
		"-trimpath",
		"-o", filepath.Join(binDir, service),
		"./cmd/" + service,
	}

	env := map[string]string{
		"CGO_ENABLED": "0",
	}

	if err := sh.RunWithV(env, "go", args...); err != nil {
		return fmt.Errorf("error building %s: %w", service, err)
	}

	log(slog.LevelInfo, fmt.Sprintf("Build of %s completed in %s", service, time.Since(start)))
	return nil
}
