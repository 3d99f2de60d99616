//go:build mage

package main

import (
	"fmt"
	"log/slog"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// coverageProfile is the file coverage data is written to.
const coverageProfile = "coverage.out"

type Test mg.Namespace

// Unit runs unit tests for the repository.
func (Test) Unit() error {
	mg.Deps(Init)
	log(slog.LevelInfo, "Running unit tests")

	return sh.RunV("go", "test", "./...")
}

// Race runs unit tests with the race detector.
func (Test) Race() error {
	mg.Deps(Init)
	log(slog.LevelInfo, "Running unit tests with the race detector")

	return sh.RunV("go", "test", "-race", "-count=1", "./...")
}

type Coverage mg.Namespace

// Run runs unit tests for the repository with code coverage enabled.
func (Coverage) Run() error {
	mg.Deps(Init)
	log(slog.LevelInfo, "Running unit tests with coverage")

	if err := sh.RunV("go", "test", "-coverprofile="+coverageProfile, "./..."); err != nil {
		return fmt.Errorf("error running unit tests: %w", err)
	}

	return nil
}

// View opens the code coverage report in a browser.
func (Coverage) View() error {
	mg.Deps(Coverage.Run)

	return sh.Run("go", "tool", "cover", "-html="+coverageProfile)
}
